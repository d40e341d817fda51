// Package web exposes the tournament over HTTP: a chi-routed JSON API for
// driving comparisons from a browser client plus a websocket hub that pushes
// progress to spectators.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeStaleMatchup   = "STALE_MATCHUP"
	ErrCodeNotReady       = "NOT_READY"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// ToAPIError maps domain errors onto API errors: validation failures are
// unprocessable, stale or premature operations conflict, missing state is
// not found, and upstream gateway trouble is a bad gateway.
func ToAPIError(err error) *APIError {
	switch {
	case errors.Is(err, tournament.ErrNotEnoughSongs):
		return &APIError{Status: http.StatusUnprocessableEntity, Code: ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, tournament.ErrStaleMatchup):
		return &APIError{Status: http.StatusConflict, Code: ErrCodeStaleMatchup, Message: err.Error()}
	case errors.Is(err, tournament.ErrNotReady):
		return &APIError{Status: http.StatusConflict, Code: ErrCodeNotReady, Message: err.Error()}
	case errors.Is(err, tournament.ErrStateNotFound):
		return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, tournament.ErrUnknownSong):
		return &APIError{Status: http.StatusUnprocessableEntity, Code: ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, tournament.ErrGateway):
		return &APIError{Status: http.StatusBadGateway, Code: ErrCodeUpstream, Message: err.Error()}
	default:
		return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
	}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondDeleted writes a 204 No Content response
func respondDeleted(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*APIError); ok {
		respondJSON(w, apiErr.Status, apiErr)
		return
	}
	apiErr := ToAPIError(err)
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}
