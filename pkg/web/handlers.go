package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tunebrawl/tunebrawl/pkg/export"
	"github.com/tunebrawl/tunebrawl/pkg/logger"
	"github.com/tunebrawl/tunebrawl/pkg/store"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// Journal reads the recorded comparison history.
type Journal interface {
	Outcomes(ctx context.Context, playlistID string) ([]store.OutcomeRecord, error)
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	Service *tournament.Service
	Journal Journal // Optional; history endpoint 404s without it
	Hub     *Hub    // Optional; progress broadcasting
	Log     logger.Logger
}

// Router returns a configured chi router with all routes.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Route("/api/tournaments/{playlistID}", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Delete("/", h.handleReset)
		r.Get("/pair", h.handlePair)
		r.Post("/outcome", h.handleOutcome)
		r.Get("/progress", h.handleProgress)
		r.Get("/ranking", h.handleRanking)
		r.Get("/history", h.handleHistory)
	})

	return r
}

// StatusResponse describes where a tournament stands.
type StatusResponse struct {
	PlaylistID   string              `json:"playlist_id"`
	Phase        string              `json:"phase"`
	Songs        int                 `json:"songs"`
	Groups       int                 `json:"groups"`
	CurrentGroup int                 `json:"current_group"`
	Finalists    int                 `json:"finalists"`
	Progress     tournament.Progress `json:"progress"`
}

// PairResponse carries the comparison currently on offer. Pair is null once
// the tournament is complete.
type PairResponse struct {
	Pair     *pairPayload `json:"pair"`
	Complete bool         `json:"complete"`
}

type pairPayload struct {
	Key   string          `json:"key"`
	Left  tournament.Song `json:"left"`
	Right tournament.Song `json:"right"`
}

// OutcomeRequest is the body for recording a comparison.
type OutcomeRequest struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

// OutcomeResponse reports the rating changes and any phase transitions the
// outcome triggered.
type OutcomeResponse struct {
	Winner        ratingChange        `json:"winner"`
	Loser         ratingChange        `json:"loser"`
	GroupsDone    []groupDonePayload  `json:"groups_completed,omitempty"`
	FinalsStarted bool                `json:"finals_started,omitempty"`
	Complete      bool                `json:"complete,omitempty"`
	Progress      tournament.Progress `json:"progress"`
}

type ratingChange struct {
	SongID    string  `json:"song_id"`
	OldRating float64 `json:"old_rating"`
	NewRating float64 `json:"new_rating"`
	Delta     float64 `json:"delta"`
}

type groupDonePayload struct {
	Index      int               `json:"index"`
	Qualifiers []tournament.Song `json:"qualifiers"`
}

func playlistID(r *http.Request) string {
	return chi.URLParam(r, "playlistID")
}

func statusOf(t *tournament.Tournament) StatusResponse {
	return StatusResponse{
		PlaylistID:   t.PlaylistID(),
		Phase:        t.Phase().String(),
		Songs:        len(t.Songs()),
		Groups:       t.GroupCount(),
		CurrentGroup: t.CurrentGroup(),
		Finalists:    len(t.Finalists()),
		Progress:     t.Progress(),
	}
}

// handleCreate initializes (or resumes) the playlist's tournament.
func (h *Handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Initialize(r.Context(), playlistID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, statusOf(t))
}

// handleReset clears the playlist's tournament. With ?keep_ratings=1 the
// accumulated ratings survive for the next run.
func (h *Handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	keepRatings := r.URL.Query().Get("keep_ratings") == "1"
	if err := h.Service.Reset(r.Context(), playlistID(r), keepRatings); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// handlePair returns the comparison currently on offer, resolving missing
// preview audio on the way out.
func (h *Handlers) handlePair(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), playlistID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	pair := t.CurrentPair()
	if pair == nil {
		respondOK(w, PairResponse{Complete: true})
		return
	}

	if pair.Left.PreviewURL == "" {
		pair.Left.PreviewURL = t.ResolvePreview(r.Context(), pair.Left.ID)
	}
	if pair.Right.PreviewURL == "" {
		pair.Right.PreviewURL = t.ResolvePreview(r.Context(), pair.Right.ID)
	}

	respondOK(w, PairResponse{Pair: &pairPayload{
		Key:   pair.Key(),
		Left:  pair.Left,
		Right: pair.Right,
	}})
}

// handleOutcome records one comparison and reports what it changed.
func (h *Handlers) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.WinnerID == "" || req.LoserID == "" {
		respondError(w, BadRequest("winner_id and loser_id are required"))
		return
	}

	t, err := h.Service.Get(r.Context(), playlistID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	outcome, err := t.RecordOutcome(r.Context(), req.WinnerID, req.LoserID)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := OutcomeResponse{
		Winner:        ratingChange(outcome.Winner),
		Loser:         ratingChange(outcome.Loser),
		FinalsStarted: outcome.FinalsStarted,
		Complete:      outcome.Complete,
		Progress:      t.Progress(),
	}
	for _, g := range outcome.GroupsCompleted {
		resp.GroupsDone = append(resp.GroupsDone, groupDonePayload{
			Index:      g.Index,
			Qualifiers: g.Qualifiers,
		})
	}

	if h.Hub != nil {
		h.Hub.BroadcastMessage("progress", statusOf(t))
		if outcome.Complete {
			h.Hub.BroadcastMessage("complete", map[string]string{"playlist_id": t.PlaylistID()})
		}
	}

	respondOK(w, resp)
}

// handleProgress reports the tournament status.
func (h *Handlers) handleProgress(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), playlistID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, statusOf(t))
}

// handleRanking returns the final ranking with tiers. Conflicts until the
// finals are played out.
func (h *Handlers) handleRanking(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), playlistID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	ranking, err := t.FinalRanking()
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, export.BuildRanking(t.PlaylistID(), ranking))
}

// handleHistory returns the journaled comparisons.
func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		respondError(w, NewAPIError(http.StatusNotFound, ErrCodeNotFound, "history not available"))
		return
	}
	records, err := h.Journal.Outcomes(r.Context(), playlistID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, records)
}
