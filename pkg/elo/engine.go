// Package elo provides Elo rating calculations for pairwise song tournaments.
// It implements the standard Chess Elo rating algorithm with configurable
// parameters and mathematical validation. Ratings are rounded to whole numbers
// after every update so fractional drift never accumulates in storage.
package elo

import (
	"errors"
	"math"
)

// Error types for validation
var (
	ErrInvalidRating  = errors.New("rating value is invalid")
	ErrInvalidKFactor = errors.New("k-factor must be positive")
	ErrInvalidBounds  = errors.New("min rating must be less than max rating")
)

// Update records the rating change for one side of a comparison
type Update struct {
	SongID    string  // Song being updated
	OldRating float64 // Rating before the comparison
	NewRating float64 // Rating after the comparison
	Delta     float64 // Change in rating (NewRating - OldRating)
}

// Config holds configuration parameters for the Elo engine
type Config struct {
	InitialRating float64 // Default rating for new songs
	KFactor       int     // K-factor for rating sensitivity
	MinRating     float64 // Minimum allowed rating
	MaxRating     float64 // Maximum allowed rating
}

// DefaultConfig returns the engine configuration used by tournaments:
// every song starts at 1000 and each comparison moves at most 32 points.
func DefaultConfig() Config {
	return Config{
		InitialRating: 1000,
		KFactor:       32,
		MinRating:     0,
		MaxRating:     3000,
	}
}

// Engine is the core Elo rating engine with configurable parameters
type Engine struct {
	InitialRating float64 // Default rating for new songs
	KFactor       int     // K-factor for rating change sensitivity
	MinRating     float64 // Minimum allowed rating
	MaxRating     float64 // Maximum allowed rating
}

// NewEngine creates a new Elo rating engine with the specified configuration
func NewEngine(config Config) (*Engine, error) {
	if config.KFactor <= 0 {
		return nil, ErrInvalidKFactor
	}
	if config.MinRating >= config.MaxRating {
		return nil, ErrInvalidBounds
	}
	if math.IsNaN(config.InitialRating) || math.IsInf(config.InitialRating, 0) {
		return nil, ErrInvalidRating
	}

	return &Engine{
		InitialRating: config.InitialRating,
		KFactor:       config.KFactor,
		MinRating:     config.MinRating,
		MaxRating:     config.MaxRating,
	}, nil
}

// validateRating checks if a rating value is valid
func (e *Engine) validateRating(rating float64) error {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return ErrInvalidRating
	}
	return nil
}

// clampRating ensures a rating stays within configured bounds
func (e *Engine) clampRating(rating float64) float64 {
	if rating < e.MinRating {
		return e.MinRating
	}
	if rating > e.MaxRating {
		return e.MaxRating
	}
	return rating
}

// ExpectedScore computes the expected score for a player rated ratingA
// against a player rated ratingB using the logistic formula.
func (e *Engine) ExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, (ratingB-ratingA)/400.0))
}

// UpdateRatings calculates new ratings for a pairwise comparison.
// winner and loser are the current ratings of the winning and losing songs.
// Both results are rounded to the nearest integer and clamped to bounds.
func (e *Engine) UpdateRatings(winner, loser float64) (newWinner, newLoser float64, err error) {
	if err := e.validateRating(winner); err != nil {
		return 0, 0, err
	}
	if err := e.validateRating(loser); err != nil {
		return 0, 0, err
	}

	expectedWinner := e.ExpectedScore(winner, loser)
	expectedLoser := e.ExpectedScore(loser, winner)

	// Actual scores: winner gets 1, loser gets 0
	winnerDelta := float64(e.KFactor) * (1.0 - expectedWinner)
	loserDelta := float64(e.KFactor) * (0.0 - expectedLoser)

	newWinner = e.clampRating(math.Round(winner + winnerDelta))
	newLoser = e.clampRating(math.Round(loser + loserDelta))

	return newWinner, newLoser, nil
}
