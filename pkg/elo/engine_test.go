package elo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 0.0001 // Floating point comparison tolerance

// Helper function to create a default engine for testing
func createTestEngine() *Engine {
	engine, _ := NewEngine(DefaultConfig())
	return engine
}

func TestNewEngine(t *testing.T) {
	t.Run("valid configuration creates engine", func(t *testing.T) {
		engine, err := NewEngine(Config{
			InitialRating: 1000,
			KFactor:       32,
			MinRating:     0,
			MaxRating:     3000,
		})
		require.NoError(t, err)
		require.NotNil(t, engine)

		assert.Equal(t, 1000.0, engine.InitialRating)
		assert.Equal(t, 32, engine.KFactor)
	})

	t.Run("invalid K-factor returns error", func(t *testing.T) {
		engine, err := NewEngine(Config{InitialRating: 1000, KFactor: 0, MinRating: 0, MaxRating: 3000})
		assert.Equal(t, ErrInvalidKFactor, err)
		assert.Nil(t, engine)
	})

	t.Run("invalid bounds returns error", func(t *testing.T) {
		engine, err := NewEngine(Config{InitialRating: 1000, KFactor: 32, MinRating: 3000, MaxRating: 0})
		assert.Equal(t, ErrInvalidBounds, err)
		assert.Nil(t, engine)
	})

	t.Run("non-finite initial rating returns error", func(t *testing.T) {
		engine, err := NewEngine(Config{InitialRating: math.NaN(), KFactor: 32, MinRating: 0, MaxRating: 3000})
		assert.Equal(t, ErrInvalidRating, err)
		assert.Nil(t, engine)
	})
}

func TestExpectedScore(t *testing.T) {
	engine := createTestEngine()

	t.Run("equal ratings give even odds", func(t *testing.T) {
		assert.InDelta(t, 0.5, engine.ExpectedScore(1000, 1000), tolerance)
	})

	t.Run("200 point advantage", func(t *testing.T) {
		// 1/(1+10^(-200/400)) ~= 0.7597
		assert.InDelta(t, 0.7597, engine.ExpectedScore(1200, 1000), 0.0001)
	})

	t.Run("expected scores sum to one", func(t *testing.T) {
		a := engine.ExpectedScore(1342, 987)
		b := engine.ExpectedScore(987, 1342)
		assert.InDelta(t, 1.0, a+b, tolerance)
	})
}

func TestUpdateRatings(t *testing.T) {
	engine := createTestEngine()

	t.Run("equal ratings move 16 points each way", func(t *testing.T) {
		winner, loser, err := engine.UpdateRatings(1000, 1000)
		require.NoError(t, err)
		assert.Equal(t, 1016.0, winner)
		assert.Equal(t, 984.0, loser)
	})

	t.Run("favored winner gains less", func(t *testing.T) {
		// E_w = 1/(1+10^(-200/400)) ~= 0.7597, 1200 + 32*0.2403 ~= 1207.7
		winner, loser, err := engine.UpdateRatings(1200, 1000)
		require.NoError(t, err)
		assert.Equal(t, 1208.0, winner)
		assert.Equal(t, 992.0, loser)
	})

	t.Run("upset winner gains more", func(t *testing.T) {
		winner, _, err := engine.UpdateRatings(1000, 1200)
		require.NoError(t, err)
		assert.Greater(t, winner-1000, 16.0)
	})

	t.Run("results are integral", func(t *testing.T) {
		winner, loser, err := engine.UpdateRatings(1013, 994)
		require.NoError(t, err)
		assert.Equal(t, winner, math.Trunc(winner))
		assert.Equal(t, loser, math.Trunc(loser))
	})

	t.Run("ratings clamp to bounds", func(t *testing.T) {
		_, loser, err := engine.UpdateRatings(3000, 10)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, loser, engine.MinRating)
	})

	t.Run("non-finite input rejected", func(t *testing.T) {
		_, _, err := engine.UpdateRatings(math.Inf(1), 1000)
		assert.Equal(t, ErrInvalidRating, err)

		_, _, err = engine.UpdateRatings(1000, math.NaN())
		assert.Equal(t, ErrInvalidRating, err)
	})
}
