package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebrawl/tunebrawl/pkg/config"
	"github.com/tunebrawl/tunebrawl/pkg/elo"
)

func TestBuildEngineFromDefaults(t *testing.T) {
	engine, err := buildEngine(config.DefaultEloConfig())
	require.NoError(t, err)

	assert.Equal(t, 1000.0, engine.InitialRating)
	assert.Equal(t, 32, engine.KFactor)
	assert.Equal(t, 0.0, engine.MinRating)
	assert.Equal(t, 3000.0, engine.MaxRating)
}

func TestBuildEngineTruncatesFractionalKFactor(t *testing.T) {
	cfg := config.DefaultEloConfig()
	cfg.KFactor = 24.9

	engine, err := buildEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, 24, engine.KFactor)
}

func TestBuildEngineRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultEloConfig()
	cfg.KFactor = 0.5 // truncates to zero

	_, err := buildEngine(cfg)
	assert.ErrorIs(t, err, elo.ErrInvalidKFactor)
}
