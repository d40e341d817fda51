package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		config := Default()

		assert.NotZero(t, config.Spotify)
		assert.NotZero(t, config.Elo)
		assert.NotZero(t, config.Storage)
		assert.NotZero(t, config.Server)
		assert.Equal(t, "info", config.LogLevel)

		assert.NoError(t, config.Validate())
	})

	t.Run("DefaultEloConfig", func(t *testing.T) {
		config := DefaultEloConfig()

		assert.Equal(t, 1000.0, config.InitialRating)
		assert.Equal(t, 32.0, config.KFactor)
		assert.Equal(t, 0.0, config.MinRating)
		assert.Equal(t, 3000.0, config.MaxRating)

		assert.NoError(t, config.Validate())
	})

	t.Run("DefaultServerConfig", func(t *testing.T) {
		config := DefaultServerConfig()

		assert.Equal(t, ":8080", config.Addr)
		assert.Equal(t, 15*time.Second, config.ReadTimeout)
		assert.Equal(t, 10*time.Second, config.ShutdownTimeout)

		assert.NoError(t, config.Validate())
	})
}

func TestSpotifyConfigValidation(t *testing.T) {
	t.Run("NoCredentialsIsValid", func(t *testing.T) {
		config := DefaultSpotifyConfig()
		assert.NoError(t, config.Validate())
		assert.False(t, config.HasCredentials())
	})

	t.Run("BothCredentials", func(t *testing.T) {
		config := DefaultSpotifyConfig()
		config.ClientID = "id"
		config.ClientSecret = "secret"
		assert.NoError(t, config.Validate())
		assert.True(t, config.HasCredentials())
	})

	t.Run("OnlyOneCredential", func(t *testing.T) {
		config := DefaultSpotifyConfig()
		config.ClientID = "id"
		assert.ErrorIs(t, config.Validate(), ErrInvalidSpotifyConfig)
	})

	t.Run("BadPageSize", func(t *testing.T) {
		config := DefaultSpotifyConfig()
		config.PageSize = 101
		assert.ErrorIs(t, config.Validate(), ErrInvalidSpotifyConfig)
	})

	t.Run("BadMarket", func(t *testing.T) {
		config := DefaultSpotifyConfig()
		config.Market = "USA"
		assert.ErrorIs(t, config.Validate(), ErrInvalidSpotifyConfig)
	})
}

func TestEloConfigValidation(t *testing.T) {
	t.Run("ZeroKFactor", func(t *testing.T) {
		config := DefaultEloConfig()
		config.KFactor = 0
		assert.ErrorIs(t, config.Validate(), ErrInvalidEloConfig)
	})

	t.Run("InvertedBounds", func(t *testing.T) {
		config := DefaultEloConfig()
		config.MinRating = 2000
		config.MaxRating = 1000
		assert.ErrorIs(t, config.Validate(), ErrInvalidEloConfig)
	})

	t.Run("InitialOutsideBounds", func(t *testing.T) {
		config := DefaultEloConfig()
		config.InitialRating = 5000
		assert.ErrorIs(t, config.Validate(), ErrInvalidEloConfig)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

		_, err := LoadFromFile(path)
		assert.ErrorIs(t, err, ErrConfigParseError)
	})

	t.Run("PartialFileGetsDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.yaml")
		content := "elo:\n  k_factor: 24\nstorage:\n  database_path: /tmp/test.db\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		config, err := LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, 24.0, config.Elo.KFactor)
		assert.Equal(t, "/tmp/test.db", config.Storage.DatabasePath)
		assert.Equal(t, 1000.0, config.Elo.InitialRating, "unset values fall back to defaults")
		assert.Equal(t, ":8080", config.Server.Addr)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		original := Default()
		original.Elo.KFactor = 16
		original.Server.Addr = ":9000"
		require.NoError(t, original.SaveToFile(path))

		loaded, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 16.0, loaded.Elo.KFactor)
		assert.Equal(t, ":9000", loaded.Server.Addr)
	})
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TUNEBRAWL_ELO_K_FACTOR", "48")
	t.Setenv("TUNEBRAWL_SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("TUNEBRAWL_SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("TUNEBRAWL_LOG_LEVEL", "debug")
	t.Setenv("TUNEBRAWL_UI_SHUFFLE", "true")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 48.0, config.Elo.KFactor)
	assert.Equal(t, "env-id", config.Spotify.ClientID)
	assert.Equal(t, "env-secret", config.Spotify.ClientSecret)
	assert.Equal(t, "debug", config.LogLevel)
	assert.True(t, config.UI.Shuffle)
}

func TestLoadInvalidEnvironmentValue(t *testing.T) {
	t.Setenv("TUNEBRAWL_ELO_K_FACTOR", "not-a-number")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 32.0, config.Elo.KFactor, "unparsable overrides are ignored")
}

func TestLoadInvalidFinalConfig(t *testing.T) {
	t.Setenv("TUNEBRAWL_ELO_MIN_RATING", "5000")

	_, err := Load("")
	assert.Error(t, err)
}
