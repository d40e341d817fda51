// Package config provides configuration management for the tunebrawl
// application. It handles Spotify API credentials, Elo engine settings,
// storage, server and UI preferences with validation, YAML file loading and
// environment variable support.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Error types for configuration validation
var (
	ErrInvalidSpotifyConfig = errors.New("invalid Spotify configuration")
	ErrInvalidEloConfig     = errors.New("invalid Elo configuration")
	ErrInvalidStorageConfig = errors.New("invalid storage configuration")
	ErrInvalidServerConfig  = errors.New("invalid server configuration")
	ErrInvalidUIConfig      = errors.New("invalid UI configuration")
	ErrConfigNotFound       = errors.New("configuration file not found")
	ErrConfigParseError     = errors.New("failed to parse configuration file")
)

// Config is the top-level application configuration
type Config struct {
	Spotify SpotifyConfig `yaml:"spotify" json:"spotify"`
	Elo     EloConfig     `yaml:"elo" json:"elo"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	UI      UIConfig      `yaml:"ui" json:"ui"`
	LogLevel string       `yaml:"log_level" json:"log_level"` // debug, info, warn or error
}

// SpotifyConfig holds Web API credentials and fetch behavior
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`         // Application client ID (required for the Spotify source)
	ClientSecret string `yaml:"client_secret" json:"client_secret"` // Application client secret (required for the Spotify source)
	Market       string `yaml:"market" json:"market"`               // Market code for track relinking (default US)
	PageSize     int    `yaml:"page_size" json:"page_size"`         // Tracks fetched per page (max 100)
}

// EloConfig holds settings for rating calculations
type EloConfig struct {
	InitialRating float64 `yaml:"initial_rating" json:"initial_rating"` // Starting rating for new songs (default 1000)
	KFactor       float64 `yaml:"k_factor" json:"k_factor"`             // Rating change sensitivity (default 32)
	MinRating     float64 `yaml:"min_rating" json:"min_rating"`         // Minimum allowed rating (default 0)
	MaxRating     float64 `yaml:"max_rating" json:"max_rating"`         // Maximum allowed rating (default 3000)
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"` // SQLite file path (default tunebrawl.db)
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`                         // Listen address (default :8080)
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`         // Request read deadline
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`       // Response write deadline
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"` // Graceful shutdown grace period
}

// UIConfig holds terminal interface preferences
type UIConfig struct {
	Shuffle      bool `yaml:"shuffle" json:"shuffle"`             // Shuffle songs before grouping
	ShowProgress bool `yaml:"show_progress" json:"show_progress"` // Display matchup progress
	ShowRatings  bool `yaml:"show_ratings" json:"show_ratings"`   // Display ratings during comparisons
}

// Default returns a configuration with sensible defaults
func Default() Config {
	return Config{
		Spotify:  DefaultSpotifyConfig(),
		Elo:      DefaultEloConfig(),
		Storage:  DefaultStorageConfig(),
		Server:   DefaultServerConfig(),
		UI:       DefaultUIConfig(),
		LogLevel: "info",
	}
}

// DefaultSpotifyConfig returns Spotify fetch defaults. Credentials have no
// default and come from the file or the environment.
func DefaultSpotifyConfig() SpotifyConfig {
	return SpotifyConfig{
		Market:   "US",
		PageSize: 100,
	}
}

// DefaultEloConfig returns rating calculation defaults
func DefaultEloConfig() EloConfig {
	return EloConfig{
		InitialRating: 1000.0,
		KFactor:       32.0,
		MinRating:     0.0,
		MaxRating:     3000.0,
	}
}

// DefaultStorageConfig returns persistence defaults
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DatabasePath: "tunebrawl.db",
	}
}

// DefaultServerConfig returns HTTP server defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// DefaultUIConfig returns TUI defaults
func DefaultUIConfig() UIConfig {
	return UIConfig{
		Shuffle:      false,
		ShowProgress: true,
		ShowRatings:  false,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Spotify.Validate(); err != nil {
		return fmt.Errorf("Spotify config validation failed: %w", err)
	}

	if err := c.Elo.Validate(); err != nil {
		return fmt.Errorf("Elo config validation failed: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config validation failed: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level '%s' must be one of: debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// Validate checks that Spotify configuration is valid. Credentials are not
// required here; the Spotify source checks for them when it is actually used.
func (s *SpotifyConfig) Validate() error {
	if s.PageSize <= 0 || s.PageSize > 100 {
		return fmt.Errorf("%w: page_size %d must be between 1 and 100", ErrInvalidSpotifyConfig, s.PageSize)
	}

	if len(s.Market) != 2 {
		return fmt.Errorf("%w: market '%s' must be a two-letter country code", ErrInvalidSpotifyConfig, s.Market)
	}

	// One credential without the other is always a mistake
	if (s.ClientID == "") != (s.ClientSecret == "") {
		return fmt.Errorf("%w: client_id and client_secret must be set together", ErrInvalidSpotifyConfig)
	}

	return nil
}

// HasCredentials reports whether both Spotify credentials are present
func (s *SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// Validate checks that Elo configuration is valid
func (e *EloConfig) Validate() error {
	if e.KFactor <= 0 {
		return fmt.Errorf("%w: k_factor must be positive, got %.2f", ErrInvalidEloConfig, e.KFactor)
	}

	if e.KFactor > 100 {
		return fmt.Errorf("%w: k_factor %.2f is unusually high (typical range: 10-50)", ErrInvalidEloConfig, e.KFactor)
	}

	if e.MinRating >= e.MaxRating {
		return fmt.Errorf("%w: min_rating (%.2f) must be less than max_rating (%.2f)", ErrInvalidEloConfig, e.MinRating, e.MaxRating)
	}

	if e.InitialRating < e.MinRating || e.InitialRating > e.MaxRating {
		return fmt.Errorf("%w: initial_rating (%.2f) must be between min_rating (%.2f) and max_rating (%.2f)",
			ErrInvalidEloConfig, e.InitialRating, e.MinRating, e.MaxRating)
	}

	return nil
}

// Validate checks that storage configuration is valid
func (s *StorageConfig) Validate() error {
	if strings.TrimSpace(s.DatabasePath) == "" {
		return fmt.Errorf("%w: database_path is required", ErrInvalidStorageConfig)
	}
	return nil
}

// Validate checks that server configuration is valid
func (s *ServerConfig) Validate() error {
	if strings.TrimSpace(s.Addr) == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidServerConfig)
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidServerConfig)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseError, filename, err)
	}

	config = mergeWithDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filename, err)
	}

	return &config, nil
}

// Load builds the effective configuration: defaults, then the YAML file when
// it exists, then .env, then environment variable overrides. An empty
// filename skips the file layer.
func Load(filename string) (*Config, error) {
	config := Default()

	if filename != "" {
		fileConfig, err := LoadFromFile(filename)
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		if err == nil {
			config = *fileConfig
		}
	}

	// A .env in the working directory feeds the override pass below. It never
	// overwrites variables already exported in the real environment.
	_ = godotenv.Load()

	applyEnvironmentOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid final configuration: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// mergeWithDefaults fills in missing values with defaults
func mergeWithDefaults(config Config) Config {
	defaults := Default()

	if config.Spotify.Market == "" {
		config.Spotify.Market = defaults.Spotify.Market
	}
	if config.Spotify.PageSize == 0 {
		config.Spotify.PageSize = defaults.Spotify.PageSize
	}

	if config.Elo.InitialRating == 0 {
		config.Elo.InitialRating = defaults.Elo.InitialRating
	}
	if config.Elo.KFactor == 0 {
		config.Elo.KFactor = defaults.Elo.KFactor
	}
	if config.Elo.MaxRating == 0 {
		config.Elo.MaxRating = defaults.Elo.MaxRating
	}

	if config.Storage.DatabasePath == "" {
		config.Storage.DatabasePath = defaults.Storage.DatabasePath
	}

	if config.Server.Addr == "" {
		config.Server.Addr = defaults.Server.Addr
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	return config
}

// applyEnvironmentOverrides applies environment variable overrides
func applyEnvironmentOverrides(config *Config) {
	// Spotify configuration overrides
	if val := os.Getenv("TUNEBRAWL_SPOTIFY_CLIENT_ID"); val != "" {
		config.Spotify.ClientID = val
	}
	if val := os.Getenv("TUNEBRAWL_SPOTIFY_CLIENT_SECRET"); val != "" {
		config.Spotify.ClientSecret = val
	}
	if val := os.Getenv("TUNEBRAWL_SPOTIFY_MARKET"); val != "" {
		config.Spotify.Market = val
	}
	if val := os.Getenv("TUNEBRAWL_SPOTIFY_PAGE_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Spotify.PageSize = parsed
		}
	}

	// Elo configuration overrides
	if val := os.Getenv("TUNEBRAWL_ELO_INITIAL_RATING"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.Elo.InitialRating = parsed
		}
	}
	if val := os.Getenv("TUNEBRAWL_ELO_K_FACTOR"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.Elo.KFactor = parsed
		}
	}
	if val := os.Getenv("TUNEBRAWL_ELO_MIN_RATING"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.Elo.MinRating = parsed
		}
	}
	if val := os.Getenv("TUNEBRAWL_ELO_MAX_RATING"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.Elo.MaxRating = parsed
		}
	}

	// Storage configuration overrides
	if val := os.Getenv("TUNEBRAWL_DATABASE_PATH"); val != "" {
		config.Storage.DatabasePath = val
	}

	// Server configuration overrides
	if val := os.Getenv("TUNEBRAWL_SERVER_ADDR"); val != "" {
		config.Server.Addr = val
	}
	if val := os.Getenv("TUNEBRAWL_SERVER_READ_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.Server.ReadTimeout = parsed
		}
	}
	if val := os.Getenv("TUNEBRAWL_SERVER_WRITE_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.Server.WriteTimeout = parsed
		}
	}

	// UI configuration overrides
	if val := os.Getenv("TUNEBRAWL_UI_SHUFFLE"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.UI.Shuffle = parsed
		}
	}
	if val := os.Getenv("TUNEBRAWL_UI_SHOW_PROGRESS"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.UI.ShowProgress = parsed
		}
	}
	if val := os.Getenv("TUNEBRAWL_UI_SHOW_RATINGS"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.UI.ShowRatings = parsed
		}
	}

	if val := os.Getenv("TUNEBRAWL_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
}
