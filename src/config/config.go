package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
)

const appName = "askchat"

// Config holds client configuration. BaseURL is required; a missing value is
// fatal at startup since nothing can be requested without it.
type Config struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	APIKey  string `json:"api_key"`

	// TimeoutSeconds bounds non-streaming requests.
	TimeoutSeconds int `json:"timeout_seconds" validate:"gte=0"`
	// IdleTimeoutSeconds bounds the silence between stream chunks.
	IdleTimeoutSeconds int `json:"idle_timeout_seconds" validate:"gte=0"`

	// HistoryDBPath overrides the local history cache location. Empty means
	// the XDG default; "-" disables local caching.
	HistoryDBPath string `json:"history_db_path"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the built-in configuration, without a base URL.
func Default() *Config {
	return &Config{
		TimeoutSeconds:     30,
		IdleTimeoutSeconds: 60,
		LogLevel:           "warn",
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// DefaultHistoryDBPath returns the default local history cache location,
// following the XDG base directory spec for state data.
func DefaultHistoryDBPath() string {
	return filepath.Join(xdg.StateHome, appName, "history.db")
}

// Load reads configuration from path (DefaultPath when empty), applies
// environment overrides, and validates the result. A missing file is fine;
// an unreadable or invalid one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a configuration against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid config: field %s failed on '%s' (value %v)", e.Field(), e.Tag(), e.Value())
		}
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASKCHAT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ASKCHAT_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ASKCHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
