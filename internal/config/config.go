// Package config loads the engine configuration from a JSON file under the
// user's home directory, with environment variables taking precedence over
// file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds provider credentials and engine tuning.
type Config struct {
	TMDBAPIKey   string `json:"tmdb_api_key"`
	OMDBAPIKey   string `json:"omdb_api_key"`
	GeminiAPIKey string `json:"gemini_api_key"`
	Language     string `json:"language"`
	WorkerCount  int    `json:"worker_count"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Language:    "en-US",
		WorkerCount: 10,
	}
}

// Path returns the location of the config file.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".torrentmeta", "config.json"), nil
}

// Load reads the configuration from disk, fills missing fields with
// defaults, and applies environment overrides. A missing file is not an
// error; it yields the defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		defaults := Default()
		if cfg.Language == "" {
			cfg.Language = defaults.Language
		}
		if cfg.WorkerCount <= 0 {
			cfg.WorkerCount = defaults.WorkerCount
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets environment variables override file values.
func (cfg *Config) applyEnv() {
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		cfg.TMDBAPIKey = v
	}
	if v := os.Getenv("OMDB_API_KEY"); v != "" {
		cfg.OMDBAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("TORRENTMETA_LANGUAGE"); v != "" {
		cfg.Language = v
	}
}

// HasProvider reports whether any metadata provider credential is set.
// Without one the resolution engine runs hard-disabled.
func (cfg *Config) HasProvider() bool {
	return cfg.TMDBAPIKey != "" || cfg.OMDBAPIKey != ""
}

// Save writes the configuration to disk, creating the directory if needed.
func (cfg *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
