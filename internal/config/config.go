package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// APIKeyEnv names the single required credential. It is read from the
// process environment at startup; absence is fatal before any route runs.
const APIKeyEnv = "GOOGLE_API_KEY"

// ErrMissingAPIKey is returned when the credential is absent.
var ErrMissingAPIKey = errors.New(APIKeyEnv + " is not set")

// Config represents runtime configuration for the service. Every field has a
// working default; only the API key is mandatory.
type Config struct {
	BasicConfig BasicConfig `json:"basic_config"`
	Model       ModelConfig `json:"model"`
	// Slots optionally overrides per-slot behavior, keyed by slot id.
	Slots map[string]SlotConfig `json:"slots"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	StagingDir    string `json:"staging_dir"`
	// StagedFileTTL and StagedCleanInterval are minutes.
	StagedFileTTL       int   `json:"staged_file_ttl"`
	StagedCleanInterval int   `json:"staged_clean_interval"`
	MaxUploadMB         int64 `json:"max_upload_mb"`
}

type ModelConfig struct {
	Name            string  `json:"name"`
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
	// PollIntervalSeconds is the fixed wait between asset state fetches.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	// MaxPollWaitSeconds bounds readiness polling; zero waits forever.
	MaxPollWaitSeconds int `json:"max_poll_wait_seconds"`
}

type SlotConfig struct {
	// ReleasePolicy: "never", "after-send", or "on-reset".
	ReleasePolicy string `json:"release_policy"`
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing default file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BasicConfig.StagingDir != "" && !filepath.IsAbs(cfg.BasicConfig.StagingDir) {
		cfg.BasicConfig.StagingDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.StagingDir)
	}
	return &cfg, nil
}

// APIKey reads the credential from the environment.
func APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}
