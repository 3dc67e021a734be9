package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	// Provider selects the rewrite backend: "openai" or "ollama".
	Provider string `json:"provider"`

	// Model is the model name passed to the rewrite backend.
	Model string `json:"model"`

	// BaseURL overrides the backend's default API endpoint. For OpenAI this
	// also covers Azure-style deployments; for Ollama it is the server host.
	BaseURL string `json:"base_url,omitempty"`

	// BatchSize is the number of cues sent to the oracle per request.
	BatchSize int `json:"batch_size"`

	// Parallelism is the number of batches rewritten concurrently.
	// 1 means strictly sequential processing.
	Parallelism int `json:"parallelism"`

	// MaxAttempts is the per-batch attempt cap for oracle calls.
	MaxAttempts int `json:"max_attempts"`

	// OracleTimeoutSecs is the per-call timeout for oracle requests.
	OracleTimeoutSecs int `json:"oracle_timeout_secs"`

	// Strict fails the whole file when any batch fails, instead of writing
	// partial output with the failed batches left unmodified.
	Strict bool `json:"strict,omitempty"`

	// InputDir is where bare input filenames are resolved from.
	InputDir string `json:"input_dir"`

	// CorrectedDir receives corrected output files.
	CorrectedDir string `json:"corrected_dir"`

	// RestoredDir receives restored output files.
	RestoredDir string `json:"restored_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:          "openai",
		Model:             "gpt-4o-mini",
		BatchSize:         5,
		Parallelism:       1,
		MaxAttempts:       3,
		OracleTimeoutSecs: 60,
		InputDir:          "srt_file",
		CorrectedDir:      "srt_corrected",
		RestoredDir:       "srt_restored",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.kanasub.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars.
func Merge(base, overlay *Config) *Config {
	result := *overlay

	if result.Provider == "" {
		result.Provider = base.Provider
	}
	if result.Model == "" {
		result.Model = base.Model
	}
	if result.BaseURL == "" {
		result.BaseURL = base.BaseURL
	}
	if result.BatchSize == 0 {
		result.BatchSize = base.BatchSize
	}
	if result.Parallelism == 0 {
		result.Parallelism = base.Parallelism
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = base.MaxAttempts
	}
	if result.OracleTimeoutSecs == 0 {
		result.OracleTimeoutSecs = base.OracleTimeoutSecs
	}
	result.Strict = base.Strict || overlay.Strict
	if result.InputDir == "" {
		result.InputDir = base.InputDir
	}
	if result.CorrectedDir == "" {
		result.CorrectedDir = base.CorrectedDir
	}
	if result.RestoredDir == "" {
		result.RestoredDir = base.RestoredDir
	}

	return &result
}
