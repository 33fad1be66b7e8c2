// Package config loads autoforge's project configuration from
// .autoforge/config.json plus environment-variable overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"autoforge/internal/logging"
)

// LoggingConfig mirrors logging's own config struct for round-trip persistence.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// ProviderConfig configures one LLM backend in the pool.
type ProviderConfig struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// CacheConfig bounds the model cache's memory budget.
type CacheConfig struct {
	MaxBytes    int64  `json:"max_bytes"`
	CatalogPath string `json:"catalog_path"`
}

// DispatcherConfig bounds concurrent inference admission.
type DispatcherConfig struct {
	MaxConcurrentRequests int    `json:"max_concurrent_requests"`
	AdmissionTimeout      string `json:"admission_timeout"`
}

// AutocorrectConfig tunes the self-healing loop.
type AutocorrectConfig struct {
	MaxIterations            int     `json:"max_iterations"`
	TopKFailuresPerIteration int     `json:"top_k_failures_per_iteration"`
	MinImprovementPercent    float64 `json:"min_improvement_percent"`
}

// LockRegistryConfig controls which files the autocorrection loop may overwrite.
type LockRegistryConfig struct {
	LockedPaths     []string `json:"locked_paths,omitempty"`
	ScanGitModified bool     `json:"scan_git_modified"`
}

// Config holds all autoforge configuration.
type Config struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	Logging      LoggingConfig      `json:"logging"`
	Providers    []ProviderConfig   `json:"providers"`
	Cache        CacheConfig        `json:"cache"`
	Dispatcher   DispatcherConfig   `json:"dispatcher"`
	Autocorrect  AutocorrectConfig  `json:"autocorrect"`
	LockRegistry LockRegistryConfig `json:"lock_registry"`
}

// DefaultConfig returns the built-in configuration baseline.
func DefaultConfig() *Config {
	return &Config{
		Name:    "autoforge",
		Version: "0.1.0",

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},

		Providers: []ProviderConfig{
			{Name: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", Timeout: "120s"},
			{Name: "anthropic", BaseURL: "https://api.anthropic.com/v1", Model: "claude-3-5-sonnet-latest", Timeout: "120s"},
			{Name: "groq", BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile", Timeout: "60s"},
			{Name: "huggingface", BaseURL: "https://api-inference.huggingface.co/models", Timeout: "120s"},
			{Name: "github", BaseURL: "https://models.inference.ai.azure.com", Model: "gpt-4o-mini", Timeout: "120s"},
			{Name: "cloudflare", BaseURL: "https://api.cloudflare.com/client/v4/accounts", Model: "@cf/meta/llama-3.1-8b-instruct", Timeout: "60s"},
			{Name: "gemini", Model: "gemini-1.5-flash", Timeout: "120s"},
		},

		Cache: CacheConfig{
			MaxBytes:    4 << 30, // 4 GiB
			CatalogPath: ".autoforge/model_catalog.json",
		},

		Dispatcher: DispatcherConfig{
			MaxConcurrentRequests: 4,
			AdmissionTimeout:      "30s",
		},

		Autocorrect: AutocorrectConfig{
			MaxIterations:            5,
			TopKFailuresPerIteration: 5,
			MinImprovementPercent:    5.0,
		},

		LockRegistry: LockRegistryConfig{
			ScanGitModified: true,
		},
	}
}

// Load reads configuration from path, falling back to defaults for a missing
// file, then applies environment-variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.ConfigDebug("no config file at %s, using defaults", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file configuration,
// matching the two-tier precedence (env > file > default) of the project
// this layer is adapted from.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AUTOFORGE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
	if v := os.Getenv("AUTOFORGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AUTOFORGE_CACHE_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Cache.MaxBytes = n
		}
	}
	if v := os.Getenv("AUTOFORGE_MAX_CONCURRENT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dispatcher.MaxConcurrentRequests = n
		}
	}
}

// Save writes the configuration to path as indented JSON, using a
// write-temp-then-rename so a crash mid-write never corrupts the file on disk.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// AdmissionTimeoutDuration parses Dispatcher.AdmissionTimeout, defaulting to 30s.
func (c *Config) AdmissionTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Dispatcher.AdmissionTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
