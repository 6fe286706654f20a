// Package config provides configuration loading and structs for vaultindex.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Vault    VaultConfig    `yaml:"vault"`
	Index    IndexConfig    `yaml:"index"`
	Provider ProviderConfig `yaml:"provider"`
	Search   SearchConfig   `yaml:"search"`
	Update   UpdateConfig   `yaml:"update"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// VaultConfig holds the watched note directories and eligible file extensions.
type VaultConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (v *VaultConfig) RecursiveOrDefault() bool {
	if v.Recursive != nil {
		return *v.Recursive
	}
	return true
}

// IndexConfig holds chunking and snapshot settings.
type IndexConfig struct {
	SnapshotPath     string `yaml:"snapshot_path"`
	MinContentLength int    `yaml:"min_content_length"`
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
}

// ProviderConfig holds embedding provider settings. Kind selects the backend:
// "openai", "ollama", "local" (ONNX), or "mock".
type ProviderConfig struct {
	Kind       string `yaml:"kind"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	CachePath  string `yaml:"cache_path"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	TitleBoost          float64 `yaml:"title_boost"`
	MaxRecencyBoost     float64 `yaml:"max_recency_boost"`
	RecencyWindowDays   float64 `yaml:"recency_window_days"`
}

// UpdateMode controls automatic reindexing behavior.
type UpdateMode string

const (
	// UpdateModeNone disables automatic reindexing; manual reindex and flush still work.
	UpdateModeNone UpdateMode = "none"
	// UpdateModeOnLoad rescans the vault once at startup.
	UpdateModeOnLoad UpdateMode = "onLoad"
	// UpdateModeOnUpdate debounces and reindexes files as they change.
	UpdateModeOnUpdate UpdateMode = "onUpdate"
)

// UpdateConfig holds scheduler settings.
type UpdateConfig struct {
	Mode             UpdateMode `yaml:"mode"`
	FrequencySeconds int        `yaml:"frequency_seconds"`
	RescanBatchSize  int        `yaml:"rescan_batch_size"`
}

// Validate checks fields whose misconfiguration cannot be defaulted away.
func (c *Config) Validate() error {
	switch c.Update.Mode {
	case UpdateModeNone, UpdateModeOnLoad, UpdateModeOnUpdate:
	default:
		return fmt.Errorf("invalid update mode %q (supported: none, onLoad, onUpdate)", c.Update.Mode)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	return nil
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Index.SnapshotPath = expandPath(cfg.Index.SnapshotPath, configDir)
	if cfg.Provider.ModelPath != "" {
		cfg.Provider.ModelPath = expandPath(cfg.Provider.ModelPath, configDir)
	}
	if cfg.Provider.CachePath != "" {
		cfg.Provider.CachePath = expandPath(cfg.Provider.CachePath, configDir)
	}
	for i := range cfg.Vault.Directories {
		cfg.Vault.Directories[i] = expandPath(cfg.Vault.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting vault directory changes.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
