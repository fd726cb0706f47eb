// Package config provides configuration loading and structs for the recall server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds generation-service and cache settings.
type EmbeddingConfig struct {
	// Provider selects the generation service: "ollama", "openai", or "mock".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// ServerURL is the Ollama server or an OpenAI-compatible base URL.
	ServerURL string `yaml:"server_url"`
	// APIKeyEnv names the environment variable holding the API key (openai).
	APIKeyEnv string `yaml:"api_key_env"`
	// Dimensions is the fixed embedding vector length D.
	Dimensions int `yaml:"dimensions"`
	// MaxBatchSize caps texts per generation request.
	MaxBatchSize int `yaml:"max_batch_size"`
	// RequestTimeoutSeconds bounds each generation-service call.
	RequestTimeoutSeconds int         `yaml:"request_timeout_seconds"`
	Cache                 CacheConfig `yaml:"cache"`
}

// RequestTimeout returns the request timeout as a duration.
func (e *EmbeddingConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutSeconds) * time.Second
}

// CacheConfig holds embedding-cache settings.
type CacheConfig struct {
	// Enabled toggles the cache; defaults to true when unset.
	Enabled    *bool `yaml:"enabled"`
	MaxSize    int   `yaml:"max_size"`
	TTLSeconds int   `yaml:"ttl_seconds"`
}

// EnabledOrDefault returns whether caching is on; defaults to true when unset.
func (c *CacheConfig) EnabledOrDefault() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}

// TTL returns the entry time-to-live as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// IngestConfig holds chunking and validation settings.
type IngestConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	MinTextLength int `yaml:"min_text_length"`
}

// SearchConfig holds similarity search settings.
type SearchConfig struct {
	DefaultLimit     int     `yaml:"default_limit"`
	MaxLimit         int     `yaml:"max_limit"`
	DefaultThreshold float64 `yaml:"default_threshold"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
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
		return filepath.Join(home, path)
	}
	return path
}
