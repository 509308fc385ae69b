// Package config provides configuration loading and structs for the Curalog server.
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
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Intake    IntakeConfig    `yaml:"intake"`
	Identity  IdentityConfig  `yaml:"identity"`
	OCR       OCRConfig       `yaml:"ocr"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Worker    WorkerConfig    `yaml:"worker"`
	Stores    StoresConfig    `yaml:"stores"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Clinical  ClinicalConfig  `yaml:"clinical"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IntakeConfig holds document intake settings: the watched drop directory,
// the staging directory for transient copies, accepted extensions, and the
// size ceilings for synchronous and background submissions.
type IntakeConfig struct {
	Directory             string   `yaml:"directory"`
	StagingDir            string   `yaml:"staging_dir"`
	Extensions            []string `yaml:"extensions"`
	DebounceMs            int      `yaml:"debounce_ms"`
	MaxSyncFileSize       int64    `yaml:"max_sync_file_size"`
	MaxBackgroundFileSize int64    `yaml:"max_background_file_size"`
}

// IdentityConfig holds the pseudonymization salts. Salt derives patient IDs
// from caller identifiers; StoreSalts hold one extra salt per storage backend
// so keys are never comparable across stores.
type IdentityConfig struct {
	Salt       string            `yaml:"salt"`
	StoreSalts map[string]string `yaml:"store_salts"`
}

// OCRConfig holds settings for the remote optical recognition service.
type OCRConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EmbeddingConfig holds settings for the OpenAI-compatible embedding provider.
type EmbeddingConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	CacheSize         int     `yaml:"cache_size"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ChunkingConfig holds text chunking settings.
type ChunkingConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
}

// WorkerConfig holds background worker pool settings.
type WorkerConfig struct {
	PoolSize       int `yaml:"pool_size"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// StoresConfig holds paths for the four storage backends and the chunk index.
type StoresConfig struct {
	DatabasePath    string `yaml:"database_path"`
	GraphDir        string `yaml:"graph_dir"`
	ProfileDir      string `yaml:"profile_dir"`
	VectorIndexPath string `yaml:"vector_index_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
}

// RetrievalConfig holds patient retrieval settings.
type RetrievalConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// ClinicalConfig holds the vocabularies the extractor and stores match
// against.
type ClinicalConfig struct {
	BodyParts         []string `yaml:"body_parts"`
	BodyRegions       []string `yaml:"body_regions"`
	ChronicConditions []string `yaml:"chronic_conditions"`
}

// Load reads and parses the config file at path, expands paths, applies
// defaults, and overlays secret values from the environment.
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
	applyEnvOverrides(&cfg)

	configDir := filepath.Dir(path)
	cfg.Intake.Directory = expandPath(cfg.Intake.Directory, configDir)
	cfg.Intake.StagingDir = expandPath(cfg.Intake.StagingDir, configDir)
	cfg.Stores.DatabasePath = expandPath(cfg.Stores.DatabasePath, configDir)
	cfg.Stores.GraphDir = expandPath(cfg.Stores.GraphDir, configDir)
	cfg.Stores.ProfileDir = expandPath(cfg.Stores.ProfileDir, configDir)
	cfg.Stores.VectorIndexPath = expandPath(cfg.Stores.VectorIndexPath, configDir)
	cfg.Stores.BleveIndexPath = expandPath(cfg.Stores.BleveIndexPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
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

// applyEnvOverrides overlays secrets from the environment so they can stay
// out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CURALOG_IDENTITY_SALT"); v != "" {
		cfg.Identity.Salt = v
	}
	if v := os.Getenv("CURALOG_OCR_TOKEN"); v != "" {
		cfg.OCR.APIToken = v
	}
	if v := os.Getenv("CURALOG_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
