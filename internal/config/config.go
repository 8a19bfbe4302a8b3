// Package config provides configuration loading and structs for kotae.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kotae/internal/models"
)

// Provider names accepted for embedding and generation.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Document   DocumentConfig   `yaml:"document"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Memory     MemoryConfig     `yaml:"memory"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
}

// DocumentConfig points at the document that backs every session.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// ChunkingConfig holds chunk size and overlap, in characters.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// OverlapOrDefault returns the configured overlap; defaults to 200 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return 200
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	CacheSize   *int   `yaml:"cache_size"`
	MaxRetries  *int   `yaml:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// CacheSizeOrDefault returns the embedding cache capacity; defaults to 1000 when
// unset. 0 disables the cache.
func (e *EmbeddingConfig) CacheSizeOrDefault() int {
	if e.CacheSize != nil {
		return *e.CacheSize
	}
	return 1000
}

// MaxRetriesOrDefault returns how often a failed embedding call is retried;
// defaults to 3 when unset. 0 disables retries.
func (e *EmbeddingConfig) MaxRetriesOrDefault() int {
	if e.MaxRetries != nil {
		return *e.MaxRetries
	}
	return 3
}

// GenerationConfig selects and tunes the generation provider.
type GenerationConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// TemperatureOrDefault returns the sampling temperature; defaults to 0.7 when unset.
func (g *GenerationConfig) TemperatureOrDefault() float64 {
	if g.Temperature != nil {
		return *g.Temperature
	}
	return 0.7
}

// OpenAIConfig holds hosted provider settings. The API key is never stored in
// the file; it is read from the environment variable named by APIKeyEnv.
type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// OllamaConfig holds local provider settings.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
}

// RetrievalConfig controls how many chunks are handed to the generator.
type RetrievalConfig struct {
	TopK             int     `yaml:"top_k"`
	MinScore         float64 `yaml:"min_score"`
	CondenseQuestion bool    `yaml:"condense_question"`
}

// MemoryConfig bounds the history window sent to the generator. MaxTurns of -1
// disables the bound; the full history is always retained.
type MemoryConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// StorageConfig holds the transcript database path. Empty disables persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the config file at path, expands paths, applies defaults, and validates.
// Returns an error if the file cannot be read or parsed, or the result is invalid.
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
	cfg.Document.Path = expandPath(cfg.Document.Path, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
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

// Validate checks settings that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	overlap := c.Chunking.OverlapOrDefault()
	if c.Chunking.Size <= 0 || overlap < 0 || overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: size=%d overlap=%d", models.ErrInvalidChunkConfig, c.Chunking.Size, overlap)
	}
	for _, p := range []struct{ name, value string }{
		{"embedding.provider", c.Embedding.Provider},
		{"generation.provider", c.Generation.Provider},
	} {
		switch p.value {
		case ProviderOpenAI, ProviderOllama, ProviderMock:
		default:
			return fmt.Errorf("unknown %s %q", p.name, p.value)
		}
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

// NeedsCredential reports whether any configured provider is the hosted one.
func (c *Config) NeedsCredential() bool {
	return c.Embedding.Provider == ProviderOpenAI || c.Generation.Provider == ProviderOpenAI
}

// Credential returns the hosted provider API key from the environment.
// Returns "" and no error when no provider needs it.
func (c *Config) Credential() (string, error) {
	if !c.NeedsCredential() {
		return "", nil
	}
	key := strings.TrimSpace(os.Getenv(c.OpenAI.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", models.ErrMissingCredential, c.OpenAI.APIKeyEnv)
	}
	return key, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" is the home directory. Other relative paths are left relative to the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
