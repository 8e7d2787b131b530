package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for kindred.
type Config struct {
	// Structural similarity between sibling classes
	Similarity SimilarityConfig `koanf:"similarity" toml:"similarity"`

	// Semantic clustering over embeddings
	Cluster ClusterConfig `koanf:"cluster" toml:"cluster"`

	// Embedding provider
	Embedding EmbeddingConfig `koanf:"embedding" toml:"embedding"`

	// Cluster summarization provider
	Summary SummaryConfig `koanf:"summary" toml:"summary"`

	// File inclusion and exclusion patterns
	Include IncludeConfig `koanf:"include" toml:"include"`
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// SimilarityConfig controls the sibling Jaccard comparison.
type SimilarityConfig struct {
	// Threshold both method and attribute similarity must exceed.
	Threshold float64 `koanf:"threshold" toml:"threshold"`
}

// ClusterConfig controls semantic clustering.
type ClusterConfig struct {
	// Threshold is the minimum cosine similarity to the cluster seed.
	Threshold float64 `koanf:"threshold" toml:"threshold"`
	// Bases restricts clustering to classes declaring one of these parents.
	Bases   []string `koanf:"bases" toml:"bases"`
	Workers int      `koanf:"workers" toml:"workers"`
}

// EmbeddingConfig configures the embedding provider and its retry budget.
type EmbeddingConfig struct {
	Provider          string  `koanf:"provider" toml:"provider"`
	Model             string  `koanf:"model" toml:"model"`
	BaseURL           string  `koanf:"base_url" toml:"base_url"`
	APIKey            string  `koanf:"api_key" toml:"api_key"`
	MaxAttempts       int     `koanf:"max_attempts" toml:"max_attempts"`
	RetryDelay        string  `koanf:"retry_delay" toml:"retry_delay"`
	BackoffMultiplier float64 `koanf:"backoff_multiplier" toml:"backoff_multiplier"`
	RequestsPerSecond float64 `koanf:"requests_per_second" toml:"requests_per_second"`
}

// SummaryConfig configures cluster summaries.
type SummaryConfig struct {
	Provider   string `koanf:"provider" toml:"provider"` // openai, anthropic
	Model      string `koanf:"model" toml:"model"`
	BaseURL    string `koanf:"base_url" toml:"base_url"`
	APIKey     string `koanf:"api_key" toml:"api_key"`
	SampleSize int    `koanf:"sample_size" toml:"sample_size"`
	MaxTokens  int    `koanf:"max_tokens" toml:"max_tokens"`
}

// IncludeConfig narrows discovery to matching files.
type IncludeConfig struct {
	Patterns []string `koanf:"patterns" toml:"patterns"` // doublestar globs
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls the embedding cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			Threshold: 0.7,
		},
		Cluster: ClusterConfig{
			Threshold: 0.85,
			Workers:   4,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-ada-002",
			MaxAttempts:       3,
			RetryDelay:        "1s",
			BackoffMultiplier: 1,
		},
		Summary: SummaryConfig{
			Provider:   "openai",
			Model:      "gpt-4o",
			SampleSize: 3,
			MaxTokens:  1024,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				".git",
				".kindred",
				".venv",
				"venv",
				"__pycache__",
				"build",
				"dist",
				"node_modules",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".kindred/cache",
			TTL:     24 * 7,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg, nil
}

var configNames = []string{
	"kindred.toml",
	"kindred.yaml",
	"kindred.yml",
	"kindred.json",
	".kindred.toml",
	".kindred.yaml",
	".kindred.yml",
	".kindred.json",
	"config.toml",
	"config.yaml",
	"config.yml",
	"config.json",
}

// FindConfigFile returns the first config file found in the working
// directory or .kindred, or "" when none exists.
func FindConfigFile() string {
	for _, dir := range []string{".", ".kindred"} {
		for _, name := range configNames {
			if strings.HasPrefix(name, "config.") && dir == "." {
				continue
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the discovered config file or returns defaults.
func LoadOrDefault() *Config {
	if path := FindConfigFile(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// ValidationError reports a configuration value that would make a stage
// produce meaningless output.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Field, e.Value, e.Reason)
}

// ValidateSimilarityThreshold checks θ for the strict sibling comparison.
// Jaccard never exceeds 1, so θ=1 could never report a pair.
func ValidateSimilarityThreshold(theta float64) error {
	if math.IsNaN(theta) || theta < 0 || theta >= 1 {
		return &ValidationError{Field: "similarity.threshold", Value: theta, Reason: "must be in [0, 1)"}
	}
	return nil
}

// ValidateClusterThreshold checks τ for the inclusive cosine comparison.
// τ=0 admits every non-negative pair and collapses the clustering.
func ValidateClusterThreshold(tau float64) error {
	if math.IsNaN(tau) || tau <= 0 || tau > 1 {
		return &ValidationError{Field: "cluster.threshold", Value: tau, Reason: "must be in (0, 1]"}
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := ValidateSimilarityThreshold(c.Similarity.Threshold); err != nil {
		return err
	}
	if err := ValidateClusterThreshold(c.Cluster.Threshold); err != nil {
		return err
	}
	if c.Cluster.Workers < 0 {
		return &ValidationError{Field: "cluster.workers", Value: c.Cluster.Workers, Reason: "must not be negative"}
	}
	if c.Embedding.MaxAttempts < 1 {
		return &ValidationError{Field: "embedding.max_attempts", Value: c.Embedding.MaxAttempts, Reason: "must be at least 1"}
	}
	if _, err := c.Embedding.Delay(); err != nil {
		return &ValidationError{Field: "embedding.retry_delay", Value: c.Embedding.RetryDelay, Reason: err.Error()}
	}
	if c.Embedding.BackoffMultiplier < 1 {
		return &ValidationError{Field: "embedding.backoff_multiplier", Value: c.Embedding.BackoffMultiplier, Reason: "must be at least 1"}
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return &ValidationError{Field: "embedding.requests_per_second", Value: c.Embedding.RequestsPerSecond, Reason: "must not be negative"}
	}
	switch c.Summary.Provider {
	case "openai", "anthropic":
	default:
		return &ValidationError{Field: "summary.provider", Value: c.Summary.Provider, Reason: "must be openai or anthropic"}
	}
	if c.Summary.SampleSize < 1 {
		return &ValidationError{Field: "summary.sample_size", Value: c.Summary.SampleSize, Reason: "must be at least 1"}
	}
	return nil
}

// Delay parses the configured inter-attempt delay.
func (e EmbeddingConfig) Delay() (time.Duration, error) {
	if e.RetryDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.RetryDelay)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration")
	}
	return d, nil
}

// ResolvedAPIKey returns the configured key or OPENAI_API_KEY.
func (e EmbeddingConfig) ResolvedAPIKey() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// ResolvedAPIKey returns the configured key or the provider's environment variable.
func (s SummaryConfig) ResolvedAPIKey() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	if s.Provider == "anthropic" {
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return os.Getenv("OPENAI_API_KEY")
}

// RequireCredential returns a ValidationError when a provider stage would
// run without an API key.
func RequireCredential(field, key string) error {
	if strings.TrimSpace(key) == "" {
		return &ValidationError{Field: field, Value: "", Reason: "credential required"}
	}
	return nil
}

// ShouldExclude checks if a slash-separated relative path is excluded by
// directory name or basename pattern.
func (c *Config) ShouldExclude(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, dir := range c.Exclude.Dirs {
		for _, part := range parts[:len(parts)-1] {
			if part == dir {
				return true
			}
		}
	}

	base := parts[len(parts)-1]
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
