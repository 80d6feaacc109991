package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDirName is the directory, relative to the workspace root, that holds
// the index and ledger files.
const DataDirName = ".resumematch"

// Config holds all configuration for resumematch.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Matching   MatchingConfig   `yaml:"matching"`
	Summary    SummaryConfig    `yaml:"summary"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig selects where profiles and vectors live.
type StorageConfig struct {
	Ledger string `yaml:"ledger"` // "bolt" or "sqlite"
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type ClassifierConfig struct {
	Enabled   bool `yaml:"enabled"`
	MinChars  int  `yaml:"min_chars"`
	Threshold int  `yaml:"threshold"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`    // "openai", "ollama", "jina", "gemini", "hash"
	Model     string        `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string        `yaml:"api_key_env"` // empty uses the provider's usual variable
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"` // 0 uses the model's default
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// OracleConfig configures the language model used for scoring, key terms
// and summaries.
type OracleConfig struct {
	Provider          string        `yaml:"provider"` // "openai", "deepseek", "ollama", "gemini", "none"
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	Backoff           time.Duration `yaml:"backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type MatchingConfig struct {
	RecallWidth     int           `yaml:"recall_width"`
	TopN            int           `yaml:"top_n"`
	Concurrency     int           `yaml:"concurrency"`
	SearchOverfetch int           `yaml:"search_overfetch"`
	KeyTerms        bool          `yaml:"key_terms"`
	CacheSize       int           `yaml:"cache_size"` // 0 disables the score cache
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

type SummaryConfig struct {
	UseOracle     bool `yaml:"use_oracle"`
	Words         int  `yaml:"words"`
	FallbackChars int  `yaml:"fallback_chars"`
}

// IngestConfig holds the file patterns used for directory ingestion.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Ledger: "bolt",
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 100,
		},
		Classifier: ClassifierConfig{
			Enabled:   true,
			MinChars:  200,
			Threshold: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-v1",
			BatchSize: 100,
			Timeout:   60 * time.Second,
		},
		Oracle: OracleConfig{
			Provider:          "ollama",
			Model:             "llama3",
			Temperature:       0,
			Timeout:           30 * time.Second,
			MaxRetries:        2,
			Backoff:           time.Second,
			RequestsPerSecond: 4,
			Burst:             4,
		},
		Matching: MatchingConfig{
			RecallWidth:     10,
			TopN:            5,
			Concurrency:     4,
			SearchOverfetch: 3,
			KeyTerms:        true,
			CacheSize:       256,
			CacheTTL:        30 * time.Minute,
		},
		Summary: SummaryConfig{
			UseOracle:     false,
			Words:         150,
			FallbackChars: 1000,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/.git/**", "**/" + DataDirName + "/**"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 || c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking: size (%d) must be greater than overlap (%d) >= 0", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Matching.RecallWidth <= 0 {
		return fmt.Errorf("matching: recall_width must be positive, got %d", c.Matching.RecallWidth)
	}
	if c.Matching.Concurrency <= 0 {
		return fmt.Errorf("matching: concurrency must be positive, got %d", c.Matching.Concurrency)
	}
	if c.Oracle.MaxRetries < 0 {
		return fmt.Errorf("oracle: max_retries must be >= 0, got %d", c.Oracle.MaxRetries)
	}
	switch c.Storage.Ledger {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("storage: unknown ledger backend %q", c.Storage.Ledger)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for resumematch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "resumematch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DataDir returns the data directory under dir.
func DataDir(dir string) string {
	return filepath.Join(dir, DataDirName)
}

// IndexDBPath returns the path to the bbolt file holding vectors (and
// profiles when the bolt ledger is selected).
func IndexDBPath(dir string) string {
	return filepath.Join(DataDir(dir), "index.db")
}

// LedgerPath returns the path to the sqlite ledger.
func LedgerPath(dir string) string {
	return filepath.Join(DataDir(dir), "ledger.sqlite")
}

// EnsureDataDir ensures the data directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}
