package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected Chunking.Size=1000, got %d", cfg.Chunking.Size)
	}
	if cfg.Chunking.Overlap != 100 {
		t.Errorf("expected Chunking.Overlap=100, got %d", cfg.Chunking.Overlap)
	}
	if cfg.Matching.RecallWidth != 10 {
		t.Errorf("expected RecallWidth=10, got %d", cfg.Matching.RecallWidth)
	}
	if cfg.Oracle.MaxRetries != 2 {
		t.Errorf("expected MaxRetries=2, got %d", cfg.Oracle.MaxRetries)
	}
	if cfg.Classifier.Threshold != 50 {
		t.Errorf("expected Threshold=50, got %d", cfg.Classifier.Threshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "resumematch.yaml")

	content := `
chunking:
  size: 400
  overlap: 40
oracle:
  provider: gemini
  timeout: 10s
matching:
  recall_width: 25
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Chunking.Size != 400 || cfg.Chunking.Overlap != 40 {
		t.Errorf("unexpected chunking %+v", cfg.Chunking)
	}
	if cfg.Oracle.Provider != "gemini" {
		t.Errorf("expected provider gemini, got %s", cfg.Oracle.Provider)
	}
	if cfg.Oracle.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Oracle.Timeout)
	}
	if cfg.Matching.RecallWidth != 25 {
		t.Errorf("expected RecallWidth=25, got %d", cfg.Matching.RecallWidth)
	}
	// untouched sections keep defaults
	if cfg.Matching.Concurrency != 4 {
		t.Errorf("expected default Concurrency=4, got %d", cfg.Matching.Concurrency)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "resumematch.yaml")
	if err := os.WriteFile(configPath, []byte("chunking: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.Size != 1000 {
		t.Errorf("expected defaults, got size %d", cfg.Chunking.Size)
	}

	if err := EnsureDataDir(tmpDir); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(DataDir(tmpDir), "config.yaml")
	if err := os.WriteFile(nested, []byte("chunking:\n  size: 300\n  overlap: 30\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFromDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.Size != 300 {
		t.Errorf("expected nested config to load, got size %d", cfg.Chunking.Size)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg := DefaultConfig()
	cfg.Matching.RecallWidth = 42
	cfg.Oracle.Backoff = 3 * time.Second
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Matching.RecallWidth != 42 {
		t.Errorf("expected RecallWidth=42, got %d", loaded.Matching.RecallWidth)
	}
	if loaded.Oracle.Backoff != 3*time.Second {
		t.Errorf("expected Backoff=3s, got %s", loaded.Oracle.Backoff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero recall width", func(c *Config) { c.Matching.RecallWidth = 0 }},
		{"zero concurrency", func(c *Config) { c.Matching.Concurrency = 0 }},
		{"unknown ledger", func(c *Config) { c.Storage.Ledger = "postgres" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	if got := IndexDBPath("/w"); got != filepath.Join("/w", DataDirName, "index.db") {
		t.Errorf("unexpected index path %s", got)
	}
	if got := LedgerPath("/w"); got != filepath.Join("/w", DataDirName, "ledger.sqlite") {
		t.Errorf("unexpected ledger path %s", got)
	}
}
