package scholar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "scholar.yaml")
	os.WriteFile(yamlPath, []byte("chat:\n  provider: openai\n  model: gpt-4o-mini\nchunk_size: 500\nchunk_overlap: 50\n"), 0o644)
	jsonPath := filepath.Join(dir, "scholar.json")
	os.WriteFile(jsonPath, []byte(`{"embedding_dim": 768, "max_rounds": 2}`), 0o644)
	badPath := filepath.Join(dir, "bad.yml")
	os.WriteFile(badPath, []byte("chat: [unterminated"), 0o644)

	cfg, err := LoadConfig(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chat.Provider != "openai" || cfg.Chat.Model != "gpt-4o-mini" || cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("yaml config = %+v", cfg)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.SummaryChunks != 10 {
		t.Errorf("defaults lost: %+v", cfg)
	}

	cfg, err = LoadConfig(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EmbeddingDim != 768 || cfg.MaxRounds != 2 || cfg.Chat.Provider != "groq" {
		t.Errorf("json config = %+v", cfg)
	}

	if _, err := LoadConfig(badPath); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad yaml: %v", err)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCHOLAR_CHAT_MODEL", "llama-3.1-8b-instant")
	t.Setenv("SCHOLAR_EMBEDDING_DIM", "1024")
	t.Setenv("SCHOLAR_DB_PATH", "/tmp/s.db")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("SCHOLAR_EMBED_API_KEY", "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Chat.Model != "llama-3.1-8b-instant" || cfg.EmbeddingDim != 1024 || cfg.DBPath != "/tmp/s.db" {
		t.Errorf("overrides = %+v", cfg)
	}
	if cfg.Chat.APIKey != "gsk-test" {
		t.Errorf("chat key = %q, want GROQ_API_KEY fallback", cfg.Chat.APIKey)
	}
	if cfg.Embedding.APIKey != "" {
		t.Errorf("ollama should not pick up a key, got %q", cfg.Embedding.APIKey)
	}
}

func TestApplyEnvKeepsExplicitKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "from-env")

	cfg := DefaultConfig()
	cfg.Chat.APIKey = "from-file"
	cfg.ApplyEnv()

	if cfg.Chat.APIKey != "from-file" {
		t.Errorf("chat key = %q", cfg.Chat.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no chat provider", func(c *Config) { c.Chat.Provider = "" }, true},
		{"no embedding provider", func(c *Config) { c.Embedding.Provider = "" }, true},
		{"zero dimension", func(c *Config) { c.EmbeddingDim = 0 }, true},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, true},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, true},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, true},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{DBPath: "/data/x.db"}
	if got := cfg.resolveDBPath(); got != "/data/x.db" {
		t.Errorf("explicit path = %q", got)
	}

	cfg = Config{DBName: "papers", StorageDir: "local"}
	if got := cfg.resolveDBPath(); got != "papers.db" {
		t.Errorf("local path = %q", got)
	}

	cfg = Config{}
	if got := cfg.resolveDBPath(); filepath.Base(got) != "scholar.db" {
		t.Errorf("default path = %q", got)
	}
}
