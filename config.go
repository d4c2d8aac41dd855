package scholar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the research assistant.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.scholar/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the database name used when DBPath is empty.
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir selects where the database lives when DBPath is unset:
	// "home" (default) uses ~/.scholar/, "local" the working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// Retrieval weights for RRF
	WeightVector float64 `json:"weight_vector" yaml:"weight_vector"`
	WeightFTS    float64 `json:"weight_fts" yaml:"weight_fts"`

	// Chunking, in characters
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// SummaryChunks is how many leading chunks the summarize task reads.
	SummaryChunks int `json:"summary_chunks" yaml:"summary_chunks"`

	// Reasoning
	MaxRounds           int     `json:"max_rounds" yaml:"max_rounds"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// SessionCacheSize bounds the in-memory session cache.
	SessionCacheSize int `json:"session_cache_size" yaml:"session_cache_size"`

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // groq, ollama, lmstudio, openrouter, openai, xai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config that chats through Groq and embeds with a
// local Ollama model. The database is stored in ~/.scholar/scholar.db.
func DefaultConfig() Config {
	return Config{
		DBName:     "scholar",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "groq",
			Model:    "llama3-8b-8192",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "all-minilm",
			BaseURL:  "http://localhost:11434",
		},
		WeightVector:        1.0,
		WeightFTS:           1.0,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		SummaryChunks:       10,
		MaxRounds:           3,
		ConfidenceThreshold: 0.7,
		SessionCacheSize:    128,
		EmbeddingDim:        384,
	}
}

// LoadConfig reads a configuration file on top of DefaultConfig. Files
// ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SCHOLAR_* environment variables, then fills
// missing API keys from the provider's well-known variable (GROQ_API_KEY,
// OPENAI_API_KEY).
func (c *Config) ApplyEnv() {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"SCHOLAR_DB_PATH", &c.DBPath},
		{"SCHOLAR_CHAT_PROVIDER", &c.Chat.Provider},
		{"SCHOLAR_CHAT_MODEL", &c.Chat.Model},
		{"SCHOLAR_CHAT_BASE_URL", &c.Chat.BaseURL},
		{"SCHOLAR_CHAT_API_KEY", &c.Chat.APIKey},
		{"SCHOLAR_EMBED_PROVIDER", &c.Embedding.Provider},
		{"SCHOLAR_EMBED_MODEL", &c.Embedding.Model},
		{"SCHOLAR_EMBED_BASE_URL", &c.Embedding.BaseURL},
		{"SCHOLAR_EMBED_API_KEY", &c.Embedding.APIKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.name); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("SCHOLAR_EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.EmbeddingDim = n
		}
	}

	fillAPIKey(&c.Chat)
	fillAPIKey(&c.Embedding)
}

func fillAPIKey(lc *LLMConfig) {
	if lc.APIKey != "" {
		return
	}
	switch lc.Provider {
	case "openai":
		lc.APIKey = os.Getenv("OPENAI_API_KEY")
	case "groq":
		lc.APIKey = os.Getenv("GROQ_API_KEY")
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch {
	case c.Chat.Provider == "":
		return fmt.Errorf("%w: chat provider is required", ErrInvalidConfig)
	case c.Embedding.Provider == "":
		return fmt.Errorf("%w: embedding provider is required", ErrInvalidConfig)
	case c.EmbeddingDim <= 0:
		return fmt.Errorf("%w: embedding_dim must be positive", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size)", ErrInvalidConfig)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence_threshold must be in [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "scholar"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".scholar", name+".db")
	}
}
