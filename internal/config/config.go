// Package config loads docquery configuration from a TOML file merged
// with environment variables. The file supplies tuning defaults; the
// environment supplies secrets and deployment overrides.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// Mode is "development" or "production". Production suppresses
	// internal error detail in responses.
	Mode string `toml:"mode"`
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	// BearerToken is the shared token required on /api/v1 routes.
	BearerToken string `toml:"bearer_token"`
}

// AIConfig selects the embedding and generation providers. Both
// default to Gemini; either can be switched to an OpenAI-compatible
// endpoint independently.
type AIConfig struct {
	EmbeddingProvider  string `toml:"embedding_provider"`
	GenerationProvider string `toml:"generation_provider"`
}

// GeminiConfig configures the Gemini embedding and generation clients.
type GeminiConfig struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	EmbeddingModel  string `toml:"embedding_model"`
	GenerationModel string `toml:"generation_model"`
	TimeoutSecs     int    `toml:"timeout_secs"`
}

// OpenAIConfig configures the OpenAI-compatible clients, used when an
// AI provider is set to "openai".
type OpenAIConfig struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	EmbeddingModel  string `toml:"embedding_model"`
	GenerationModel string `toml:"generation_model"`
	TimeoutSecs     int    `toml:"timeout_secs"`
}

// PineconeConfig configures the vector index client.
type PineconeConfig struct {
	APIKey           string `toml:"api_key"`
	IndexName        string `toml:"index_name"`
	Cloud            string `toml:"cloud"`
	Region           string `toml:"region"`
	TimeoutSecs      int    `toml:"timeout_secs"`
	ReadyTimeoutSecs int    `toml:"ready_timeout_secs"`
}

// LLMConfig tunes answer generation.
type LLMConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	TopP        float64 `toml:"top_p"`
	TopK        int     `toml:"top_k"`
}

// PipelineConfig tunes the retrieval pipeline.
type PipelineConfig struct {
	ChunkSize           int       `toml:"chunk_size"`
	ChunkOverlap        int       `toml:"chunk_overlap"`
	EmbeddingDimensions int       `toml:"embedding_dimensions"`
	EmbedBatchSize      int       `toml:"embed_batch_size"`
	BatchDelayMs        int       `toml:"batch_delay_ms"`
	RetryDelayMs        int       `toml:"retry_delay_ms"`
	QuestionDelayMs     int       `toml:"question_delay_ms"`
	SimilarityThreshold float64   `toml:"similarity_threshold"`
	TopK                int       `toml:"top_k"`
	MaxQuestions        int       `toml:"max_questions"`
	MaxQuestionLength   int       `toml:"max_question_length"`
	LLM                 LLMConfig `toml:"llm"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// DataDir holds the request-log database. Empty means
	// ~/.docquery/data.
	DataDir string `toml:"data_dir"`
}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	AI       AIConfig       `toml:"ai"`
	Gemini   GeminiConfig   `toml:"gemini"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Pinecone PineconeConfig `toml:"pinecone"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Storage  StorageConfig  `toml:"storage"`
	Verbose  bool           `toml:"verbose"`
}

// Load reads configuration from the given path. A missing file is not
// an error; defaults plus environment overrides are returned instead.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if uerr := toml.Unmarshal(data, cfg); uerr != nil {
				return nil, domain.Wrap(domain.CodeConfiguration, uerr, "parsing config file %s", path)
			}
		case errors.Is(err, os.ErrNotExist):
			// Fall through to defaults.
		default:
			return nil, domain.Wrap(domain.CodeConfiguration, err, "reading config file %s", path)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks hard constraints. Provider keys are only required in
// production mode so local development can run against stubs.
func (c *Config) Validate() error {
	if c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return domain.E(domain.CodeConfiguration,
			"chunk overlap (%d) must be smaller than chunk size (%d)",
			c.Pipeline.ChunkOverlap, c.Pipeline.ChunkSize)
	}
	if c.Pipeline.EmbeddingDimensions <= 0 {
		return domain.E(domain.CodeConfiguration, "embedding dimensions must be positive")
	}
	for _, p := range []string{c.AI.EmbeddingProvider, c.AI.GenerationProvider} {
		if p != "gemini" && p != "openai" {
			return domain.E(domain.CodeConfiguration, "unsupported AI provider %q", p)
		}
	}
	if c.Server.Mode == "production" {
		if (c.AI.EmbeddingProvider == "gemini" || c.AI.GenerationProvider == "gemini") && c.Gemini.APIKey == "" {
			return domain.E(domain.CodeConfiguration, "GEMINI_API_KEY is required in production")
		}
		if (c.AI.EmbeddingProvider == "openai" || c.AI.GenerationProvider == "openai") && c.OpenAI.APIKey == "" {
			return domain.E(domain.CodeConfiguration, "OPENAI_API_KEY is required in production")
		}
		if c.Pinecone.APIKey == "" {
			return domain.E(domain.CodeConfiguration, "PINECONE_API_KEY is required in production")
		}
		if c.Auth.BearerToken == "" {
			return domain.E(domain.CodeConfiguration, "DOCQUERY_BEARER_TOKEN is required in production")
		}
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Mode: "development",
		},
		AI: AIConfig{
			EmbeddingProvider:  "gemini",
			GenerationProvider: "gemini",
		},
		Gemini: GeminiConfig{
			EmbeddingModel:  "embedding-001",
			GenerationModel: "gemini-2.0-flash",
			TimeoutSecs:     60,
		},
		Pinecone: PineconeConfig{
			IndexName:        "document-embeddings",
			Cloud:            "aws",
			Region:           "us-east-1",
			TimeoutSecs:      30,
			ReadyTimeoutSecs: 60,
		},
		Pipeline: PipelineConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			EmbeddingDimensions: 768,
			EmbedBatchSize:      10,
			BatchDelayMs:        100,
			RetryDelayMs:        50,
			QuestionDelayMs:     50,
			SimilarityThreshold: 0.6,
			TopK:                5,
			MaxQuestions:        50,
			MaxQuestionLength:   1000,
			LLM: LLMConfig{
				Temperature: 0.1,
				MaxTokens:   2000,
				TopP:        0.95,
				TopK:        7,
			},
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "development"
	}
	if cfg.Pipeline.TopK <= 0 {
		cfg.Pipeline.TopK = 5
	}
	if cfg.Pipeline.EmbedBatchSize <= 0 {
		cfg.Pipeline.EmbedBatchSize = 10
	}
	if cfg.AI.EmbeddingProvider == "" {
		cfg.AI.EmbeddingProvider = "gemini"
	}
	if cfg.AI.GenerationProvider == "" {
		cfg.AI.GenerationProvider = "gemini"
	}
}

// applyEnv layers environment variables over file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCQUERY_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DOCQUERY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DOCQUERY_ENV"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("DOCQUERY_BEARER_TOKEN"); v != "" {
		cfg.Auth.BearerToken = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("DOCQUERY_EMBEDDING_PROVIDER"); v != "" {
		cfg.AI.EmbeddingProvider = v
	}
	if v := os.Getenv("DOCQUERY_GENERATION_PROVIDER"); v != "" {
		cfg.AI.GenerationProvider = v
	}
	if v := os.Getenv("PINECONE_API_KEY"); v != "" {
		cfg.Pinecone.APIKey = v
	}
	if v := os.Getenv("PINECONE_INDEX_NAME"); v != "" {
		cfg.Pinecone.IndexName = v
	}
	if v := os.Getenv("DOCQUERY_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DOCQUERY_VERBOSE"); v == "1" || v == "true" {
		cfg.Verbose = true
	}
}
