package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      string
	OTel      OTelConfig
	OpenAI    OpenAIConfig
	Typesense TypesenseConfig
	Redis     RedisConfig
	Retrieval RetrievalConfig
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	// ChatTimeout and EmbedTimeout bound the per-call deadlines for the two
	// provider capabilities. The orchestrator inherits whichever applies.
	ChatTimeout  time.Duration
	EmbedTimeout time.Duration
}

type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
	// OverfetchLimit is the page size requested from the index. It is
	// intentionally independent from the nearest-neighbor count in the
	// vector clause (Retrieval.TopK); the two diverge upstream and both
	// stay configurable.
	OverfetchLimit int
	SearchTimeout  time.Duration
}

type RedisConfig struct {
	URL string
	// EmbeddingTTL bounds how long cached embeddings live. Zero means no
	// expiry; the cache contract does not require one.
	EmbeddingTTL time.Duration
	// EscalationStream is the Redis stream handoff events are published to.
	// Empty disables publishing.
	EscalationStream string
}

type RetrievalConfig struct {
	// TopK is the number of nearest neighbors requested in the vector
	// clause of each search.
	TopK int
}

// Load loads configuration from environment variables. In development it
// also reads a .env file from the working directory.
func Load() (Config, error) {
	if getEnv("CLAUDIA_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:  getEnv("CLAUDIA_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "claudia"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-large"),
			ChatTimeout:    getEnvDuration("OPENAI_CHAT_TIMEOUT", 60*time.Second),
			EmbedTimeout:   getEnvDuration("OPENAI_EMBED_TIMEOUT", 15*time.Second),
		},
		Typesense: TypesenseConfig{
			URL:            getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:         getEnv("TYPESENSE_API_KEY", ""),
			Collection:     getEnv("TYPESENSE_COLLECTION", "claudia_sections"),
			OverfetchLimit: getEnvInt("TYPESENSE_OVERFETCH_LIMIT", 10),
			SearchTimeout:  getEnvDuration("TYPESENSE_SEARCH_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
			EmbeddingTTL:     getEnvDuration("REDIS_EMBEDDING_TTL", 0),
			EscalationStream: getEnv("REDIS_ESCALATION_STREAM", ""),
		},
		Retrieval: RetrievalConfig{
			TopK: getEnvInt("RETRIEVAL_TOP_K", 3),
		},
	}

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.Typesense.APIKey == "" {
		return Config{}, fmt.Errorf("TYPESENSE_API_KEY is required")
	}
	if cfg.Retrieval.TopK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if cfg.Typesense.OverfetchLimit <= 0 {
		return Config{}, fmt.Errorf("TYPESENSE_OVERFETCH_LIMIT must be positive")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) EscalationEnabled() bool {
	return c.EscalationStream != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
