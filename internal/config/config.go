package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration. Defaults match the single-model deployment.
type Config struct {
	// Server
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     int    `env:"PORT" envDefault:"5001"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Model
	ModelID           string `env:"MODEL_ID" envDefault:"intfloat/multilingual-e5-large"`
	Device            string `env:"DEVICE" envDefault:"cpu"`
	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"openai"` // "openai", "gemini" or "hash"
	EmbeddingBaseURL  string `env:"EMBEDDING_BASE_URL" envDefault:"http://127.0.0.1:8080/v1"`
	EmbeddingAPIKey   string `env:"EMBEDDING_API_KEY"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	EmbeddingDim      int    `env:"EMBEDDING_DIM" envDefault:"1024"` // only used by the hash provider

	// Cache
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"86400"` // seconds

	// NATS request/reply transport, disabled when NATSURL is empty
	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"embeddings.embed"`
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
