package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Host", cfg.Host, "0.0.0.0"},
		{"Port", cfg.Port, 5001},
		{"LogLevel", cfg.LogLevel, "info"},
		{"ModelID", cfg.ModelID, "intfloat/multilingual-e5-large"},
		{"Device", cfg.Device, "cpu"},
		{"EmbeddingProvider", cfg.EmbeddingProvider, "openai"},
		{"EmbeddingBaseURL", cfg.EmbeddingBaseURL, "http://127.0.0.1:8080/v1"},
		{"EmbeddingDim", cfg.EmbeddingDim, 1024},
		{"RedisAddr", cfg.RedisAddr, ""},
		{"CacheTTL", cfg.CacheTTL, 86400},
		{"NATSURL", cfg.NATSURL, ""},
		{"NATSSubject", cfg.NATSSubject, "embeddings.embed"},
		{"Addr", cfg.Addr(), "0.0.0.0:5001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("EMBEDDING_DIM", "8")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.EmbeddingProvider != "hash" {
		t.Errorf("expected provider 'hash', got %s", cfg.EmbeddingProvider)
	}
	if cfg.EmbeddingDim != 8 {
		t.Errorf("expected dim 8, got %d", cfg.EmbeddingDim)
	}
}

func TestLoadInvalidValueKeepsOtherDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("MODEL_ID", "BAAI/bge-m3")

	cfg := Load()

	if cfg.ModelID != "BAAI/bge-m3" {
		t.Errorf("expected model 'BAAI/bge-m3', got %s", cfg.ModelID)
	}
	if cfg.Device != "cpu" {
		t.Errorf("expected device 'cpu', got %s", cfg.Device)
	}
}
