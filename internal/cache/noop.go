package cache

import (
	"context"
	"time"

	"embed-service/internal/embeddings"
)

// NoOpCache is a cache implementation that does nothing.
// Used when Redis is not configured or unreachable: every lookup is a miss.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetEmbedding(ctx context.Context, key string) (embeddings.Vector, error) {
	return nil, nil
}

func (c *NoOpCache) SetEmbedding(ctx context.Context, key string, vec embeddings.Vector, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
