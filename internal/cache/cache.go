package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"embed-service/internal/embeddings"
)

// Cache stores computed embeddings.
type Cache interface {
	// GetEmbedding retrieves a cached vector by key.
	// Returns nil, nil on a miss.
	GetEmbedding(ctx context.Context, key string) (embeddings.Vector, error)

	// SetEmbedding stores a vector with TTL
	SetEmbedding(ctx context.Context, key string, vec embeddings.Vector, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// Namespace scopes cached vectors to one backend, model and dimension so
// vectors from different providers never mix.
func Namespace(backend, modelID string, dim int) string {
	return fmt.Sprintf("%s:%s:%d", backend, modelID, dim)
}

// Key derives the cache key for text within namespace.
func Key(namespace, text string) string {
	sum := sha256.Sum256([]byte(text))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
