package cache

import (
	"context"
	"log/slog"
	"time"

	"embed-service/internal/embeddings"
)

// Observer receives cache outcomes: "hit", "miss" or "error".
type Observer interface {
	IncrementCacheResult(result string)
}

// Embedder wraps an embeddings.Embedder with a read-through cache.
// Cache failures are logged and never surface to the caller.
type Embedder struct {
	next    embeddings.Embedder
	cache   Cache
	ns      string
	ttl     time.Duration
	log     *slog.Logger
	obs     Observer
}

// NewEmbedder caches next's vectors under namespace (see Namespace).
func NewEmbedder(next embeddings.Embedder, c Cache, namespace string, ttl time.Duration, log *slog.Logger, obs Observer) *Embedder {
	return &Embedder{next: next, cache: c, ns: namespace, ttl: ttl, log: log, obs: obs}
}

func (e *Embedder) Name() string { return e.next.Name() }

func (e *Embedder) Embed(ctx context.Context, text string) (embeddings.Vector, error) {
	key := Key(e.ns, text)

	cached, err := e.cache.GetEmbedding(ctx, key)
	switch {
	case err != nil:
		e.observe("error")
		e.log.Warn("embedding cache read failed", "err", err)
	case cached != nil:
		e.observe("hit")
		return cached, nil
	default:
		e.observe("miss")
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetEmbedding(ctx, key, vec, e.ttl); err != nil {
		e.log.Warn("failed to cache embedding", "err", err)
	}
	return vec, nil
}

func (e *Embedder) observe(result string) {
	if e.obs != nil {
		e.obs.IncrementCacheResult(result)
	}
}
