package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"embed-service/internal/cache"
	"embed-service/internal/config"
	"embed-service/internal/embeddings"
	"embed-service/internal/logger"
	"embed-service/internal/metrics"
	"embed-service/internal/model"
)

// Deps bundles the runtime dependencies of the embedder service.
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Model   *model.Handle
	Cache   cache.Cache
	Metrics metrics.Metrics
	NATS    *nats.Conn // nil when NATS_URL is unset
}

// Build loads env, config, and shared components. The model is not loaded
// here; call LoadModel before serving.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	m := metrics.NewMetrics(cfg.ModelID, cfg.Device)

	nc, err := buildNATS(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize NATS: %w", err)
	}

	return Deps{
		Config:  cfg,
		Log:     log,
		Model:   model.NewHandle(log, cfg.ModelID, cfg.Device),
		Cache:   buildCache(cfg, log),
		Metrics: m,
		NATS:    nc,
	}, nil
}

// LoadModel loads the configured model into deps.Model. The warm-up runs
// against the raw backend; the cache is layered on only after it succeeds.
func (d Deps) LoadModel(ctx context.Context) error {
	if err := d.Model.Load(ctx, d.Loader(), d.cacheLayer); err != nil {
		return err
	}
	d.Metrics.SetModelLoaded(true)
	return nil
}

// Loader returns the LoadFunc for the configured provider.
func (d Deps) Loader() model.LoadFunc {
	return func(ctx context.Context, modelID, device string) (embeddings.Embedder, error) {
		emb, err := buildEmbedder(ctx, d.Config, modelID)
		if err != nil {
			return nil, err
		}
		d.Log.Info("using embedder", "provider", emb.Name(), "model", modelID, "device", device)
		return emb, nil
	}
}

func (d Deps) cacheLayer(emb embeddings.Embedder, info model.Info) embeddings.Embedder {
	ttl := time.Duration(d.Config.CacheTTL) * time.Second
	ns := cache.Namespace(info.Backend, info.ModelID, info.Dimension)
	return cache.NewEmbedder(emb, d.Cache, ns, ttl, d.Log, d.Metrics)
}

// Close releases the cache and NATS connections.
func (d Deps) Close() {
	if d.NATS != nil {
		if err := d.NATS.Drain(); err != nil {
			d.Log.Warn("failed to drain NATS connection", "err", err)
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Log.Warn("failed to close cache", "err", err)
		}
	}
}

func buildEmbedder(ctx context.Context, cfg config.Config, modelID string) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		return embeddings.NewOpenAIEmbedder(embeddings.OpenAIOptions{
			BaseURL: cfg.EmbeddingBaseURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Model:   modelID,
		})
	case "gemini":
		return embeddings.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, modelID)
	case "hash":
		return embeddings.NewHashEmbedder(cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER: %s (valid options: openai, gemini, hash)", cfg.EmbeddingProvider)
	}
}

// buildCache falls back to a no-op cache when Redis is unset or unreachable.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info("embedding cache disabled")
		return cache.NewNoOpCache()
	}
	rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, embedding cache disabled", "addr", cfg.RedisAddr, "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis embedding cache", "addr", cfg.RedisAddr)
	return rc
}

func buildNATS(cfg config.Config, log *slog.Logger) (*nats.Conn, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("embedder"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("connected to NATS", "url", cfg.NATSURL)
	return nc, nil
}
