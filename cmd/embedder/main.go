package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"embed-service/internal/app"
	"embed-service/internal/bus"
	"embed-service/internal/embeddings"
	"embed-service/internal/httputil"
	"embed-service/internal/metrics"
	"embed-service/internal/model"
)

type embedRequest struct {
	Text *string `json:"text" validate:"required"`
}

type embedResponse struct {
	Embedding embeddings.Vector `json:"embedding"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The model is loaded before the listener opens; a failure is fatal.
	if err := deps.LoadModel(ctx); err != nil {
		deps.Log.Error("failed to load embedding model", "err", err)
		deps.Close()
		os.Exit(1)
	}
	info, _ := deps.Model.Info()

	srv := &http.Server{
		Addr:              deps.Config.Addr(),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("embedder listening", "addr", srv.Addr, "backend", info.Backend, "dimension", info.Dimension)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if deps.NATS != nil {
		responder := bus.NewResponder(deps.Log, deps.NATS, deps.Config.NATSSubject, deps.Model, deps.Metrics)
		g.Go(func() error {
			return responder.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		deps.Log.Error("embedder stopped", "err", err)
		deps.Close()
		os.Exit(1)
	}
	deps.Log.Info("embedder stopped")
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log, deps.Metrics)

	r.Post("/embed", embedHandler(deps))
	r.Get("/health", healthHandler(deps))
	r.Method(http.MethodGet, "/metrics", metrics.NewHandler(deps.Metrics))
	return r
}

func embedHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Fail(deps.Log, w, "request body must be a JSON object with a 'text' string field", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		start := time.Now()
		vec, err := deps.Model.Encode(r.Context(), *req.Text)
		deps.Metrics.ObserveEmbedDuration("http", time.Since(start).Seconds())
		if err != nil {
			httputil.Fail(deps.Log, w, model.PublicError(err), err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, embedResponse{Embedding: vec})
	}
}

func healthHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Model.State() == model.StateReady {
			httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "healthy", ModelLoaded: true})
			return
		}
		httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading", ModelLoaded: false})
	}
}
