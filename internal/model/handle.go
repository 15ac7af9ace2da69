// Package model owns the loaded embedding model and its lifecycle.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"embed-service/internal/embeddings"
)

// ErrNotLoaded is returned by Encode before a successful Load.
var ErrNotLoaded = errors.New("model not loaded")

// State is the lifecycle stage of a Handle.
type State int32

const (
	// StateUninitialized is the initial state and the state after a failed Load.
	StateUninitialized State = iota
	// StateLoading covers instantiation and the warm-up encode.
	StateLoading
	// StateReady means Encode is served by the loaded backend.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// LoadFunc instantiates the backend serving modelID on device.
type LoadFunc func(ctx context.Context, modelID, device string) (embeddings.Embedder, error)

// Decorator wraps the backend once the warm-up has verified it, e.g. with a
// cache. Decorators never see the warm-up encode.
type Decorator func(emb embeddings.Embedder, info Info) embeddings.Embedder

// Info describes a ready model.
type Info struct {
	ModelID   string
	Device    string
	Backend   string
	Dimension int
}

type loaded struct {
	embedder embeddings.Embedder
	info     Info
}

// Handle holds one embedding model. It is written once by Load and read
// without locking by every request afterwards.
type Handle struct {
	modelID string
	device  string
	log     *slog.Logger

	mu    sync.Mutex // serializes Load
	state atomic.Int32
	ready atomic.Pointer[loaded]
}

// NewHandle returns an uninitialized handle for modelID on device.
func NewHandle(log *slog.Logger, modelID, device string) *Handle {
	return &Handle{modelID: modelID, device: device, log: log}
}

// Load instantiates the model and encodes a warm-up string to confirm it
// answers. The warm-up always hits the raw backend; decorators are applied
// afterwards. It is a no-op once the handle is ready. There is no retry: on
// failure the handle returns to uninitialized and the error is returned.
func (h *Handle) Load(ctx context.Context, load LoadFunc, decorators ...Decorator) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready.Load() != nil {
		return nil
	}
	h.state.Store(int32(StateLoading))
	h.log.Info("loading embedding model", "model", h.modelID, "device", h.device)

	emb, err := load(ctx, h.modelID, h.device)
	if err != nil {
		h.state.Store(int32(StateUninitialized))
		return fmt.Errorf("instantiate model %s: %w", h.modelID, err)
	}
	warm, err := emb.Embed(ctx, "warm-up")
	if err != nil {
		h.state.Store(int32(StateUninitialized))
		return fmt.Errorf("warm-up encode with %s: %w", emb.Name(), err)
	}
	if len(warm) == 0 {
		h.state.Store(int32(StateUninitialized))
		return fmt.Errorf("warm-up encode with %s returned an empty vector", emb.Name())
	}

	info := Info{
		ModelID:   h.modelID,
		Device:    h.device,
		Backend:   emb.Name(),
		Dimension: len(warm),
	}
	for _, wrap := range decorators {
		emb = wrap(emb, info)
	}
	h.ready.Store(&loaded{embedder: emb, info: info})
	h.state.Store(int32(StateReady))
	h.log.Info("embedding model loaded", "model", info.ModelID, "backend", info.Backend, "dimension", info.Dimension)
	return nil
}

// Loaded reports whether the model is ready to encode.
func (h *Handle) Loaded() bool {
	return h.ready.Load() != nil
}

// State reports the lifecycle stage; /health reads it.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Info returns the model description; ok is false until Load succeeds.
func (h *Handle) Info() (Info, bool) {
	l := h.ready.Load()
	if l == nil {
		return Info{}, false
	}
	return l.info, true
}

// Encode returns the embedding of text.
func (h *Handle) Encode(ctx context.Context, text string) (embeddings.Vector, error) {
	l := h.ready.Load()
	if l == nil {
		return nil, ErrNotLoaded
	}
	vec, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.embedder.Name(), err)
	}
	if len(vec) != l.info.Dimension {
		return nil, fmt.Errorf("%s: got %d dimensions, want %d", l.embedder.Name(), len(vec), l.info.Dimension)
	}
	return vec, nil
}

// PublicError renders an Encode failure for API callers.
func PublicError(err error) string {
	return "internal error generating embedding: " + err.Error()
}
