package model

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"embed-service/internal/embeddings"
)

func newTestHandle() *Handle {
	return NewHandle(slog.New(slog.NewTextHandler(io.Discard, nil)), "intfloat/multilingual-e5-large", "cpu")
}

func loaderFor(e embeddings.Embedder) LoadFunc {
	return func(context.Context, string, string) (embeddings.Embedder, error) { return e, nil }
}

func TestHandleLifecycle(t *testing.T) {
	h := newTestHandle()
	ctx := context.Background()

	assert.False(t, h.Loaded())
	assert.Equal(t, StateUninitialized, h.State())
	_, ok := h.Info()
	assert.False(t, ok)

	_, err := h.Encode(ctx, "hello")
	assert.ErrorIs(t, err, ErrNotLoaded)

	hash, err := embeddings.NewHashEmbedder(1024)
	require.NoError(t, err)

	var gotModel, gotDevice string
	err = h.Load(ctx, func(_ context.Context, modelID, device string) (embeddings.Embedder, error) {
		gotModel, gotDevice = modelID, device
		return hash, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "intfloat/multilingual-e5-large", gotModel)
	assert.Equal(t, "cpu", gotDevice)
	assert.True(t, h.Loaded())
	assert.Equal(t, StateReady, h.State())

	info, ok := h.Info()
	require.True(t, ok)
	assert.Equal(t, Info{ModelID: gotModel, Device: "cpu", Backend: "hash", Dimension: 1024}, info)

	vec, err := h.Encode(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 1024)
}

func TestHandleLoadIsIdempotent(t *testing.T) {
	h := newTestHandle()
	ctx := context.Background()

	calls := 0
	hash, _ := embeddings.NewHashEmbedder(8)
	load := func(context.Context, string, string) (embeddings.Embedder, error) {
		calls++
		return hash, nil
	}

	require.NoError(t, h.Load(ctx, load))
	require.NoError(t, h.Load(ctx, load))
	assert.Equal(t, 1, calls)
}

func TestHandleLoadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("instantiate error", func(t *testing.T) {
		h := newTestHandle()
		err := h.Load(ctx, func(context.Context, string, string) (embeddings.Embedder, error) {
			return nil, errors.New("no such model")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such model")
		assert.False(t, h.Loaded())
		assert.Equal(t, StateUninitialized, h.State())
	})

	t.Run("warm-up error", func(t *testing.T) {
		h := newTestHandle()
		m := new(embeddings.MockEmbedder)
		m.On("Embed", mock.Anything, "warm-up").Return(nil, errors.New("connection refused")).Once()

		err := h.Load(ctx, loaderFor(m))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.False(t, h.Loaded())
		m.AssertExpectations(t)
	})

	t.Run("empty warm-up vector", func(t *testing.T) {
		h := newTestHandle()
		m := new(embeddings.MockEmbedder)
		m.On("Embed", mock.Anything, "warm-up").Return(embeddings.Vector{}, nil).Once()

		require.Error(t, h.Load(ctx, loaderFor(m)))
		assert.False(t, h.Loaded())
	})
}

func TestHandleEncodeErrors(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle()
	m := new(embeddings.MockEmbedder)
	m.On("Embed", mock.Anything, "warm-up").Return(embeddings.Vector{1, 2, 3}, nil).Once()
	require.NoError(t, h.Load(ctx, loaderFor(m)))

	m.On("Embed", mock.Anything, "boom").Return(nil, errors.New("runtime crashed")).Once()
	_, err := h.Encode(ctx, "boom")
	require.Error(t, err)
	assert.Equal(t, "mock: runtime crashed", err.Error())

	m.On("Embed", mock.Anything, "short").Return(embeddings.Vector{1}, nil).Once()
	_, err = h.Encode(ctx, "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 dimensions, want 3")

	m.AssertExpectations(t)
}

func TestHandleConcurrentEncode(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle()
	hash, _ := embeddings.NewHashEmbedder(32)
	require.NoError(t, h.Load(ctx, loaderFor(hash)))

	want, err := hash.Embed(ctx, "concurrent text")
	require.NoError(t, err)

	var g errgroup.Group
	results := make([]embeddings.Vector, 50)
	for i := range results {
		g.Go(func() error {
			vec, err := h.Encode(ctx, "concurrent text")
			results[i] = vec
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
}

type recordingEmbedder struct {
	embeddings.Embedder
	calls []string
}

func (p *recordingEmbedder) Embed(ctx context.Context, text string) (embeddings.Vector, error) {
	p.calls = append(p.calls, text)
	return p.Embedder.Embed(ctx, text)
}

func TestHandleLoadAppliesDecoratorsAfterWarmUp(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle()
	hash, _ := embeddings.NewHashEmbedder(16)

	var wrapped *recordingEmbedder
	var gotInfo Info
	err := h.Load(ctx, loaderFor(hash), func(emb embeddings.Embedder, info Info) embeddings.Embedder {
		gotInfo = info
		wrapped = &recordingEmbedder{Embedder: emb}
		return wrapped
	})
	require.NoError(t, err)
	require.NotNil(t, wrapped)

	assert.Equal(t, Info{ModelID: "intfloat/multilingual-e5-large", Device: "cpu", Backend: "hash", Dimension: 16}, gotInfo)
	assert.Empty(t, wrapped.calls, "warm-up must bypass decorators")

	_, err = h.Encode(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, wrapped.calls)
}

func TestHandleLoadFailureSkipsDecorators(t *testing.T) {
	h := newTestHandle()
	m := new(embeddings.MockEmbedder)
	m.On("Embed", mock.Anything, "warm-up").Return(nil, errors.New("connection refused")).Once()

	called := false
	err := h.Load(context.Background(), loaderFor(m), func(emb embeddings.Embedder, _ Info) embeddings.Embedder {
		called = true
		return emb
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, StateUninitialized, h.State())
}
