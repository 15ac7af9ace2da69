// Package bus serves embeddings over NATS request/reply.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"embed-service/internal/embeddings"
	"embed-service/internal/httputil"
	"embed-service/internal/metrics"
	"embed-service/internal/model"
)

// QueueGroup spreads requests across every replica subscribed to the subject.
const QueueGroup = "embedders"

// Encoder is the part of model.Handle the responder needs.
type Encoder interface {
	Encode(ctx context.Context, text string) (embeddings.Vector, error)
}

// Request and Reply mirror the HTTP /embed payloads.
type Request struct {
	Text *string `json:"text" validate:"required"`
}

type Reply struct {
	Embedding embeddings.Vector `json:"embedding,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Responder answers embedding requests published on a subject.
type Responder struct {
	log     *slog.Logger
	nc      *nats.Conn
	subject string
	enc     Encoder
	metrics metrics.Metrics
}

func NewResponder(log *slog.Logger, nc *nats.Conn, subject string, enc Encoder, m metrics.Metrics) *Responder {
	return &Responder{log: log.With("subject", subject), nc: nc, subject: subject, enc: enc, metrics: m}
}

// Run subscribes and blocks until ctx is done, then drains the subscription.
func (r *Responder) Run(ctx context.Context) error {
	sub, err := r.nc.QueueSubscribe(r.subject, QueueGroup, func(msg *nats.Msg) {
		if msg.Reply == "" {
			r.log.Warn("dropping embed request without reply subject")
			return
		}
		if err := msg.Respond(r.Handle(ctx, msg.Data)); err != nil {
			r.log.Error("failed to send embed reply", "err", err)
		}
	})
	if err != nil {
		return err
	}
	r.log.Info("nats responder subscribed", "group", QueueGroup)
	<-ctx.Done()
	return sub.Drain()
}

// Handle turns one request payload into a reply payload.
func (r *Responder) Handle(ctx context.Context, data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return r.reply(Reply{Error: "invalid JSON payload"})
	}
	if err := httputil.Validator.Struct(&req); err != nil {
		return r.reply(Reply{Error: httputil.ValidationMessage(err)})
	}

	start := time.Now()
	vec, err := r.enc.Encode(ctx, *req.Text)
	r.metrics.ObserveEmbedDuration("nats", time.Since(start).Seconds())
	if err != nil {
		r.log.Error("error generating embedding", "err", err)
		return r.reply(Reply{Error: model.PublicError(err)})
	}
	return r.reply(Reply{Embedding: vec})
}

func (r *Responder) reply(rep Reply) []byte {
	body, err := json.Marshal(rep)
	if err != nil {
		r.log.Error("failed to marshal reply", "err", err)
		return []byte(`{"error":"internal error"}`)
	}
	return body
}
