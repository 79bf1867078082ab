// Folio - Personal Library Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
)

const metadataCorrelationID = "correlation_id"

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// JobHandler processes one index job. A returned error triggers a retry.
type JobHandler func(ctx context.Context, job IndexJob) error

// BusConfig holds configuration for the job bus.
type BusConfig struct {
	// BufferSize is the per-subscriber channel capacity.
	BufferSize int64

	// MaxRetries bounds redelivery of a failed job.
	MaxRetries int

	// RetryInitialInterval and RetryMaxInterval shape the exponential
	// backoff between retries.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// CloseTimeout is how long Close waits for in-flight handlers.
	CloseTimeout time.Duration
}

// DefaultBusConfig returns production defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		BufferSize:           256,
		MaxRetries:           3,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     30 * time.Second,
		CloseTimeout:         10 * time.Second,
	}
}

// Bus publishes index jobs and routes them to a handler.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger zerolog.Logger
	closed atomic.Bool

	published atomic.Int64
	dropped   atomic.Int64
}

// NewBus creates a bus backed by an in-process Watermill GoChannel.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(cfg BusConfig, logger zerolog.Logger) (*Bus, error) {
	def := DefaultBusConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.RetryMaxInterval < cfg.RetryInitialInterval {
		cfg.RetryMaxInterval = cfg.RetryInitialInterval
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}

	logger = logger.With().Str("component", "events").Logger()
	wmLogger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandler(logger)))

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	b := &Bus{pubsub: pubsub, router: router, logger: logger}

	// Outer to inner: terminal ack, panic recovery, retry with backoff.
	router.AddMiddleware(b.dropExhausted)
	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          wmLogger,
	}
	router.AddMiddleware(retry.Middleware)

	return b, nil
}

// dropExhausted acknowledges a job whose retries are spent. GoChannel
// redelivers nacked messages immediately and without limit.
func (b *Bus) dropExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			b.dropped.Add(1)
			metrics.IndexJobs.WithLabelValues("dropped").Inc()
			b.logger.Error().
				Err(err).
				Str("message_id", msg.UUID).
				Str("correlation_id", msg.Metadata.Get(metadataCorrelationID)).
				Msg("index job dropped after retries")
			return nil, nil
		}
		return out, nil
	}
}

// Handle registers fn as the consumer of index jobs. Call before Run.
func (b *Bus) Handle(name string, fn JobHandler) {
	b.router.AddConsumerHandler(name, TopicIndex, b.pubsub, func(msg *message.Message) error {
		job, err := UnmarshalJob(msg.Payload)
		if err != nil {
			// A malformed payload never succeeds; ack it.
			b.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("discarding malformed index job")
			return nil
		}

		ctx := msg.Context()
		if id := msg.Metadata.Get(metadataCorrelationID); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}
		return fn(ctx, job)
	})
}

// Publish queues job. The correlation ID of ctx, if any, travels with it.
func (b *Bus) Publish(ctx context.Context, job IndexJob) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if job.CorrelationID == "" {
		job.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}
	payload, err := MarshalJob(&job)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if job.CorrelationID != "" {
		msg.Metadata.Set(metadataCorrelationID, job.CorrelationID)
	}
	if err := b.pubsub.Publish(TopicIndex, msg); err != nil {
		return fmt.Errorf("publish index job: %w", err)
	}
	b.published.Add(1)
	return nil
}

// Run starts routing and blocks until ctx is canceled or Close is called.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and the pub/sub. It is safe to call twice.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(b.router.Close(), b.pubsub.Close())
}

// Stats reports bus counters.
func (b *Bus) Stats() (published, dropped int64) {
	return b.published.Load(), b.dropped.Load()
}
