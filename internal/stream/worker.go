// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/metrics"
	"github.com/ManuGH/riskwatch/internal/telemetry"
)

// WorkerConfig configures one partition worker.
type WorkerConfig struct {
	Stream   string
	Group    string
	Consumer string

	// Block bounds each XREADGROUP wait.
	Block time.Duration
	// MessageTimeout bounds a single handler invocation.
	MessageTimeout time.Duration

	// ReclaimInterval is how often pending entries are inspected.
	ReclaimInterval time.Duration
	// MinIdle is how long an entry must sit unacknowledged before it is reclaimed.
	MinIdle time.Duration
	// ReclaimBatch caps entries inspected per reclaim pass.
	ReclaimBatch int64
	// MaxDeliveries moves an entry to the dead-letter stream once it has been
	// delivered this many times without success.
	MaxDeliveries int64
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Block <= 0 {
		c.Block = 2 * time.Second
	}
	if c.MessageTimeout <= 0 {
		c.MessageTimeout = 10 * time.Second
	}
	if c.ReclaimInterval <= 0 {
		c.ReclaimInterval = 30 * time.Second
	}
	if c.MinIdle < 0 {
		c.MinIdle = 0
	}
	if c.ReclaimBatch <= 0 {
		c.ReclaimBatch = 50
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 3
	}
	if c.Consumer == "" {
		c.Consumer = DefaultConsumerName()
	}
	return c
}

// DefaultConsumerName is unique per process: host-pid-uuid.
func DefaultConsumerName() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.New().String())
}

// Worker consumes one stream through a consumer group, one message at a time.
type Worker struct {
	client  *redis.Client
	cfg     WorkerConfig
	handler Handler
	logger  zerolog.Logger

	lastReclaim time.Time
}

func NewWorker(client *redis.Client, cfg WorkerConfig, handler Handler, logger zerolog.Logger) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger: logger.With().
			Str(log.FieldStream, cfg.Stream).
			Str(log.FieldConsumer, cfg.Consumer).
			Logger(),
	}
}

// Config returns the effective configuration.
func (w *Worker) Config() WorkerConfig { return w.cfg }

// EnsureGroup creates the consumer group (and stream) if missing.
func (w *Worker) EnsureGroup(ctx context.Context) error {
	err := w.client.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", w.cfg.Group, w.cfg.Stream, err)
	}
	return nil
}

// Run consumes until ctx is cancelled. Reclaim passes run on the same
// goroutine so a partition never has two messages in flight.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return err
	}
	w.logger.Info().Str(log.FieldEvent, "stream.worker_started").Str("group", w.cfg.Group).Msg("stream worker started")
	defer w.logger.Info().Str(log.FieldEvent, "stream.worker_stopped").Msg("stream worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if time.Since(w.lastReclaim) >= w.cfg.ReclaimInterval {
			w.lastReclaim = time.Now()
			if _, err := w.ReclaimOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn().Err(err).Str(log.FieldEvent, "stream.reclaim_failed").Msg("reclaim pass failed")
			}
		}

		msg, ok, err := w.read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Str(log.FieldEvent, "stream.read_failed").Msg("stream read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.Block):
			}
			continue
		}
		if !ok {
			continue
		}
		w.process(ctx, msg)
	}
}

func (w *Worker) read(ctx context.Context) (Message, bool, error) {
	res, err := w.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Stream, ">"},
		Count:    1,
		Block:    w.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}
	for _, s := range res {
		for _, m := range s.Messages {
			return toMessage(s.Stream, m, 1), true, nil
		}
	}
	return Message{}, false, nil
}

// process runs the handler and acks on success.
func (w *Worker) process(ctx context.Context, msg Message) {
	hctx, cancel := context.WithTimeout(ctx, w.cfg.MessageTimeout)
	hctx = log.ContextWithMessageID(hctx, msg.ID)
	hctx, span := telemetry.Tracer("riskwatch/stream").Start(hctx, "stream.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(telemetry.MessageAttributes(msg.Stream, msg.ID, msg.Deliveries)...))
	err := w.handler.Handle(hctx, msg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	cancel()

	if err != nil {
		reason := "handler_error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.IncStreamUnacked(w.cfg.Stream, reason)
		w.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "stream.message_unacked").
			Str(log.FieldMessageID, msg.ID).
			Int64("deliveries", msg.Deliveries).
			Str("reason", reason).
			Msg("message left pending for redelivery")
		return
	}

	// Ack on the parent context: a handler that finished in time must not
	// lose its ack to the handler deadline.
	if err := w.client.XAck(ctx, w.cfg.Stream, w.cfg.Group, msg.ID).Err(); err != nil {
		w.logger.Error().Err(err).Str(log.FieldEvent, "stream.ack_failed").Str(log.FieldMessageID, msg.ID).Msg("ack failed")
		return
	}
	metrics.IncStreamAcked(w.cfg.Stream)
}

// ReclaimOnce claims entries idle for at least MinIdle and re-runs them.
// Entries that already used up MaxDeliveries are dead-lettered instead.
// It returns how many entries were re-run or dead-lettered.
func (w *Worker) ReclaimOnce(ctx context.Context) (int, error) {
	pending, err := w.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: w.cfg.Stream,
		Group:  w.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  w.cfg.ReclaimBatch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending %s: %w", w.cfg.Stream, err)
	}

	handled := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return handled, nil
		}
		if p.Idle < w.cfg.MinIdle {
			continue
		}
		if p.RetryCount >= w.cfg.MaxDeliveries {
			if err := w.deadLetter(ctx, p.ID, p.RetryCount); err != nil {
				return handled, err
			}
			handled++
			continue
		}

		claimed, err := w.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   w.cfg.Stream,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  w.cfg.MinIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			return handled, fmt.Errorf("xclaim %s %s: %w", w.cfg.Stream, p.ID, err)
		}
		for _, m := range claimed {
			metrics.IncStreamReclaimed(w.cfg.Stream)
			w.process(ctx, toMessage(w.cfg.Stream, m, p.RetryCount+1))
			handled++
		}
	}
	return handled, nil
}

type deadLetter struct {
	Stream     string `json:"stream"`
	ID         string `json:"id"`
	Payload    string `json:"payload"`
	Deliveries int64  `json:"deliveries"`
	Error      string `json:"error"`
	FailedAt   string `json:"failedAt"`
}

// deadLetter copies the entry to <stream>.dlq and acks the original.
func (w *Worker) deadLetter(ctx context.Context, id string, deliveries int64) error {
	entries, err := w.client.XRange(ctx, w.cfg.Stream, id, id).Result()
	if err != nil {
		return fmt.Errorf("xrange %s %s: %w", w.cfg.Stream, id, err)
	}
	var payload string
	if len(entries) > 0 {
		payload = string(toMessage(w.cfg.Stream, entries[0], deliveries).Payload)
	}

	data, err := json.Marshal(deadLetter{
		Stream:     w.cfg.Stream,
		ID:         id,
		Payload:    payload,
		Deliveries: deliveries,
		Error:      "max deliveries exceeded",
		FailedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	envelope, err := json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: TypeDeadLetter, Data: data})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	dlq := w.cfg.Stream + DeadLetterSuffix
	if err := w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlq,
		Values: map[string]any{FieldPayload: envelope},
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", dlq, err)
	}
	if err := w.client.XAck(ctx, w.cfg.Stream, w.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("ack dead-lettered %s: %w", id, err)
	}

	metrics.IncStreamDeadLettered(w.cfg.Stream)
	w.logger.Error().
		Str(log.FieldEvent, "stream.dead_lettered").
		Str(log.FieldMessageID, id).
		Int64("deliveries", deliveries).
		Str("dlq", dlq).
		Msg("message moved to dead-letter stream")
	return nil
}

func toMessage(stream string, m redis.XMessage, deliveries int64) Message {
	msg := Message{Stream: stream, ID: m.ID, Deliveries: deliveries}
	switch v := m.Values[FieldPayload].(type) {
	case string:
		msg.Payload = []byte(v)
	case []byte:
		msg.Payload = v
	}
	return msg
}
