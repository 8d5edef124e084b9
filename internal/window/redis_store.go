// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package window

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/riskwatch/internal/screentime"
)

// RedisStore keeps each window in a Redis list. Appends run RPUSH, LTRIM and
// EXPIRE inside one MULTI/EXEC so the bounded append is a single atomic step.
type RedisStore struct {
	client *redis.Client
	opts   Options
	logger zerolog.Logger
}

// NewRedisStore wraps an existing client. The store does not close it.
func NewRedisStore(client *redis.Client, opts Options, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

func (s *RedisStore) queueAppend(ctx context.Context, pipe redis.Pipeliner, key string, payload []byte) {
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.opts.Size), -1)
	if s.opts.TTL > 0 {
		pipe.Expire(ctx, key, s.opts.TTL)
	}
}

// Append adds evt to the user's window.
func (s *RedisStore) Append(ctx context.Context, userID string, evt screentime.Event) error {
	payload, err := encodeRecord(evt)
	if err != nil {
		return fmt.Errorf("encode window record: %w", err)
	}
	key := Key(userID)
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueAppend(ctx, pipe, key, payload)
		return nil
	}); err != nil {
		return fmt.Errorf("%w: append %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Read returns the user's window.
func (s *RedisStore) Read(ctx context.Context, userID string) ([]screentime.Event, error) {
	key := Key(userID)
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, key, err)
	}
	return decodeRecords(s.logger, userID, toBytes(raw)), nil
}

// AppendRead appends and reads back inside the same transaction.
func (s *RedisStore) AppendRead(ctx context.Context, userID string, evt screentime.Event) ([]screentime.Event, error) {
	payload, err := encodeRecord(evt)
	if err != nil {
		return nil, fmt.Errorf("encode window record: %w", err)
	}
	key := Key(userID)
	var lrange *redis.StringSliceCmd
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueAppend(ctx, pipe, key, payload)
		lrange = pipe.LRange(ctx, key, 0, -1)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: append %s: %v", ErrUnavailable, key, err)
	}
	raw, err := lrange.Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, key, err)
	}
	return decodeRecords(s.logger, userID, toBytes(raw)), nil
}

// Close is a no-op; the shared client is closed by its owner.
func (s *RedisStore) Close() error { return nil }

func toBytes(raw []string) [][]byte {
	out := make([][]byte, len(raw))
	for i, r := range raw {
		out[i] = []byte(r)
	}
	return out
}
