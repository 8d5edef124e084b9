// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Producer appends entries to capped streams.
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer caps each stream at roughly maxLen entries; zero disables the cap.
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	return &Producer{client: client, maxLen: maxLen}
}

// Publish appends payload to stream. userID is stored alongside so that
// downstream consumers can route without decoding the payload.
func (p *Producer) Publish(ctx context.Context, stream, userID string, payload []byte) (string, error) {
	values := map[string]any{FieldPayload: payload}
	if userID != "" {
		values[FieldUserID] = userID
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}
