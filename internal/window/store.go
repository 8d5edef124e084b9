// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package window keeps the bounded, per-user sliding window of recent
// screen-time samples.
//
// Every backend implements append as append-then-truncate-from-front, so a
// window never holds more than Size records and always holds the most recent
// ones, oldest first. Backends do not order concurrent appends for the same
// user; the stream transport partitions by user so a single worker owns each
// user's window.
package window

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/riskwatch/internal/screentime"
)

// DefaultSize is the window length W.
const DefaultSize = 10

// ErrUnavailable wraps every backend failure. Runs that hit it fail and the
// inbound message is left for redelivery.
var ErrUnavailable = errors.New("window store unavailable")

// Store is the window store contract.
type Store interface {
	// Append adds evt to the tail of the user's window and trims it to Size.
	Append(ctx context.Context, userID string, evt screentime.Event) error
	// Read returns the user's window oldest first; empty if none exists.
	Read(ctx context.Context, userID string) ([]screentime.Event, error)
	// AppendRead appends and returns the resulting window as one atomic step.
	AppendRead(ctx context.Context, userID string, evt screentime.Event) ([]screentime.Event, error)
	Close() error
}

// Options shared by all backends.
type Options struct {
	// Size is the maximum number of records kept per user, capped at DefaultSize.
	Size int
	// TTL expires an idle window; zero keeps windows forever.
	TTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 || o.Size > DefaultSize {
		o.Size = DefaultSize
	}
	return o
}

// Key is the per-user key shared by the Redis and Badger backends.
func Key(userID string) string {
	return "user:" + userID + ":screen_time_window"
}

func encodeRecord(evt screentime.Event) ([]byte, error) {
	return json.Marshal(evt)
}

// decodeRecords skips records that no longer decode so that one corrupt entry
// cannot wedge a user's window; it ages out on later appends.
func decodeRecords(logger zerolog.Logger, userID string, raw [][]byte) []screentime.Event {
	out := make([]screentime.Event, 0, len(raw))
	for _, r := range raw {
		var evt screentime.Event
		if err := json.Unmarshal(r, &evt); err != nil {
			logger.Warn().
				Err(err).
				Str("event", "window.record_corrupt").
				Str("user_id", userID).
				Msg("skipping undecodable window record")
			continue
		}
		out = append(out, evt)
	}
	return out
}
