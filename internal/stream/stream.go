// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream is the Redis Streams transport: partition routing, a
// consumer-group worker with redelivery and dead-lettering, and a producer.
//
// Delivery is at-least-once. A message is acknowledged only after its handler
// returns nil; anything else stays pending and is reclaimed later.
package stream

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Stream entry fields.
const (
	FieldPayload = "payload"
	FieldUserID  = "userId"
)

// DeadLetterSuffix is appended to a stream name to form its dead-letter stream.
const DeadLetterSuffix = ".dlq"

// TypeDeadLetter is the envelope type of dead-letter entries.
const TypeDeadLetter = "DLQ_MESSAGE"

// Message is one delivered stream entry.
type Message struct {
	Stream  string
	ID      string
	Payload []byte
	// Deliveries counts how many times the entry has been handed to a consumer,
	// this delivery included.
	Deliveries int64
}

// Handler processes one message. A nil return acknowledges it.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// PartitionFor maps a user onto one of n partitions. The mapping is stable
// across processes so every event of a user lands on the same partition.
func PartitionFor(userID string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(userID) % uint64(n))
}

// Name returns the stream carrying partition p of base. A single partition
// uses the bare base name.
func Name(base string, p, partitions int) string {
	if partitions <= 1 {
		return base
	}
	return base + ":" + strconv.Itoa(p)
}

// Names lists the streams for the given partitions; nil owned means all.
// Out-of-range partitions are skipped.
func Names(base string, partitions int, owned []int) []string {
	if partitions <= 1 {
		return []string{base}
	}
	if len(owned) == 0 {
		owned = make([]int, partitions)
		for i := range owned {
			owned[i] = i
		}
	}
	out := make([]string, 0, len(owned))
	for _, p := range owned {
		if p < 0 || p >= partitions {
			continue
		}
		out = append(out, Name(base, p, partitions))
	}
	return out
}
