// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package window

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open creates an instrumented Store for the configured backend. client is
// only used by the redis backend; path only by badger.
func Open(backend, path string, opts Options, client *redis.Client, logger zerolog.Logger) (Store, error) {
	if backend == "" {
		backend = BackendRedis
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis window store requires a redis client")
		}
		s = NewRedisStore(client, opts, logger)
	case BackendBadger:
		s, err = OpenBadgerStore(path, opts, logger)
	case BackendMemory:
		s = NewMemoryStore(opts)
	default:
		return nil, fmt.Errorf("unknown window store backend: %s", backend)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumentedStore(s, backend), nil
}
