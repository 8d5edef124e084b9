// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"

	"github.com/ManuGH/riskwatch/internal/features"
	"github.com/ManuGH/riskwatch/internal/window"
)

// Validate checks cross-field invariants. All problems are reported at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Stream.Inbound == "" {
		add("stream.inbound must not be empty")
	}
	if cfg.Stream.Group == "" {
		add("stream.group must not be empty")
	}
	if cfg.Stream.Partitions < 1 {
		add("stream.partitions must be >= 1, got %d", cfg.Stream.Partitions)
	}
	seen := make(map[int]bool, len(cfg.Stream.OwnedPartitions))
	for _, p := range cfg.Stream.OwnedPartitions {
		if p < 0 || p >= cfg.Stream.Partitions {
			add("stream.ownedPartitions: %d out of range [0,%d)", p, cfg.Stream.Partitions)
		}
		if seen[p] {
			add("stream.ownedPartitions: %d listed twice", p)
		}
		seen[p] = true
	}
	if cfg.Stream.MaxDeliveries < 1 {
		add("stream.maxDeliveries must be >= 1")
	}
	if cfg.Stream.MessageTimeout <= 0 {
		add("stream.messageTimeout must be positive")
	}

	switch cfg.Window.Backend {
	case window.BackendRedis, window.BackendMemory:
	case window.BackendBadger:
		if cfg.Window.BadgerPath == "" {
			add("window.badgerPath is required for the badger backend")
		}
	default:
		add("window.backend: unknown backend %q", cfg.Window.Backend)
	}
	if cfg.Window.Size < 1 {
		add("window.size must be >= 1, got %d", cfg.Window.Size)
	}
	if cfg.Window.Size > features.WindowSize {
		add("window.size must be <= %d, got %d", features.WindowSize, cfg.Window.Size)
	}
	if cfg.Window.TTL < 0 {
		add("window.ttl must not be negative")
	}

	if err := cfg.Risk.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}

	if cfg.Intervention.Topic == "" {
		add("intervention.topic must not be empty")
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Exporter != "grpc" && cfg.Telemetry.Exporter != "http" {
			add("telemetry.exporter must be grpc or http, got %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			add("telemetry.samplingRate must be within [0,1]")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
