// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration: defaults, then a strict YAML
// file, then RISKWATCH_* environment overrides, then validation.
package config

import (
	"time"

	"github.com/ManuGH/riskwatch/internal/platform/redisx"
	"github.com/ManuGH/riskwatch/internal/risk"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
)

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Log          LogConfig          `yaml:"log"`
	Redis        redisx.Config      `yaml:"redis"`
	Stream       StreamConfig       `yaml:"stream"`
	Window       WindowConfig       `yaml:"window"`
	Model        ModelConfig        `yaml:"model"`
	Risk         RiskConfig         `yaml:"risk"`
	Intervention InterventionConfig `yaml:"intervention"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Ops          OpsConfig          `yaml:"ops"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// StreamConfig describes the inbound Redis stream and its consumer group.
type StreamConfig struct {
	Inbound  string `yaml:"inbound"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"` // empty: host-pid-uuid
	// Partitions is the number of inbound partition streams.
	Partitions int `yaml:"partitions"`
	// OwnedPartitions restricts this replica to a subset; empty means all.
	OwnedPartitions []int `yaml:"ownedPartitions"`

	Block           time.Duration `yaml:"block"`
	MessageTimeout  time.Duration `yaml:"messageTimeout"`
	ReclaimInterval time.Duration `yaml:"reclaimInterval"`
	MinIdle         time.Duration `yaml:"minIdle"`
	ReclaimBatch    int64         `yaml:"reclaimBatch"`
	MaxDeliveries   int64         `yaml:"maxDeliveries"`
	OutboundMaxLen  int64         `yaml:"outboundMaxLen"`
}

type WindowConfig struct {
	Backend    string        `yaml:"backend"` // redis, badger, memory
	Size       int           `yaml:"size"`
	TTL        time.Duration `yaml:"ttl"`
	BadgerPath string        `yaml:"badgerPath"`
}

type ModelConfig struct {
	// ArtifactPath is optional; without it the heuristic scores windows.
	ArtifactPath string                    `yaml:"artifactPath"`
	Watch        bool                      `yaml:"watch"`
	Heuristic    riskmodel.HeuristicParams `yaml:"heuristic"`
}

type RiskConfig struct {
	Thresholds risk.Thresholds `yaml:"thresholds"`
}

type InterventionConfig struct {
	Topic            string        `yaml:"topic"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc, http
	Endpoint     string  `yaml:"endpoint"` // empty: the exporter's local OTLP port
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

type OpsConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}
