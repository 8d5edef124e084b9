// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/riskwatch/internal/platform/redisx"
	"github.com/ManuGH/riskwatch/internal/risk"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
	"github.com/ManuGH/riskwatch/internal/window"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RISKWATCH_"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	return int64(l.envInt(key, int(defaultVal)))
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envInts(key string, defaultVal []int) []int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseIntList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if cfg.Window.BadgerPath != "" {
		if abs, err := filepath.Abs(cfg.Window.BadgerPath); err == nil {
			cfg.Window.BadgerPath = abs
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:   "info",
			Service: "riskwatch",
		},
		Stream: StreamConfig{
			Inbound:         "screen-time-events",
			Group:           "risk-detector",
			Partitions:      1,
			Block:           2 * time.Second,
			MessageTimeout:  10 * time.Second,
			ReclaimInterval: 30 * time.Second,
			MinIdle:         time.Minute,
			ReclaimBatch:    50,
			MaxDeliveries:   3,
			OutboundMaxLen:  100_000,
		},
		Redis: redisx.Config{Addr: "localhost:6379"},
		Window: WindowConfig{
			Backend: window.BackendRedis,
			Size:    window.DefaultSize,
			TTL:     7 * 24 * time.Hour,
		},
		Model: ModelConfig{
			Watch:     true,
			Heuristic: riskmodel.DefaultHeuristic(),
		},
		Risk: RiskConfig{Thresholds: risk.DefaultThresholds()},
		Intervention: InterventionConfig{
			Topic:            "intervention-events",
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		Ops: OpsConfig{
			Listen:          ":9464",
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	// Check file extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	data = []byte(expandEnv(string(data)))

	// Parse YAML with strict mode (unknown fields cause errors)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig applies RISKWATCH_* overrides on top of file and defaults.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	k := func(name string) string { return EnvPrefix + name }

	cfg.Log.Level = l.envString(k("LOG_LEVEL"), cfg.Log.Level)
	cfg.Log.Service = l.envString(k("LOG_SERVICE"), cfg.Log.Service)

	cfg.Redis.Addr = l.envString(k("REDIS_ADDR"), cfg.Redis.Addr)
	cfg.Redis.Password = l.envString(k("REDIS_PASSWORD"), cfg.Redis.Password)
	cfg.Redis.DB = l.envInt(k("REDIS_DB"), cfg.Redis.DB)
	cfg.Redis.PoolSize = l.envInt(k("REDIS_POOL_SIZE"), cfg.Redis.PoolSize)

	cfg.Stream.Inbound = l.envString(k("STREAM_INBOUND"), cfg.Stream.Inbound)
	cfg.Stream.Group = l.envString(k("STREAM_GROUP"), cfg.Stream.Group)
	cfg.Stream.Consumer = l.envString(k("STREAM_CONSUMER"), cfg.Stream.Consumer)
	cfg.Stream.Partitions = l.envInt(k("STREAM_PARTITIONS"), cfg.Stream.Partitions)
	cfg.Stream.OwnedPartitions = l.envInts(k("STREAM_OWNED_PARTITIONS"), cfg.Stream.OwnedPartitions)
	cfg.Stream.Block = l.envDuration(k("STREAM_BLOCK"), cfg.Stream.Block)
	cfg.Stream.MessageTimeout = l.envDuration(k("STREAM_MESSAGE_TIMEOUT"), cfg.Stream.MessageTimeout)
	cfg.Stream.ReclaimInterval = l.envDuration(k("STREAM_RECLAIM_INTERVAL"), cfg.Stream.ReclaimInterval)
	cfg.Stream.MinIdle = l.envDuration(k("STREAM_MIN_IDLE"), cfg.Stream.MinIdle)
	cfg.Stream.ReclaimBatch = l.envInt64(k("STREAM_RECLAIM_BATCH"), cfg.Stream.ReclaimBatch)
	cfg.Stream.MaxDeliveries = l.envInt64(k("STREAM_MAX_DELIVERIES"), cfg.Stream.MaxDeliveries)
	cfg.Stream.OutboundMaxLen = l.envInt64(k("STREAM_OUTBOUND_MAXLEN"), cfg.Stream.OutboundMaxLen)

	cfg.Window.Backend = l.envString(k("WINDOW_BACKEND"), cfg.Window.Backend)
	cfg.Window.Size = l.envInt(k("WINDOW_SIZE"), cfg.Window.Size)
	cfg.Window.TTL = l.envDuration(k("WINDOW_TTL"), cfg.Window.TTL)
	cfg.Window.BadgerPath = l.envString(k("WINDOW_BADGER_PATH"), cfg.Window.BadgerPath)

	cfg.Model.ArtifactPath = l.envString(k("MODEL_ARTIFACT"), cfg.Model.ArtifactPath)
	cfg.Model.Watch = l.envBool(k("MODEL_WATCH"), cfg.Model.Watch)

	cfg.Risk.Thresholds.Medium = l.envFloat(k("RISK_MEDIUM"), cfg.Risk.Thresholds.Medium)
	cfg.Risk.Thresholds.High = l.envFloat(k("RISK_HIGH"), cfg.Risk.Thresholds.High)
	cfg.Risk.Thresholds.Critical = l.envFloat(k("RISK_CRITICAL"), cfg.Risk.Thresholds.Critical)

	cfg.Intervention.Topic = l.envString(k("INTERVENTION_TOPIC"), cfg.Intervention.Topic)
	cfg.Intervention.BreakerThreshold = l.envInt(k("INTERVENTION_BREAKER_THRESHOLD"), cfg.Intervention.BreakerThreshold)
	cfg.Intervention.BreakerReset = l.envDuration(k("INTERVENTION_BREAKER_RESET"), cfg.Intervention.BreakerReset)

	cfg.Telemetry.Enabled = l.envBool(k("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(k("TELEMETRY_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(k("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(k("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(k("TELEMETRY_ENVIRONMENT"), cfg.Telemetry.Environment)

	cfg.Ops.Listen = l.envString(k("OPS_LISTEN"), cfg.Ops.Listen)
}
