// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/ManuGH/riskwatch/internal/config"
	"github.com/ManuGH/riskwatch/internal/daemon"
	"github.com/ManuGH/riskwatch/internal/health"
	"github.com/ManuGH/riskwatch/internal/intervention"
	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/pipeline"
	"github.com/ManuGH/riskwatch/internal/platform/redisx"
	"github.com/ManuGH/riskwatch/internal/risk"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
	"github.com/ManuGH/riskwatch/internal/stream"
	"github.com/ManuGH/riskwatch/internal/telemetry"
	"github.com/ManuGH/riskwatch/internal/window"
	"github.com/redis/go-redis/v9"
)

// run wires every component from cfg and blocks until ctx is cancelled.
func run(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Exporter:     cfg.Telemetry.Exporter,
		Endpoint:     cfg.Telemetry.Endpoint,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Service:      cfg.Log.Service,
		Version:      cfg.Version,
		Environment:  cfg.Telemetry.Environment,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	client, err := redisx.Connect(ctx, cfg.Redis, log.WithComponent("redis"))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}

	store, err := window.Open(cfg.Window.Backend, cfg.Window.BadgerPath,
		window.Options{Size: cfg.Window.Size, TTL: cfg.Window.TTL}, client, log.WithComponent("window"))
	if err != nil {
		_ = client.Close()
		_ = tp.Shutdown(context.Background())
		return fmt.Errorf("window store: %w", err)
	}

	holder := riskmodel.Load(riskmodel.Options{
		ArtifactPath: cfg.Model.ArtifactPath,
		Heuristic:    cfg.Model.Heuristic,
		Logger:       log.WithComponent("model"),
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewRedisChecker(client, 0))
	hm.RegisterChecker(health.NewModelChecker(holder))

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:     log.WithComponent("ops"),
		Ops:        cfg.Ops,
		OpsHandler: daemon.NewOpsRouter(hm, holder),
	})
	if err != nil {
		_ = store.Close()
		_ = client.Close()
		_ = tp.Shutdown(context.Background())
		return err
	}
	// LIFO: tracer flushes last.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("redis", func(context.Context) error { return client.Close() })
	mgr.RegisterShutdownHook("window", func(context.Context) error { return store.Close() })

	workers, err := buildWorkers(cfg, client, store, holder)
	if err != nil {
		_ = store.Close()
		_ = client.Close()
		_ = tp.Shutdown(context.Background())
		return err
	}

	var watcher daemon.Runner
	if cfg.Model.Watch && cfg.Model.ArtifactPath != "" {
		watcher = daemon.RunnerFunc(holder.Watch)
	}

	logger.Info().
		Str("event", "daemon.starting").
		Int("workers", len(workers)).
		Str("window_backend", cfg.Window.Backend).
		Str(log.FieldModelMode, string(holder.Current().Mode())).
		Msg("starting risk detector")

	return daemon.NewApp(logger, mgr, watcher, workers...).Run(ctx)
}

// buildWorkers creates one stream worker per owned inbound partition, all
// sharing a single orchestrator.
func buildWorkers(cfg config.AppConfig, client *redis.Client, store window.Store, holder *riskmodel.Holder) ([]daemon.Runner, error) {
	classifier, err := risk.NewClassifier(cfg.Risk.Thresholds)
	if err != nil {
		return nil, err
	}

	producer := stream.NewProducer(client, cfg.Stream.OutboundMaxLen)
	publisher := intervention.NewBreakerPublisher(
		intervention.NewStreamPublisher(producer, cfg.Intervention.Topic),
		cfg.Intervention.BreakerThreshold,
		cfg.Intervention.BreakerReset,
	)

	orch, err := pipeline.New(pipeline.Deps{
		Store:      store,
		Model:      holder,
		Classifier: classifier,
		Publisher:  publisher,
		Logger:     log.WithComponent("pipeline"),
	})
	if err != nil {
		return nil, err
	}
	dispatcher := pipeline.NewDispatcher(orch, log.WithComponent("dispatch"))

	consumer := cfg.Stream.Consumer
	if consumer == "" {
		consumer = stream.DefaultConsumerName()
	}

	names := stream.Names(cfg.Stream.Inbound, cfg.Stream.Partitions, cfg.Stream.OwnedPartitions)
	workers := make([]daemon.Runner, 0, len(names))
	for _, name := range names {
		w := stream.NewWorker(client, stream.WorkerConfig{
			Stream:          name,
			Group:           cfg.Stream.Group,
			Consumer:        consumer,
			Block:           cfg.Stream.Block,
			MessageTimeout:  cfg.Stream.MessageTimeout,
			ReclaimInterval: cfg.Stream.ReclaimInterval,
			MinIdle:         cfg.Stream.MinIdle,
			ReclaimBatch:    cfg.Stream.ReclaimBatch,
			MaxDeliveries:   cfg.Stream.MaxDeliveries,
		}, dispatcher, log.WithComponent("stream"))
		workers = append(workers, w)
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("no inbound partitions owned (partitions=%d, owned=%v)", cfg.Stream.Partitions, cfg.Stream.OwnedPartitions)
	}
	return workers, nil
}
