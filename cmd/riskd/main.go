// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command riskd consumes screen-time events from Redis Streams, scores each
// user's recent activity and publishes intervention events for risky windows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/riskwatch/internal/config"
	"github.com/ManuGH/riskwatch/internal/log"
	"github.com/ManuGH/riskwatch/internal/riskmodel"
	"github.com/ManuGH/riskwatch/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	writeArtifact := flag.String("write-artifact", "", "write freshly initialized model weights to this path and exit")
	seed := flag.Uint64("seed", 1, "seed for -write-artifact")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	log.Configure(log.Config{
		Level:   "info",
		Service: "riskd",
		Version: version.Version,
	})
	logger := log.WithComponent("daemon")

	if *writeArtifact != "" {
		if err := riskmodel.SaveArtifact(*writeArtifact, riskmodel.InitWeights(*seed)); err != nil {
			logger.Fatal().Err(err).Str("event", "model.write_failed").Str("path", *writeArtifact).Msg("failed to write model artifact")
		}
		logger.Info().Str("event", "model.written").Str("path", *writeArtifact).Uint64("seed", *seed).
			Msg("wrote untrained model artifact")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})
	logger = log.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("configuration loaded")

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
}
