// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the detector runtime: one stream worker per owned
// partition, the model artifact watcher and the ops HTTP server.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"
)

// Runner is a long-lived loop that returns nil once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// App owns the long-lived runtime lifecycle and delegates server management
// to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	watcher Runner
	workers []Runner
}

// NewApp creates a new App orchestrator. watcher may be nil.
func NewApp(logger zerolog.Logger, manager Manager, watcher Runner, workers ...Runner) *App {
	return &App{
		logger:  logger,
		manager: manager,
		watcher: watcher,
		workers: workers,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or one
// of them fails. A failing worker cancels the others. Shutdown hooks run only
// after every worker and the watcher have returned.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if len(a.workers) == 0 {
		return ErrNoWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	loops, lctx := errgroup.WithContext(gctx)

	for i, w := range a.workers {
		loops.Go(func() error {
			if err := w.Run(lctx); err != nil {
				return fmt.Errorf("stream worker %d: %w", i, err)
			}
			return nil
		})
	}

	// Watcher is best-effort: the current model keeps serving if it stops.
	if a.watcher != nil {
		loops.Go(func() error {
			if err := a.watcher.Run(lctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "model.watcher_failed").Msg("model watcher stopped")
			}
			return nil
		})
	}

	// The manager shuts down when its context ends, so it is cancelled only
	// once the loops are done with Redis and the window store.
	mctx, stopManager := context.WithCancel(context.WithoutCancel(ctx))
	defer stopManager()

	g.Go(func() error {
		err := loops.Wait()
		stopManager()
		return err
	})
	g.Go(func() error {
		return a.manager.Start(mctx)
	})

	err := g.Wait()
	// No-op when Start already shut down; runs the hooks after a server error.
	if serr := a.manager.Shutdown(context.Background()); serr != nil && !errors.Is(serr, ErrManagerNotStarted) {
		err = errors.Join(err, serr)
	}
	return err
}
