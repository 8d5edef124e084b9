// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the ops server lifecycle and ordered cleanup.
type Manager interface {
	// Start starts the ops server and blocks until ctx is cancelled, then
	// runs Shutdown. On a server error it returns without running hooks.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the server and runs shutdown hooks
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	deps Deps

	opsServer *http.Server
	opsAddr   string

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager.
func NewManager(deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	return &manager{
		deps:          deps,
		logger:        deps.Logger.With().Str("component", "manager").Logger(),
		shutdownHooks: make([]namedHook, 0),
	}, nil
}

// Start starts the ops server and blocks until context is cancelled.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.deps.Ops.Listen).
		Dur("shutdown_timeout", m.shutdownTimeout()).
		Msg("Starting daemon manager")

	errChan := make(chan error, 1)

	if m.deps.Ops.Listen != "" {
		if err := m.startOpsServer(errChan); err != nil {
			return fmt.Errorf("failed to start ops server: %w", err)
		}
	}

	select {
	case err := <-errChan:
		// Hooks stay pending: the caller stops its own goroutines first and
		// then calls Shutdown.
		m.logger.Error().Err(err).Msg("Server error, stopping")
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout())
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// startOpsServer binds synchronously so a taken port fails Start directly.
func (m *manager) startOpsServer(errChan chan<- error) error {
	ln, err := net.Listen("tcp", m.deps.Ops.Listen)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.opsAddr = ln.Addr().String()
	m.opsServer = &http.Server{
		Handler:           m.deps.OpsHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := m.opsServer
	m.mu.Unlock()

	go func() {
		m.logger.Info().
			Str("addr", ln.Addr().String()).
			Msg("Ops server listening")

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str("event", "ops.server.failed").
				Msg("Ops server failed")
			errChan <- fmt.Errorf("ops server: %w", err)
		}
	}()

	return nil
}

// Addr reports the bound ops address, empty before Start.
func (m *manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opsAddr
}

func (m *manager) shutdownTimeout() time.Duration {
	if m.deps.Ops.ShutdownTimeout > 0 {
		return m.deps.Ops.ShutdownTimeout
	}
	return defaultShutdownTimeout
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	srv := m.opsServer
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	m.logger.Info().Msg("Shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout())
	defer cancel()

	var errs []error

	if srv != nil {
		m.logger.Debug().Msg("Shutting down ops server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("ops server shutdown: %w", err))
		}
	}

	m.logger.Debug().Int("hooks", len(hooks)).Msg("Executing shutdown hooks")
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]

		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
		} else {
			m.logger.Debug().
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook completed")
		}
	}

	if len(errs) > 0 {
		m.logger.Error().
			Int("error_count", len(errs)).
			Msg("Shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("Daemon manager stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{
		name: name,
		hook: hook,
	})
	m.logger.Debug().Str("hook", name).Msg("Registered shutdown hook")
}
