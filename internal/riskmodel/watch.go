// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package riskmodel

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/riskwatch/internal/log"
)

// Watch reloads the model whenever the artifact file is written or replaced.
// It blocks until ctx is cancelled. Without an artifact path it only waits.
func (h *Holder) Watch(ctx context.Context) error {
	return h.watch(ctx, nil)
}

func (h *Holder) watch(ctx context.Context, ready func()) error {
	if h.path == "" {
		if ready != nil {
			ready()
		}
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create model watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: atomic writers replace the file, which drops a
	// watch placed on the file itself.
	target := filepath.Clean(h.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch model dir: %w", err)
	}
	if ready != nil {
		ready()
	}

	h.logger.Info().
		Str(log.FieldEvent, "model.watch_started").
		Str(log.FieldPath, target).
		Msg("watching model artifact")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				_ = h.Reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn().Err(err).Str(log.FieldEvent, "model.watch_error").Msg("model watcher error")
		}
	}
}
