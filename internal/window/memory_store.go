// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package window

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/riskwatch/internal/screentime"
)

// MemoryStore is an in-process store for tests and single-process runs.
type MemoryStore struct {
	mu      sync.Mutex
	opts    Options
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	records   []screentime.Event
	expiresAt time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:    opts.withDefaults(),
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (s *MemoryStore) Append(_ context.Context, userID string, evt screentime.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(userID, evt)
	return nil
}

func (s *MemoryStore) Read(_ context.Context, userID string) ([]screentime.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(userID), nil
}

func (s *MemoryStore) AppendRead(_ context.Context, userID string, evt screentime.Event) ([]screentime.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(userID, evt)
	return s.readLocked(userID), nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports how many users currently hold a window.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) appendLocked(userID string, evt screentime.Event) {
	w := s.live(userID)
	if w == nil {
		w = &memoryWindow{}
		s.windows[userID] = w
	}
	w.records = append(w.records, evt)
	if over := len(w.records) - s.opts.Size; over > 0 {
		w.records = append([]screentime.Event(nil), w.records[over:]...)
	}
	if s.opts.TTL > 0 {
		w.expiresAt = s.now().Add(s.opts.TTL)
	}
}

func (s *MemoryStore) readLocked(userID string) []screentime.Event {
	w := s.live(userID)
	if w == nil {
		return []screentime.Event{}
	}
	return append([]screentime.Event(nil), w.records...)
}

func (s *MemoryStore) live(userID string) *memoryWindow {
	w, ok := s.windows[userID]
	if !ok {
		return nil
	}
	if !w.expiresAt.IsZero() && s.now().After(w.expiresAt) {
		delete(s.windows, userID)
		return nil
	}
	return w
}
