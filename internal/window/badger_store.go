// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/ManuGH/riskwatch/internal/screentime"
)

// BadgerStore is the embedded backend for single-node deployments:
// - window: key = "user:<id>:screen_time_window" (JSON array of records)
// The append and the trim happen inside one read-write transaction.
type BadgerStore struct {
	db     *badger.DB
	opts   Options
	logger zerolog.Logger
}

// OpenBadgerStore opens (or creates) a Badger database at path. An empty path
// opens an in-memory database.
func OpenBadgerStore(path string, opts Options, logger zerolog.Logger) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger window store: %w", err)
	}
	return &BadgerStore{db: db, opts: opts.withDefaults(), logger: logger}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Append(ctx context.Context, userID string, evt screentime.Event) error {
	_, err := s.AppendRead(ctx, userID, evt)
	return err
}

func (s *BadgerStore) Read(_ context.Context, userID string) ([]screentime.Event, error) {
	var raw []json.RawMessage
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		raw, err = s.load(txn, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, Key(userID), err)
	}
	return decodeRecords(s.logger, userID, rawBytes(raw)), nil
}

func (s *BadgerStore) AppendRead(_ context.Context, userID string, evt screentime.Event) ([]screentime.Event, error) {
	payload, err := encodeRecord(evt)
	if err != nil {
		return nil, fmt.Errorf("encode window record: %w", err)
	}
	key := []byte(Key(userID))

	var out []json.RawMessage
	err = s.db.Update(func(txn *badger.Txn) error {
		records, err := s.load(txn, userID)
		if err != nil {
			return err
		}
		records = append(records, payload)
		if over := len(records) - s.opts.Size; over > 0 {
			records = records[over:]
		}
		buf, err := json.Marshal(records)
		if err != nil {
			return err
		}
		entry := badger.NewEntry(key, buf)
		if s.opts.TTL > 0 {
			entry = entry.WithTTL(s.opts.TTL)
		}
		out = records
		return txn.SetEntry(entry)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: append %s: %v", ErrUnavailable, key, err)
	}
	return decodeRecords(s.logger, userID, rawBytes(out)), nil
}

func (s *BadgerStore) load(txn *badger.Txn, userID string) ([]json.RawMessage, error) {
	item, err := txn.Get([]byte(Key(userID)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &records)
	}); err != nil {
		return nil, err
	}
	return records, nil
}

func rawBytes(raw []json.RawMessage) [][]byte {
	out := make([][]byte, len(raw))
	for i, r := range raw {
		out[i] = r
	}
	return out
}
