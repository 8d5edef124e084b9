// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small strict state machine used to drive per-message runs.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTerminal is returned when firing an event on a finished machine.
var ErrTerminal = errors.New("fsm: machine is in a terminal state")

// Transition describes a single edge in the FSM.
// Guard may reject the transition; Action performs side-effects.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Guard  func(ctx context.Context, from S, event E) error
	Action func(ctx context.Context, from S, to S, event E) error
}

// Definition is the immutable, validated transition table. Build it once and
// start any number of machines from it.
type Definition[S ~string, E ~string] struct {
	initial  S
	index    map[string]Transition[S, E]
	terminal map[S]struct{}
}

// NewDefinition indexes transitions. Unknown transitions are errors at Fire
// time; duplicate edges and edges leaving a terminal state are errors here.
func NewDefinition[S ~string, E ~string](initial S, transitions []Transition[S, E], terminal ...S) (*Definition[S, E], error) {
	term := make(map[S]struct{}, len(terminal))
	for _, s := range terminal {
		term[s] = struct{}{}
	}
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		if _, ok := term[t.From]; ok {
			return nil, fmt.Errorf("transition leaves terminal state: %s -> %s", t.From, t.Event)
		}
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Definition[S, E]{initial: initial, index: idx, terminal: term}, nil
}

// MustDefinition is NewDefinition for package-level tables.
func MustDefinition[S ~string, E ~string](initial S, transitions []Transition[S, E], terminal ...S) *Definition[S, E] {
	d, err := NewDefinition(initial, transitions, terminal...)
	if err != nil {
		panic(err)
	}
	return d
}

// IsTerminal reports whether s has no outgoing transitions.
func (d *Definition[S, E]) IsTerminal(s S) bool {
	_, ok := d.terminal[s]
	return ok
}

// Start returns a machine in the initial state.
func (d *Definition[S, E]) Start() *Machine[S, E] {
	return &Machine[S, E]{def: d, state: d.initial, history: []S{d.initial}}
}

// Machine is one run through a Definition.
type Machine[S ~string, E ~string] struct {
	def     *Definition[S, E]
	mu      sync.Mutex
	state   S
	history []S
}

func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns every state visited, starting with the initial one.
func (m *Machine[S, E]) History() []S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]S(nil), m.history...)
}

// Fire attempts to apply an event atomically.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.mu.Lock()
	from := m.state
	if m.def.IsTerminal(from) {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: state=%s event=%s", ErrTerminal, from, event)
	}
	t, ok := m.def.index[key(from, event)]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("invalid transition: state=%s event=%s", from, event)
	}

	// Guard + Action run outside the critical section.
	to := t.To
	m.mu.Unlock()

	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, to, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	if m.state != from {
		cur := m.state
		m.mu.Unlock()
		return cur, fmt.Errorf("concurrent transition detected: from=%s cur=%s event=%s", from, cur, event)
	}
	m.state = to
	m.history = append(m.history, to)
	m.mu.Unlock()

	return to, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
