// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm provides a small, strict finite state machine runner.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned by Fire when no edge exists for the
// current state and event.
var ErrInvalidTransition = errors.New("fsm: invalid transition")

// Transition describes a single edge in the machine.
// Guard may veto the edge; Action runs the side effect before the state moves.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Guard  func(ctx context.Context, from S, event E) error
	Action func(ctx context.Context, from, to S, event E) error
}

// Observer is invoked after every committed transition, outside the lock.
type Observer[S ~string, E ~string] func(from, to S, event E)

// Machine runs transitions one at a time. Unknown edges are errors.
type Machine[S ~string, E ~string] struct {
	fire  sync.Mutex // serialises Fire so guard/action never race a second event
	mu    sync.RWMutex
	state S
	index map[edge[S, E]]Transition[S, E]
	obs   []Observer[S, E]
}

type edge[S ~string, E ~string] struct {
	from  S
	event E
}

// New builds a machine from its edge list. Duplicate edges are rejected.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[edge[S, E]]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := edge[S, E]{from: t.From, event: t.Event}
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("fsm: duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// Observe registers fn to be told about committed transitions.
func (m *Machine[S, E]) Observe(fn Observer[S, E]) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.obs = append(m.obs, fn)
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Can reports whether event has an edge from the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[edge[S, E]{from: m.state, event: event}]
	return ok
}

// Fire applies event. On error the state is unchanged and the current state
// is returned alongside the error.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.fire.Lock()
	defer m.fire.Unlock()

	m.mu.RLock()
	from := m.state
	t, ok := m.index[edge[S, E]{from: from, event: event}]
	m.mu.RUnlock()
	if !ok {
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}

	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, t.To, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	m.state = t.To
	obs := append([]Observer[S, E](nil), m.obs...)
	m.mu.Unlock()

	for _, fn := range obs {
		fn(from, t.To, event)
	}
	return t.To, nil
}
