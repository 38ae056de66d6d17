// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback implements the three-state playback lifecycle.
package playback

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/pipeline/fsm"
)

// State is the playback lifecycle state.
type State string

const (
	StateStopped   State = "stopped"
	StateBuffering State = "buffering"
	StatePlaying   State = "playing"
)

// Active reports whether audio is being buffered or played.
func (s State) Active() bool {
	return s == StateBuffering || s == StatePlaying
}

// Event drives the lifecycle.
type Event string

const (
	EventPlay        Event = "play"
	EventBufferReady Event = "buffer_ready"
	EventBufferEmpty Event = "buffer_empty"
	EventStop        Event = "stop"
	EventFail        Event = "fail"
)

func transitions() []fsm.Transition[State, Event] {
	return []fsm.Transition[State, Event]{
		{From: StateStopped, Event: EventPlay, To: StateBuffering},
		{From: StateBuffering, Event: EventBufferReady, To: StatePlaying},
		{From: StatePlaying, Event: EventBufferEmpty, To: StateBuffering},
		{From: StateBuffering, Event: EventStop, To: StateStopped},
		{From: StatePlaying, Event: EventStop, To: StateStopped},
		{From: StateBuffering, Event: EventFail, To: StateStopped},
		{From: StatePlaying, Event: EventFail, To: StateStopped},
	}
}

// Machine is the playback state machine. It is safe for concurrent use.
type Machine struct {
	fsm    *fsm.Machine[State, Event]
	logger zerolog.Logger
}

// New returns a machine in StateStopped.
func New() *Machine {
	m, err := fsm.New(StateStopped, transitions())
	if err != nil {
		// The edge table is static; a duplicate is a programming error.
		panic(err)
	}
	pm := &Machine{
		fsm:    m,
		logger: xglog.WithComponent("playback"),
	}
	metrics.SetPlaybackState(string(StateStopped))
	m.Observe(func(from, to State, ev Event) {
		metrics.SetPlaybackState(string(to))
		pm.logger.Debug().
			Str(xglog.FieldEvent, "playback.transition").
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Str("trigger", string(ev)).
			Msg("playback state changed")
	})
	return pm
}

// OnChange registers fn for every committed transition.
func (m *Machine) OnChange(fn func(from, to State)) {
	if fn == nil {
		return
	}
	m.fsm.Observe(func(from, to State, _ Event) { fn(from, to) })
}

// State returns the current state.
func (m *Machine) State() State {
	return m.fsm.State()
}

// Play moves stopped to buffering. Any other state is a logged no-op.
func (m *Machine) Play() bool {
	if !m.fire(EventPlay) {
		m.logger.Info().
			Str(xglog.FieldEvent, "playback.play_ignored").
			Str(xglog.FieldOldState, string(m.State())).
			Msg("play requested while not stopped, ignoring")
		return false
	}
	return true
}

// BufferReady signals the collaborator has enough audio to play.
func (m *Machine) BufferReady() bool { return m.fire(EventBufferReady) }

// BufferEmpty signals a stall.
func (m *Machine) BufferEmpty() bool { return m.fire(EventBufferEmpty) }

// Stop moves an active machine to stopped.
func (m *Machine) Stop() bool { return m.fire(EventStop) }

// Fail moves an active machine to stopped after an unrecoverable error.
func (m *Machine) Fail() bool { return m.fire(EventFail) }

func (m *Machine) fire(ev Event) bool {
	_, err := m.fsm.Fire(context.Background(), ev)
	if err == nil {
		return true
	}
	if !errors.Is(err, fsm.ErrInvalidTransition) {
		m.logger.Warn().Err(err).Str(xglog.FieldEvent, "playback.fire_failed").Msg("transition failed")
	}
	return false
}
