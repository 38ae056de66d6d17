// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session keeps a driver's state and its listeners in sync and turns
// control actions into exactly one completion each.
//
// Everything that touches the driver or the state cache runs on one ordered
// queue. Listener callbacks run on separate lanes, one per facet, so a slow
// listener cannot stall the session and each facet keeps its order.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/playback"
	"github.com/ManuGH/livectl/internal/state"
)

// DefaultChangeOverTimeout bounds how long an accepted action waits for its
// facet to flip.
const DefaultChangeOverTimeout = 10 * time.Second

// Pipeline is the audio side of a session.
type Pipeline interface {
	// ChangeOverInProgress asks the pipeline to hold back buffered audio of
	// the old content until ChangeOverComplete.
	ChangeOverInProgress(facet state.Facet)
	ChangeOverComplete()
	Stop()
}

// PlaybackState reports the player's lifecycle state.
type PlaybackState interface {
	State() playback.State
}

// Options configures a Session.
type Options struct {
	// Listener implements any of the listener interfaces of this package.
	Listener          any
	Pipeline          Pipeline
	Playback          PlaybackState
	ChangeOverTimeout time.Duration
	HandoffCapacity   int
}

// Session is the control facade of one streaming session.
type Session struct {
	drv      driver.Driver
	cache    *state.Cache
	listener any
	pipeline Pipeline
	playback PlaybackState
	timeout  time.Duration
	handoff  *metadata.Handoff
	logger   zerolog.Logger
	id       string

	ctx    context.Context
	cancel context.CancelFunc

	ordered     *queue
	lanes       map[state.Facet]*queue
	completions *queue
	events      *queue

	coMu    sync.Mutex
	pending *changeOver
	// epoch moves on with every Stop; actions queued before it are void.
	epoch atomic.Uint64

	tokenMu sync.Mutex
	token   uuid.UUID

	closeOnce sync.Once
}

// New creates a session around drv. Nothing happens until Connect.
func New(drv driver.Driver, opts Options) *Session {
	if opts.ChangeOverTimeout <= 0 {
		opts.ChangeOverTimeout = DefaultChangeOverTimeout
	}
	if opts.Pipeline == nil {
		opts.Pipeline = nopPipeline{}
	}
	if opts.Playback == nil {
		opts.Playback = stoppedPlayback{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &Session{
		drv:      drv,
		cache:    drv.State(),
		listener: opts.Listener,
		pipeline: opts.Pipeline,
		playback: opts.Playback,
		timeout:  opts.ChangeOverTimeout,
		handoff:  metadata.NewHandoff(opts.HandoffCapacity),
		id:       id,
		logger: xglog.Derive(func(c *zerolog.Context) {
			*c = c.Str(xglog.FieldComponent, "session").
				Str(xglog.FieldSessionID, id).
				Str(xglog.FieldProtocol, string(drv.Protocol()))
		}),
		ctx:         ctx,
		cancel:      cancel,
		ordered:     newQueue(),
		lanes:       make(map[state.Facet]*queue, len(state.AllFacets)),
		completions: newQueue(),
		events:      newQueue(),
	}
	for _, f := range state.AllFacets {
		s.lanes[f] = newQueue()
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Driver returns the driver the session controls.
func (s *Session) Driver() driver.Driver { return s.drv }

// Snapshot returns the current session facts.
func (s *Session) Snapshot() state.Snapshot { return s.cache.Snapshot() }

// Connect connects the driver on the ordered queue and announces the
// bouquet, timeshift and playout facets. The returned channel yields the
// result once. Connecting an already connected session changes nothing.
func (s *Session) Connect(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	s.ordered.Post(func() {
		err := s.drv.Connect(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str(xglog.FieldEvent, "session.connect_failed").Msg("connect failed")
			s.report(err)
		} else {
			s.logger.Info().Str(xglog.FieldEvent, "session.connected").Msg("session connected")
			s.notifyChanged(true, state.FacetBouquet, state.FacetTimeshift, state.FacetPlayout)
		}
		result <- err
	})
	return result
}

// Stop halts the pipeline, resolves a pending change-over with failure and
// disconnects the driver. It is safe to call at any time and never blocks
// on the network.
func (s *Session) Stop() {
	s.epoch.Add(1)
	s.pipeline.Stop()
	if co := s.takePending(); co != nil {
		s.logger.Info().
			Str(xglog.FieldEvent, "changeover.cancelled").
			Str(xglog.FieldAction, co.action).
			Msg("session stopping, failing pending change-over")
		co.resolve(s.completions, false, metrics.ResultCancelled, driver.ErrClosed)
	}
	s.ordered.Post(func() {
		if err := s.drv.Disconnect(s.ctx); err != nil {
			s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.disconnect_failed").Msg("disconnect failed")
		}
	})
}

// Close stops the session and waits for queued work and callbacks to drain.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Stop()
		s.ordered.Close()
		s.ordered.Wait()
		s.cancel()
		for _, q := range s.lanes {
			q.Close()
		}
		s.completions.Close()
		s.events.Close()
		for _, q := range s.lanes {
			q.Wait()
		}
		s.completions.Wait()
		s.events.Wait()
		s.logger.Info().Str(xglog.FieldEvent, "session.closed").Msg("session closed")
	})
}

// Poll refreshes the session from the server and notifies every changed
// facet. The facet of an armed change-over stays dirty.
func (s *Session) Poll() {
	s.ordered.Post(func() {
		s.refresh()
		s.notifyChanged(true)
	})
}

// Refresh re-emits every listener callback with the current values,
// regardless of the changed flags.
func (s *Session) Refresh() {
	s.ordered.Post(func() {
		snap := s.cache.Snapshot()
		for _, f := range state.AllFacets {
			s.dispatch(f, snap)
		}
	})
}

// MetadataArrived is called by the pipeline when inline metadata was read
// from the stream. The resulting metadata is not published right away: it is
// parked under the token the next MaintainMetadata returns and reaches
// listeners through NotifyMetadata once the matching audio plays.
func (s *Session) MetadataArrived(n *metadata.Node) {
	token := uuid.New()
	s.tokenMu.Lock()
	s.token = token
	s.tokenMu.Unlock()

	s.ordered.Post(func() {
		if sink, ok := s.drv.(interface{ SetInline(*metadata.Node) }); ok {
			sink.SetInline(n)
		}
		if _, ok := s.drv.(driver.Refresher); ok {
			s.refresh()
		} else if n != nil && n.Eligible() {
			s.cache.SetMetadata(n)
		}
		s.resolvePending(state.FacetMetadata)
		s.notifyChanged(true, state.FacetTimeshift, state.FacetPlayout, state.FacetBouquet)
		s.park(token)
	})
}

// park stores the current metadata under token and lowers the metadata
// flag, so the hand-off is its only way to listeners. Runs on the ordered
// queue.
func (s *Session) park(token uuid.UUID) {
	snap := s.cache.Snapshot()
	s.cache.ClearChanged(state.FacetMetadata)
	if snap.Metadata == nil {
		return
	}
	s.handoff.PutAs(token, *snap.Metadata)
}

// AudioCaughtUp is called by the pipeline when the audio it plays reflects
// the latest server state, e.g. after a seek was served.
func (s *Session) AudioCaughtUp() {
	s.ordered.Post(func() {
		s.refresh()
		s.resolvePending("")
		s.notifyChanged(true)
	})
}

// MaintainMetadata returns the token under which the metadata of the last
// MetadataArrived is parked. The pipeline hands it to NotifyMetadata when
// the matching audio is played. uuid.Nil means no tags arrived since the
// previous call.
func (s *Session) MaintainMetadata() uuid.UUID {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	token := s.token
	s.token = uuid.Nil
	return token
}

// NotifyMetadata publishes the metadata parked under token. It is ordered
// after the MetadataArrived that produced the token.
func (s *Session) NotifyMetadata(token uuid.UUID) {
	s.ordered.Post(func() {
		v, ok := s.handoff.Take(token)
		if !ok {
			s.logger.Debug().
				Str(xglog.FieldEvent, "handoff.miss").
				Str(xglog.FieldToken, token.String()).
				Msg("no metadata parked for token")
			return
		}
		if ml, ok := s.listener.(MetadataListener); ok {
			metrics.RecordNotification(state.FacetMetadata.String())
			s.lanes[state.FacetMetadata].Post(func() { ml.MetadataChanged(v) })
		}
	})
}

func (s *Session) refresh() {
	r, ok := s.drv.(driver.Refresher)
	if !ok || !s.drv.Connected() {
		return
	}
	if err := r.Refresh(s.ctx); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.refresh_failed").Msg("refresh failed")
		s.report(err)
	}
}

// report hands err to the error listener.
func (s *Session) report(err error) {
	el, ok := s.listener.(ErrorListener)
	if !ok || err == nil {
		return
	}
	sev := driver.SeverityOf(err)
	s.events.Post(func() { el.Error(sev, err) })
}

// PostEvent runs fn on the event lane, which also carries error callbacks.
// Owners of a session use it to deliver their own listener callbacks in
// order and off the caller's goroutine.
func (s *Session) PostEvent(fn func()) {
	s.events.Post(fn)
}

type nopPipeline struct{}

func (nopPipeline) ChangeOverInProgress(state.Facet) {}
func (nopPipeline) ChangeOverComplete()              {}
func (nopPipeline) Stop()                            {}

type stoppedPlayback struct{}

func (stoppedPlayback) State() playback.State { return playback.StateStopped }
