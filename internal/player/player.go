// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player is the facade applications use: it owns the playback
// lifecycle, the session and the audio pipeline of one stream.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/bitrate"
	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/driver/native"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/playback"
	"github.com/ManuGH/livectl/internal/session"
	"github.com/ManuGH/livectl/internal/state"
)

// Defaults for Config.
const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultProblemGrace    = 5 * time.Second
)

// Config describes one player.
type Config struct {
	Endpoint          string
	Protocol          driver.Protocol
	Native            native.Options
	ChangeOverTimeout time.Duration
	RefreshInterval   time.Duration
	ProblemGrace      time.Duration
	HandoffCapacity   int
	// MaxBitRateKbps is applied after connect when positive.
	MaxBitRateKbps int32
}

// Events is how a pipeline reports back to its player.
//
// Every MetadataArrived must be followed by MaintainMetadata. The returned
// token goes to NotifyMetadata once the audio preceding the metadata has
// been played out.
type Events interface {
	BufferReady()
	BufferEmpty()
	MetadataArrived(n *metadata.Node)
	AudioCaughtUp()
	Problem(kind ProblemKind, message string)
	MaintainMetadata() uuid.UUID
	NotifyMetadata(token uuid.UUID)
}

// Pipeline plays the audio of a session.
type Pipeline interface {
	session.Pipeline
	// Start begins playing uri in the background and reports through events.
	Start(ctx context.Context, uri string, events Events) error
}

// StateListener is told about playback lifecycle changes.
type StateListener interface {
	StateChanged(s playback.State)
}

// ProblemListener is told the current problem text; empty means none.
type ProblemListener interface {
	CurrentProblem(text string)
}

// Player drives one stream.
type Player struct {
	cfg      Config
	drv      driver.Driver
	sess     *session.Session
	machine  *playback.Machine
	pipeline Pipeline
	listener any
	logger   zerolog.Logger

	mu         sync.Mutex
	problem    string
	problemGen uint64
	clearTimer *time.Timer

	pollStop  chan struct{}
	pollDone  chan struct{}
	closeOnce sync.Once
}

// Open detects the protocol, connects the session and starts refreshing it.
// listener may implement the session listener interfaces as well as
// StateListener, ProblemListener and session.ErrorListener.
func Open(ctx context.Context, cfg Config, pipeline Pipeline, listener any) (*Player, error) {
	if pipeline == nil {
		return nil, errors.New("player: pipeline is required")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.ProblemGrace <= 0 {
		cfg.ProblemGrace = DefaultProblemGrace
	}

	drv, err := DetectDriver(ctx, cfg.Endpoint, cfg.Protocol, cfg.Native)
	if err != nil {
		return nil, fmt.Errorf("player: %w", err)
	}

	p := &Player{
		cfg:      cfg,
		drv:      drv,
		machine:  playback.New(),
		pipeline: pipeline,
		listener: listener,
		pollStop: make(chan struct{}),
		pollDone: make(chan struct{}),
	}
	p.sess = session.New(drv, session.Options{
		Listener:          listener,
		Pipeline:          pipeline,
		Playback:          p.machine,
		ChangeOverTimeout: cfg.ChangeOverTimeout,
		HandoffCapacity:   cfg.HandoffCapacity,
	})
	p.logger = xglog.WithComponentFromContext(xglog.ContextWithSessionID(ctx, p.sess.ID()), "player")
	p.machine.OnChange(func(_, to playback.State) {
		if sl, ok := p.listener.(StateListener); ok {
			p.sess.PostEvent(func() { sl.StateChanged(to) })
		}
	})

	if err := p.connect(ctx); err != nil {
		p.sess.Close()
		return nil, err
	}
	if cfg.MaxBitRateKbps > 0 {
		p.MaxBitRate(cfg.MaxBitRateKbps)
	}
	go p.poll()

	p.logger.Info().
		Str(xglog.FieldEvent, "player.opened").
		Str(xglog.FieldProtocol, string(drv.Protocol())).
		Msg("player ready")
	return p, nil
}

func (p *Player) connect(ctx context.Context) error {
	select {
	case err := <-p.sess.Connect(ctx):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play connects if needed and starts the pipeline. Playing while already
// buffering or playing does nothing.
func (p *Player) Play(ctx context.Context) error {
	if !p.machine.Play() {
		return nil
	}
	if err := p.connect(ctx); err != nil {
		p.machine.Fail()
		return fmt.Errorf("player: %w", err)
	}
	uri := p.sess.Snapshot().PlaybackURI
	if err := p.pipeline.Start(ctx, uri, p); err != nil {
		p.machine.Fail()
		p.sess.Stop()
		return fmt.Errorf("player: start pipeline: %w", err)
	}
	return nil
}

// Stop halts audio and disconnects. A pending change-over fails.
func (p *Player) Stop() {
	p.machine.Stop()
	p.sess.Stop()
}

// Close stops the player and releases every goroutine it started.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.pollStop)
		<-p.pollDone
		p.Stop()
		p.mu.Lock()
		if p.clearTimer != nil {
			p.clearTimer.Stop()
		}
		p.mu.Unlock()
		p.sess.Close()
		p.logger.Info().Str(xglog.FieldEvent, "player.closed").Msg("player closed")
	})
}

// State returns the playback state.
func (p *Player) State() playback.State { return p.machine.State() }

// Snapshot returns the session facts.
func (p *Player) Snapshot() state.Snapshot { return p.sess.Snapshot() }

// Protocol returns the protocol of the session.
func (p *Player) Protocol() driver.Protocol { return p.drv.Protocol() }

// Connected reports whether the control session is open.
func (p *Player) Connected() bool { return p.drv.Connected() }

// CurrentProblem returns the text of the current problem, empty when none.
func (p *Player) CurrentProblem() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.problem
}

// Refresh re-emits every listener callback with current values.
func (p *Player) Refresh() { p.sess.Refresh() }

// WindBy moves the position by d.
func (p *Player) WindBy(d time.Duration, done func(session.Completion)) { p.sess.WindBy(d, done) }

// WindTo moves the position to t.
func (p *Player) WindTo(t time.Time, done func(session.Completion)) { p.sess.WindTo(t, done) }

// WindToLive returns to live.
func (p *Player) WindToLive(done func(session.Completion)) { p.sess.WindToLive(done) }

// SkipForward jumps to the next item of typ.
func (p *Player) SkipForward(typ *metadata.ItemType, done func(session.Completion)) {
	p.sess.SkipForward(typ, done)
}

// SkipBackward jumps to the previous item of typ.
func (p *Player) SkipBackward(typ *metadata.ItemType, done func(session.Completion)) {
	p.sess.SkipBackward(typ, done)
}

// SwapItem replaces the current item.
func (p *Player) SwapItem(done func(session.Completion)) { p.sess.SwapItem(done) }

// SwapService switches the active service.
func (p *Player) SwapService(id string, done func(session.Completion)) { p.sess.SwapService(id, done) }

// MaxBitRate requests a ceiling in kbit/s.
func (p *Player) MaxBitRate(kbps int32) {
	p.sess.LimitBitRate(bitrate.FromKbps(kbps))
}

// Reconnect re-creates the server session when the driver supports it.
func (p *Player) Reconnect(ctx context.Context) error {
	rc, ok := p.drv.(driver.Reconnector)
	if !ok {
		return driver.Unsupported(p.drv.Protocol(), "reconnect")
	}
	p.Stop()
	if err := rc.Reconnect(ctx); err != nil {
		return fmt.Errorf("player: %w", err)
	}
	return p.connect(ctx)
}

func (p *Player) poll() {
	defer close(p.pollDone)
	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.pollStop:
			return
		case <-ticker.C:
			if p.drv.Connected() {
				p.sess.Poll()
			}
		}
	}
}

// BufferReady implements Events.
func (p *Player) BufferReady() {
	if p.machine.BufferReady() {
		p.Problem(ProblemSolved, "")
	}
}

// BufferEmpty implements Events.
func (p *Player) BufferEmpty() {
	if p.machine.BufferEmpty() {
		p.Problem(ProblemStalled, "buffer ran empty, waiting for audio")
	}
}

// MetadataArrived implements Events.
func (p *Player) MetadataArrived(n *metadata.Node) { p.sess.MetadataArrived(n) }

// AudioCaughtUp implements Events.
func (p *Player) AudioCaughtUp() { p.sess.AudioCaughtUp() }

// MaintainMetadata implements Events.
func (p *Player) MaintainMetadata() uuid.UUID { return p.sess.MaintainMetadata() }

// NotifyMetadata implements Events.
func (p *Player) NotifyMetadata(token uuid.UUID) { p.sess.NotifyMetadata(token) }
