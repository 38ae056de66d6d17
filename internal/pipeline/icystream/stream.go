// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package icystream reads a Shoutcast/Icecast style HTTP audio stream,
// extracts its inline metadata and reports buffer health to a player.
// Audio bytes are consumed and discarded; decoding belongs to the host.
package icystream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/player"
	"github.com/ManuGH/livectl/internal/state"
)

const (
	defaultStallTimeout  = 5 * time.Second
	defaultHeaderTimeout = 10 * time.Second
	readChunk            = 4096
)

// Options configures a Pipeline.
type Options struct {
	// StallTimeout is how long a read may block before the buffer counts as empty.
	StallTimeout time.Duration
	// HeaderTimeout bounds the wait for response headers.
	HeaderTimeout time.Duration
	UserAgent     string
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Pipeline implements player.Pipeline over an HTTP stream.
type Pipeline struct {
	client    *http.Client
	stall     time.Duration
	userAgent string
	logger    zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	catchUp atomic.Bool
}

// New creates an idle pipeline.
func New(opts Options) *Pipeline {
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = defaultStallTimeout
	}
	if opts.HeaderTimeout <= 0 {
		opts.HeaderTimeout = defaultHeaderTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "livectl"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: opts.HeaderTimeout,
				TLSHandshakeTimeout:   5 * time.Second,
				IdleConnTimeout:       30 * time.Second,
			},
		}
	}
	return &Pipeline{
		client:    client,
		stall:     opts.StallTimeout,
		userAgent: opts.UserAgent,
		logger:    xglog.WithComponent("icystream"),
	}
}

// Start opens uri and reads it in the background until Stop or the end of
// the stream. A running stream is replaced.
func (p *Pipeline) Start(ctx context.Context, uri string, events player.Events) error {
	p.Stop()
	p.Wait()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	req, err := http.NewRequestWithContext(runCtx, http.MethodGet, uri, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("icystream: build request: %w", err)
	}
	req.Header.Set("Icy-MetaData", "1")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("icystream: open %s: %w", uri, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return fmt.Errorf("icystream: open %s: unexpected status %d", uri, resp.StatusCode)
	}

	metaint := 0
	if raw := resp.Header.Get("icy-metaint"); raw != "" {
		metaint, err = strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || metaint < 0 {
			_ = resp.Body.Close()
			cancel()
			return fmt.Errorf("icystream: invalid icy-metaint %q", raw)
		}
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()
	p.catchUp.Store(false)

	p.logger.Info().
		Str(xglog.FieldEvent, "icystream.started").
		Str(xglog.FieldEndpoint, uri).
		Int("metaint", metaint).
		Msg("stream opened")

	r := &reader{
		body:    resp.Body,
		metaint: metaint,
		service: serviceFromHeader(resp.Header),
		events:  events,
		stall:   p.stall,
		catchUp: &p.catchUp,
		logger:  p.logger,
	}
	go func() {
		defer close(done)
		defer cancel()
		r.run(runCtx)
	}()
	return nil
}

// Stop ends the running stream without waiting for the reader to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the last started reader has exited.
func (p *Pipeline) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ChangeOverInProgress makes the next audio read report AudioCaughtUp.
func (p *Pipeline) ChangeOverInProgress(f state.Facet) {
	p.logger.Debug().
		Str(xglog.FieldEvent, "icystream.changeover").
		Str(xglog.FieldFacet, string(f)).
		Msg("waiting for audio to catch up")
	p.catchUp.Store(true)
}

// ChangeOverComplete stops waiting for catch-up.
func (p *Pipeline) ChangeOverComplete() {
	p.catchUp.Store(false)
}

func serviceFromHeader(h http.Header) *metadata.Service {
	name := strings.TrimSpace(h.Get("icy-name"))
	if name == "" {
		return nil
	}
	return &metadata.Service{
		Identifier:  name,
		DisplayName: name,
		Genre:       strings.TrimSpace(h.Get("icy-genre")),
		Description: strings.TrimSpace(h.Get("icy-description")),
		InfoURI:     strings.TrimSpace(h.Get("icy-url")),
	}
}

type reader struct {
	body    io.ReadCloser
	metaint int
	service *metadata.Service
	events  player.Events
	stall   time.Duration
	catchUp *atomic.Bool
	logger  zerolog.Logger

	started bool
	stalled atomic.Bool
	// pending is the hand-off token of tags waiting for their audio.
	pending uuid.UUID
}

func (r *reader) run(ctx context.Context) {
	defer func() { _ = r.body.Close() }()
	go func() {
		<-ctx.Done()
		_ = r.body.Close()
	}()

	watchdog := time.AfterFunc(r.stall, r.onStall)
	defer watchdog.Stop()

	if r.service != nil {
		r.events.MetadataArrived(metadata.NewNode(metadata.SourceICY, nil, nil, r.service))
		r.pending = r.events.MaintainMetadata()
	}

	buf := make([]byte, readChunk)
	for {
		if err := r.readAudio(buf, watchdog); err != nil {
			r.finish(ctx, err)
			return
		}
		if r.metaint == 0 {
			continue
		}
		if err := r.readBlock(watchdog); err != nil {
			r.finish(ctx, err)
			return
		}
	}
}

// readAudio consumes one metadata interval of audio, or one chunk when the
// stream carries no inline metadata.
func (r *reader) readAudio(buf []byte, watchdog *time.Timer) error {
	want := r.metaint
	if want == 0 {
		want = len(buf)
	}
	for want > 0 {
		n := min(want, len(buf))
		got, err := r.body.Read(buf[:n])
		if got > 0 {
			watchdog.Reset(r.stall)
			r.onAudio()
			want -= got
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readBlock(watchdog *time.Timer) error {
	var size [1]byte
	if _, err := io.ReadFull(r.body, size[:]); err != nil {
		return err
	}
	block := make([]byte, 1+int(size[0])*16)
	block[0] = size[0]
	if _, err := io.ReadFull(r.body, block[1:]); err != nil {
		return err
	}
	watchdog.Reset(r.stall)

	payload, _, err := metadata.DecodeBlock(block)
	if err != nil || len(payload) == 0 {
		return nil
	}
	node := metadata.ParseICY(payload)
	if r.service != nil {
		node.SetService(*r.service)
	}
	r.logger.Debug().
		Str(xglog.FieldEvent, "icystream.metadata").
		Str("title", node.DisplayTitle()).
		Msg("inline metadata")
	r.events.MetadataArrived(node)
	r.pending = r.events.MaintainMetadata()
	return nil
}

func (r *reader) onAudio() {
	if !r.started {
		r.started = true
		r.events.BufferReady()
	}
	if r.stalled.CompareAndSwap(true, false) {
		r.events.BufferReady()
	}
	if r.pending != uuid.Nil {
		token := r.pending
		r.pending = uuid.Nil
		r.events.NotifyMetadata(token)
	}
	if r.catchUp.CompareAndSwap(true, false) {
		r.events.AudioCaughtUp()
	}
}

func (r *reader) onStall() {
	if r.stalled.CompareAndSwap(false, true) {
		r.logger.Warn().
			Str(xglog.FieldEvent, "icystream.stalled").
			Dur("after", r.stall).
			Msg("no audio received")
		r.events.BufferEmpty()
	}
}

func (r *reader) finish(ctx context.Context, err error) {
	if ctx.Err() != nil {
		r.logger.Info().Str(xglog.FieldEvent, "icystream.stopped").Msg("stream stopped")
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		r.logger.Warn().Str(xglog.FieldEvent, "icystream.eof").Msg("stream ended")
		r.events.Problem(player.ProblemFatal, "the stream ended")
		return
	}
	r.logger.Error().Err(err).Str(xglog.FieldEvent, "icystream.read_failed").Msg("stream read failed")
	r.events.Problem(player.ProblemFatal, "the stream could not be read")
}
