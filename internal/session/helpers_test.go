// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/driver/native"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/playback"
	"github.com/ManuGH/livectl/internal/state"
)

const wait = 2 * time.Second

type recorder struct {
	mu       sync.Mutex
	metadata []metadata.View
	offsets  []*time.Duration
	swaps    []int
	maxRates []int32
	bouquets []metadata.Bouquet
	errs     []error
}

func (r *recorder) MetadataChanged(v metadata.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = append(r.metadata, v)
}

func (r *recorder) OffsetToLiveChanged(o *time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offsets = append(r.offsets, o)
}

func (r *recorder) SwapsChanged(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swaps = append(r.swaps, n)
}

func (r *recorder) BitRateChanged(_ *int32, maxBR int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxRates = append(r.maxRates, maxBR)
}

func (r *recorder) ServicesChanged(b metadata.Bouquet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bouquets = append(r.bouquets, b)
}

func (r *recorder) Error(_ driver.Severity, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata, r.offsets, r.swaps = nil, nil, nil
	r.maxRates, r.bouquets, r.errs = nil, nil, nil
}

func (r *recorder) counts() (meta, offsets, playout, bouquets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.metadata), len(r.offsets), len(r.maxRates), len(r.bouquets)
}

func (r *recorder) lastMaxRate() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.maxRates) == 0 {
		return -1
	}
	return r.maxRates[len(r.maxRates)-1]
}

type fakePipeline struct {
	mu        sync.Mutex
	armed     []state.Facet
	completed int
	stopped   int
}

func (p *fakePipeline) ChangeOverInProgress(f state.Facet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = append(p.armed, f)
}

func (p *fakePipeline) ChangeOverComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
}

func (p *fakePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
}

func (p *fakePipeline) snapshot() (armed []state.Facet, completed, stopped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]state.Facet(nil), p.armed...), p.completed, p.stopped
}

type fixedPlayback struct {
	mu sync.Mutex
	st playback.State
}

func (f *fixedPlayback) State() playback.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fixedPlayback) set(st playback.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.st = st
}

// completions collects Completion values and counts invocations per action.
type completions struct {
	ch chan Completion
}

func newCompletions() *completions {
	return &completions{ch: make(chan Completion, 16)}
}

func (c *completions) done(out Completion) { c.ch <- out }

func (c *completions) next(t *testing.T) Completion {
	t.Helper()
	select {
	case out := <-c.ch:
		return out
	case <-time.After(wait):
		t.Fatal("no completion delivered")
		return Completion{}
	}
}

func (c *completions) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case out := <-c.ch:
		t.Fatalf("unexpected completion %+v", out)
	case <-time.After(within):
	}
}

type harness struct {
	srv      *native.MockServer
	sess     *Session
	rec      *recorder
	pipe     *fakePipeline
	playback *fixedPlayback
}

func newHarness(t *testing.T, st playback.State, timeout time.Duration) *harness {
	t.Helper()
	srv := native.NewMockServer()
	t.Cleanup(srv.Close)

	h := &harness{
		srv:      srv,
		rec:      &recorder{},
		pipe:     &fakePipeline{},
		playback: &fixedPlayback{st: st},
	}
	drv := native.New(srv.URL, native.Options{Timeout: time.Second, RateLimit: 1000})
	h.sess = New(drv, Options{
		Listener:          h.rec,
		Pipeline:          h.pipe,
		Playback:          h.playback,
		ChangeOverTimeout: timeout,
	})
	t.Cleanup(h.sess.Close)

	require.NoError(t, <-h.sess.Connect(context.Background()))
	h.settle(t)
	h.rec.reset()
	return h
}

// settle waits until every task posted so far ran on the ordered queue and
// every lane drained what it had.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	h.sess.ordered.Post(func() {
		var wg sync.WaitGroup
		for _, q := range append(laneList(h.sess), h.sess.completions, h.sess.events) {
			wg.Add(1)
			q.Post(wg.Done)
		}
		go func() { wg.Wait(); close(done) }()
	})
	select {
	case <-done:
	case <-time.After(wait):
		t.Fatal("session did not settle")
	}
}

func laneList(s *Session) []*queue {
	out := make([]*queue, 0, len(s.lanes))
	for _, f := range state.AllFacets {
		out = append(out, s.lanes[f])
	}
	return out
}

func nativeDriver(srv *native.MockServer) driver.Driver {
	return native.New(srv.URL, native.Options{Timeout: time.Second, RateLimit: 1000})
}
