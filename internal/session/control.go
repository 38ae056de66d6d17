// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"time"

	"github.com/ManuGH/livectl/internal/bitrate"
	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/state"
)

// Control actions return immediately. done, if set, receives exactly one
// Completion: failure when the driver refused or cannot perform the action,
// success once the facet flipped and the audio caught up.

// WindBy moves the listening position by d; negative goes back.
func (s *Session) WindBy(d time.Duration, done func(Completion)) {
	s.timeShift("wind_by", done, func(ctx context.Context, ts driver.TimeShifter) error {
		return ts.WindBy(ctx, d)
	})
}

// WindTo moves the listening position to t.
func (s *Session) WindTo(t time.Time, done func(Completion)) {
	s.timeShift("wind_to", done, func(ctx context.Context, ts driver.TimeShifter) error {
		return ts.WindTo(ctx, t)
	})
}

// WindToLive returns to the live position.
func (s *Session) WindToLive(done func(Completion)) {
	s.timeShift("wind_to_live", done, func(ctx context.Context, ts driver.TimeShifter) error {
		return ts.WindToLive(ctx)
	})
}

// SkipForward jumps to the next item of typ, any item when typ is nil.
func (s *Session) SkipForward(typ *metadata.ItemType, done func(Completion)) {
	s.timeShift("skip_forward", done, func(ctx context.Context, ts driver.TimeShifter) error {
		return ts.SkipForward(ctx, typ)
	})
}

// SkipBackward jumps to the previous item of typ, any item when typ is nil.
func (s *Session) SkipBackward(typ *metadata.ItemType, done func(Completion)) {
	s.timeShift("skip_backward", done, func(ctx context.Context, ts driver.TimeShifter) error {
		return ts.SkipBackward(ctx, typ)
	})
}

// SwapItem replaces the current item.
func (s *Session) SwapItem(done func(Completion)) {
	s.swap("swap_item", state.FacetMetadata, done, func(ctx context.Context, cs driver.ContentSwapper) error {
		return cs.SwapItem(ctx)
	})
}

// SwapService switches to another service of the bouquet.
func (s *Session) SwapService(serviceID string, done func(Completion)) {
	s.swap("swap_service", state.FacetBouquet, done, func(ctx context.Context, cs driver.ContentSwapper) error {
		return cs.SwapService(ctx, serviceID)
	})
}

// LimitBitRate requests a ceiling in bit/s. The request is quantized up to
// the next ladder tier; requests above the ladder are dropped and the
// current ceiling stays. There is no change-over: listeners learn the new
// ceiling from the playout notification.
func (s *Session) LimitBitRate(bps int32) {
	s.ordered.Post(func() {
		tier, ok := bitrate.Quantize(bps)
		if !ok {
			metrics.RecordBitRateRequest("out_of_range")
			s.logger.Info().
				Str(xglog.FieldEvent, "bitrate.out_of_range").
				Int32(xglog.FieldMaxBitRate, bps).
				Msg("requested bit rate above ladder, keeping current ceiling")
			return
		}
		bl, ok := s.drv.(driver.BitRateLimiter)
		if !ok {
			metrics.RecordBitRateRequest("unsupported")
			s.report(driver.Unsupported(s.drv.Protocol(), "max_bit_rate"))
			return
		}
		if err := bl.LimitBitRate(s.ctx, tier); err != nil {
			metrics.RecordBitRateRequest(metrics.ResultRejected)
			s.report(err)
			return
		}
		metrics.RecordBitRateRequest("accepted")
		s.notifyChanged(true, state.FacetPlayout)
	})
}

func (s *Session) timeShift(action string, done func(Completion), call func(context.Context, driver.TimeShifter) error) {
	s.control(action, state.FacetTimeshift, done, func(ctx context.Context) error {
		ts, ok := s.drv.(driver.TimeShifter)
		if !ok {
			return driver.Unsupported(s.drv.Protocol(), action)
		}
		return call(ctx, ts)
	})
}

func (s *Session) swap(action string, facet state.Facet, done func(Completion), call func(context.Context, driver.ContentSwapper) error) {
	s.control(action, facet, done, func(ctx context.Context) error {
		cs, ok := s.drv.(driver.ContentSwapper)
		if !ok {
			return driver.Unsupported(s.drv.Protocol(), action)
		}
		return call(ctx, cs)
	})
}

func (s *Session) control(action string, facet state.Facet, done func(Completion), call func(context.Context) error) {
	co := newChangeOver(action, facet, done)
	epoch := s.epoch.Load()
	s.ordered.Post(func() {
		if s.epoch.Load() != epoch {
			s.logger.Info().
				Str(xglog.FieldEvent, "changeover.cancelled").
				Str(xglog.FieldAction, co.action).
				Msg("session stopped before the action ran")
			co.resolve(s.completions, false, metrics.ResultCancelled, driver.ErrClosed)
			return
		}
		s.inProgress(co, call(s.ctx))
	})
}

// inProgress continues a change-over once the driver answered. Runs on the
// ordered queue.
func (s *Session) inProgress(co *changeOver, err error) {
	if err != nil {
		s.logger.Info().Err(err).
			Str(xglog.FieldEvent, "changeover.rejected").
			Str(xglog.FieldAction, co.action).
			Msg("control action not accepted")
		s.report(err)
		co.resolve(s.completions, false, metrics.ResultRejected, err)
		return
	}

	// Show the new value right away; the flag stays up for the change-over.
	s.notifyChanged(false, co.facet)

	if !s.playback.State().Active() {
		s.cache.ClearChanged(co.facet)
		co.resolve(s.completions, true, metrics.ResultSuccess, nil)
		return
	}

	s.coMu.Lock()
	prev := s.pending
	s.pending = co
	co.timer = time.AfterFunc(s.timeout, func() { s.expire(co) })
	if prev != nil && prev.timer != nil {
		prev.timer.Stop()
	}
	s.coMu.Unlock()

	if prev != nil {
		s.logger.Info().
			Str(xglog.FieldEvent, "changeover.preempted").
			Str(xglog.FieldAction, prev.action).
			Msg("change-over replaced by a newer action")
		prev.resolve(s.completions, false, metrics.ResultPreempted, nil)
	}
	s.logger.Debug().
		Str(xglog.FieldEvent, "changeover.armed").
		Str(xglog.FieldAction, co.action).
		Str(xglog.FieldFacet, co.facet.String()).
		Msg("waiting for audio to catch up")
	s.pipeline.ChangeOverInProgress(co.facet)
}

// resolvePending completes the armed change-over if its facet flipped. A
// held facet is published by the caller through another path. Runs on the
// ordered queue.
func (s *Session) resolvePending(held state.Facet) {
	s.coMu.Lock()
	co := s.pending
	if co == nil {
		s.coMu.Unlock()
		return
	}
	if !s.cache.HasChanged(co.facet) {
		s.coMu.Unlock()
		if changed := s.cache.Changed(); len(changed) > 0 {
			facets := make([]string, len(changed))
			for i, f := range changed {
				facets[i] = f.String()
			}
			s.logger.Debug().
				Str(xglog.FieldEvent, "changeover.facet_mismatch").
				Str(xglog.FieldFacet, co.facet.String()).
				Strs("changed", facets).
				Msg("observed change does not match pending change-over")
		}
		return
	}
	s.pending = nil
	if co.timer != nil {
		co.timer.Stop()
	}
	s.coMu.Unlock()

	if co.facet != held {
		s.notifyChanged(true, co.facet)
	}
	s.cache.ClearChanged(co.facet)
	s.pipeline.ChangeOverComplete()
	s.logger.Debug().
		Str(xglog.FieldEvent, "changeover.completed").
		Str(xglog.FieldAction, co.action).
		Msg("change-over complete")
	co.resolve(s.completions, true, metrics.ResultSuccess, nil)
}

// expire fails co on the ordered queue if it is still armed when its timer
// fires.
func (s *Session) expire(co *changeOver) {
	s.ordered.Post(func() {
		s.coMu.Lock()
		if s.pending != co {
			s.coMu.Unlock()
			return
		}
		s.pending = nil
		s.coMu.Unlock()

		s.logger.Warn().
			Str(xglog.FieldEvent, "changeover.timeout").
			Str(xglog.FieldAction, co.action).
			Dur("timeout", s.timeout).
			Msg("facet never flipped, failing change-over")
		s.pipeline.ChangeOverComplete()
		co.resolve(s.completions, false, metrics.ResultTimeout, driver.ErrTransportFailure)
	})
}

// takePending disarms and returns the pending change-over, if any.
func (s *Session) takePending() *changeOver {
	s.coMu.Lock()
	defer s.coMu.Unlock()
	co := s.pending
	s.pending = nil
	if co != nil && co.timer != nil {
		co.timer.Stop()
	}
	return co
}
