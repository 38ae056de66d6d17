// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"time"

	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/session"
)

// ProblemKind classifies a pipeline report.
type ProblemKind string

const (
	// ProblemStalled means audio stopped arriving; the text is shown until solved.
	ProblemStalled ProblemKind = "stalled"
	// ProblemSolved clears the current text after the grace period.
	ProblemSolved ProblemKind = "solved"
	// ProblemNotice is shown without affecting playback.
	ProblemNotice ProblemKind = "notice"
	// ProblemFatal stops playback.
	ProblemFatal ProblemKind = "fatal"
)

// Problem implements Events.
func (p *Player) Problem(kind ProblemKind, message string) {
	metrics.RecordProblem(string(kind))

	switch kind {
	case ProblemSolved:
		p.scheduleClear()
		return
	case ProblemFatal:
		p.logger.Error().
			Str(xglog.FieldEvent, "player.fatal").
			Str("problem", message).
			Msg("pipeline failed")
		p.setProblem(message)
		p.machine.Fail()
		p.sess.Stop()
		if el, ok := p.listener.(session.ErrorListener); ok {
			err := &driver.Error{Kind: driver.ErrFatal, Op: "playback", Message: message}
			p.sess.PostEvent(func() { el.Error(driver.SeverityFatal, err) })
		}
		return
	}

	p.logger.Warn().
		Str(xglog.FieldEvent, "player.problem").
		Str("kind", string(kind)).
		Str("problem", message).
		Msg("pipeline problem")
	p.setProblem(message)
}

func (p *Player) setProblem(text string) {
	p.mu.Lock()
	p.problemGen++
	if p.clearTimer != nil {
		p.clearTimer.Stop()
		p.clearTimer = nil
	}
	changed := p.problem != text
	p.problem = text
	p.mu.Unlock()

	if changed {
		p.publishProblem(text)
	}
}

// scheduleClear empties the text after the grace period unless another
// problem arrives first.
func (p *Player) scheduleClear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.problem == "" {
		return
	}
	p.problemGen++
	gen := p.problemGen
	if p.clearTimer != nil {
		p.clearTimer.Stop()
	}
	p.clearTimer = time.AfterFunc(p.cfg.ProblemGrace, func() {
		p.mu.Lock()
		if gen != p.problemGen {
			p.mu.Unlock()
			return
		}
		p.problem = ""
		p.clearTimer = nil
		p.mu.Unlock()
		p.publishProblem("")
	})
}

func (p *Player) publishProblem(text string) {
	if pl, ok := p.listener.(ProblemListener); ok {
		p.sess.PostEvent(func() { pl.CurrentProblem(text) })
	}
}
