// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"sync"
	"time"

	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/state"
)

// Completion is the single outcome of a control action.
type Completion struct {
	Action  string
	Facet   state.Facet
	Success bool
	// Result is one of the metrics.Result* values.
	Result string
	Err    error
}

// changeOver ties one control action to the facet flip that confirms it.
type changeOver struct {
	action  string
	facet   state.Facet
	started time.Time
	done    func(Completion)

	once  sync.Once
	timer *time.Timer // guarded by Session.coMu
}

func newChangeOver(action string, facet state.Facet, done func(Completion)) *changeOver {
	return &changeOver{
		action:  action,
		facet:   facet,
		started: time.Now(),
		done:    done,
	}
}

// resolve delivers the outcome through sink exactly once.
func (c *changeOver) resolve(sink *queue, success bool, result string, err error) {
	c.once.Do(func() {
		metrics.RecordChangeOver(string(c.facet), result, time.Since(c.started))
		if c.done == nil {
			return
		}
		out := Completion{Action: c.action, Facet: c.facet, Success: success, Result: result, Err: err}
		sink.Post(func() { c.done(out) })
	})
}
