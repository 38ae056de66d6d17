// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metrics"
	"github.com/ManuGH/livectl/internal/state"
)

// notifyChanged dispatches every changed facet of facets (all when empty)
// that has a listener. With clear set, the flag is lowered together with
// taking the value snapshot, so a flip during dispatch raises it again and
// is not lost. The facet of an armed change-over is never lowered here.
// Runs on the ordered queue.
func (s *Session) notifyChanged(clear bool, facets ...state.Facet) {
	if len(facets) == 0 {
		facets = state.AllFacets
	}
	armed := s.armedFacet()
	for _, f := range facets {
		if !s.cache.HasChanged(f) || !listens(s.listener, f) {
			continue
		}
		snap := s.cache.Snapshot()
		if clear && f != armed {
			s.cache.ClearChanged(f)
		}
		s.dispatch(f, snap)
	}
}

// dispatch posts the callbacks of f to the facet's lane.
func (s *Session) dispatch(f state.Facet, snap state.Snapshot) {
	if !listens(s.listener, f) {
		return
	}
	metrics.RecordNotification(f.String())
	s.logger.Debug().
		Str(xglog.FieldEvent, "notify.dispatch").
		Str(xglog.FieldFacet, f.String()).
		Msg("dispatching facet")
	l := s.listener
	s.lanes[f].Post(func() { emit(l, f, snap) })
}

func (s *Session) armedFacet() state.Facet {
	s.coMu.Lock()
	defer s.coMu.Unlock()
	if s.pending == nil {
		return ""
	}
	return s.pending.facet
}
