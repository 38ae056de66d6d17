// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"time"

	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/state"
)

// A listener implements any subset of the interfaces below. Callbacks run on
// dispatch goroutines, never on the caller's goroutine. Callbacks of one
// facet arrive in order; callbacks of different facets may interleave.

// MetadataListener is told what is playing.
type MetadataListener interface {
	MetadataChanged(v metadata.View)
}

// TimeshiftListener is told the distance to live. nil means unknown.
type TimeshiftListener interface {
	OffsetToLiveChanged(offset *time.Duration)
}

// PlayoutListener is told about swaps and bit rates. Bit rates are in bit/s.
type PlayoutListener interface {
	SwapsChanged(swapsLeft int)
	BitRateChanged(current *int32, max int32)
}

// BouquetListener is told about the selectable services.
type BouquetListener interface {
	ServicesChanged(b metadata.Bouquet)
}

// ErrorListener is told about errors worth showing to a user.
type ErrorListener interface {
	Error(severity driver.Severity, err error)
}

func listens(l any, f state.Facet) bool {
	switch f {
	case state.FacetMetadata:
		_, ok := l.(MetadataListener)
		return ok
	case state.FacetTimeshift:
		_, ok := l.(TimeshiftListener)
		return ok
	case state.FacetPlayout:
		_, ok := l.(PlayoutListener)
		return ok
	case state.FacetBouquet:
		_, ok := l.(BouquetListener)
		return ok
	}
	return false
}

func emit(l any, f state.Facet, snap state.Snapshot) {
	switch f {
	case state.FacetMetadata:
		if ml, ok := l.(MetadataListener); ok && snap.Metadata != nil {
			ml.MetadataChanged(*snap.Metadata)
		}
	case state.FacetTimeshift:
		if tl, ok := l.(TimeshiftListener); ok {
			tl.OffsetToLiveChanged(snap.OffsetToLive)
		}
	case state.FacetPlayout:
		if pl, ok := l.(PlayoutListener); ok {
			pl.SwapsChanged(snap.SwapsLeft)
			pl.BitRateChanged(snap.CurrentBitRate, snap.MaxBitRate)
		}
	case state.FacetBouquet:
		if bl, ok := l.(BouquetListener); ok {
			bl.ServicesChanged(snap.Bouquet)
		}
	}
}
