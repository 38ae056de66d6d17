// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package state

// Facet is one independently tracked category of session state.
type Facet string

const (
	FacetMetadata  Facet = "metadata"
	FacetTimeshift Facet = "timeshift"
	FacetPlayout   Facet = "playout"
	FacetBouquet   Facet = "bouquet"
)

// AllFacets lists every facet in a fixed order.
var AllFacets = []Facet{FacetMetadata, FacetTimeshift, FacetPlayout, FacetBouquet}

func (f Facet) String() string {
	return string(f)
}

// Valid reports whether f is one of the four known facets.
func (f Facet) Valid() bool {
	switch f {
	case FacetMetadata, FacetTimeshift, FacetPlayout, FacetBouquet:
		return true
	}
	return false
}
