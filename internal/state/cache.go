// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package state holds the last known server-reported facts of one session and
// the per-facet changed flags.
package state

import (
	"sync"
	"time"

	"github.com/ManuGH/livectl/internal/metadata"
)

// Snapshot is a read-only copy of the session facts.
type Snapshot struct {
	BaseURL        string
	PlaybackURI    string
	SwapsLeft      int
	MaxBitRate     int32
	CurrentBitRate *int32
	Bouquet        metadata.Bouquet
	OffsetToLive   *time.Duration
	Metadata       *metadata.View
}

// Services returns the services of the bouquet.
func (s Snapshot) Services() []metadata.Service {
	return s.Bouquet.Services
}

// Cache is the state of one session. Drivers write through the setters, which
// raise a facet's changed flag only when the value actually changed. Everyone
// else reads snapshots. No method blocks beyond a short critical section.
type Cache struct {
	mu      sync.RWMutex
	baseURL string
	uri     string
	swaps   int
	maxBR   int32
	curBR   *int32
	bouquet metadata.Bouquet
	offset  *time.Duration
	meta    *metadata.Node
	view    *metadata.View
	changed map[Facet]bool
}

// NewCache creates an empty cache. SwapsLeft and MaxBitRate start at -1
// meaning "not reported".
func NewCache(baseURL string) *Cache {
	return &Cache{
		baseURL: baseURL,
		swaps:   -1,
		maxBR:   -1,
		changed: make(map[Facet]bool, len(AllFacets)),
	}
}

// Snapshot returns a copy of the current facts.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{
		BaseURL:     c.baseURL,
		PlaybackURI: c.uri,
		SwapsLeft:   c.swaps,
		MaxBitRate:  c.maxBR,
		Bouquet:     c.bouquet.Clone(),
	}
	if c.curBR != nil {
		v := *c.curBR
		s.CurrentBitRate = &v
	}
	if c.offset != nil {
		v := *c.offset
		s.OffsetToLive = &v
	}
	if c.view != nil {
		v := *c.view
		s.Metadata = &v
	}
	return s
}

// HasChanged reports whether facet f changed since it was last cleared.
func (c *Cache) HasChanged(f Facet) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.changed[f]
}

// ClearChanged lowers the changed flag of f.
func (c *Cache) ClearChanged(f Facet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.changed, f)
}

// Changed lists the facets whose flag is raised, in AllFacets order.
func (c *Cache) Changed() []Facet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Facet
	for _, f := range AllFacets {
		if c.changed[f] {
			out = append(out, f)
		}
	}
	return out
}

// MarkChanged raises the flag of f without changing a value. Drivers use it
// when the server announces a change whose value arrives later.
func (c *Cache) MarkChanged(f Facet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed[f] = true
}

// SetBaseURL records where the session currently lives.
func (c *Cache) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = u
}

// SetPlaybackURI records the URI the audio pipeline should load.
func (c *Cache) SetPlaybackURI(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uri = u
}

// SetSwapsLeft updates the remaining item swaps (playout facet).
func (c *Cache) SetSwapsLeft(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swaps != n {
		c.swaps = n
		c.changed[FacetPlayout] = true
	}
}

// SetMaxBitRate updates the bit-rate ceiling in bit/s (playout facet).
func (c *Cache) SetMaxBitRate(bps int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxBR != bps {
		c.maxBR = bps
		c.changed[FacetPlayout] = true
	}
}

// SetCurrentBitRate updates the bit rate currently delivered (playout facet).
func (c *Cache) SetCurrentBitRate(bps *int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if equalPtr(c.curBR, bps) {
		return
	}
	if bps == nil {
		c.curBR = nil
	} else {
		v := *bps
		c.curBR = &v
	}
	c.changed[FacetPlayout] = true
}

// SetBouquet updates the bouquet (bouquet facet). A different active service
// counts as a change.
func (c *Cache) SetBouquet(b metadata.Bouquet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bouquet.Equal(b) {
		return
	}
	c.bouquet = b.Clone()
	c.changed[FacetBouquet] = true
}

// SetOffsetToLive updates the time-shift offset (timeshift facet).
func (c *Cache) SetOffsetToLive(d *time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if equalPtr(c.offset, d) {
		return
	}
	if d == nil {
		c.offset = nil
	} else {
		v := *d
		c.offset = &v
	}
	c.changed[FacetTimeshift] = true
}

// SetMetadata replaces the metadata chain (metadata facet). The flag is raised
// when the resolved view differs from the previous one.
func (c *Cache) SetMetadata(n *metadata.Node) {
	var view *metadata.View
	if n != nil {
		v := n.View()
		view = &v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = n
	if equalView(c.view, view) {
		return
	}
	c.view = view
	c.changed[FacetMetadata] = true
}

// MetadataNode returns the current chain head. The node belongs to the
// session's ordered queue; callers outside it should use Snapshot.
func (c *Cache) MetadataNode() *metadata.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalView(a, b *metadata.View) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
