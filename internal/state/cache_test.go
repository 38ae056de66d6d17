// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package state

import (
	"testing"
	"time"

	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCache_InitialState(t *testing.T) {
	c := NewCache("https://edge.example.invalid/ctrl")
	s := c.Snapshot()

	assert.Equal(t, "https://edge.example.invalid/ctrl", s.BaseURL)
	assert.Equal(t, -1, s.SwapsLeft)
	assert.Equal(t, int32(-1), s.MaxBitRate)
	assert.Nil(t, s.OffsetToLive)
	assert.Nil(t, s.Metadata)
	assert.Empty(t, c.Changed())
}

func TestCache_FlagsOnlyOnChange(t *testing.T) {
	c := NewCache("")

	c.SetOffsetToLive(ptr(-20 * time.Second))
	assert.Equal(t, []Facet{FacetTimeshift}, c.Changed())
	c.ClearChanged(FacetTimeshift)

	c.SetOffsetToLive(ptr(-20 * time.Second))
	assert.False(t, c.HasChanged(FacetTimeshift), "same value must not raise the flag")

	c.SetMaxBitRate(32000)
	c.SetSwapsLeft(3)
	c.SetCurrentBitRate(ptr(int32(32000)))
	assert.Equal(t, []Facet{FacetPlayout}, c.Changed())
}

func TestCache_FacetsAreIndependent(t *testing.T) {
	c := NewCache("")
	c.SetBouquet(metadata.Bouquet{Active: "a", Services: []metadata.Service{{Identifier: "a"}}})
	c.SetOffsetToLive(ptr(time.Duration(0)))

	c.ClearChanged(FacetBouquet)
	assert.False(t, c.HasChanged(FacetBouquet))
	assert.True(t, c.HasChanged(FacetTimeshift))
	assert.False(t, c.HasChanged(FacetMetadata))
	assert.False(t, c.HasChanged(FacetPlayout))
}

func TestCache_BouquetActiveSwitchIsAChange(t *testing.T) {
	c := NewCache("")
	services := []metadata.Service{{Identifier: "a"}, {Identifier: "b"}}
	c.SetBouquet(metadata.Bouquet{Active: "a", Services: services})
	c.ClearChanged(FacetBouquet)

	c.SetBouquet(metadata.Bouquet{Active: "b", Services: services})
	assert.True(t, c.HasChanged(FacetBouquet))
}

func TestCache_MetadataViewComparison(t *testing.T) {
	c := NewCache("")
	c.SetMetadata(metadata.NewNode(metadata.SourceNative, &metadata.Item{DisplayTitle: "one"}, nil, nil))
	require.True(t, c.HasChanged(FacetMetadata))
	c.ClearChanged(FacetMetadata)

	// a new node resolving to the same view is no change
	c.SetMetadata(metadata.NewNode(metadata.SourceICY, &metadata.Item{DisplayTitle: "one"}, nil, nil))
	assert.False(t, c.HasChanged(FacetMetadata))

	c.SetMetadata(metadata.NewNode(metadata.SourceICY, &metadata.Item{DisplayTitle: "two"}, nil, nil))
	assert.True(t, c.HasChanged(FacetMetadata))

	got := c.Snapshot().Metadata
	require.NotNil(t, got)
	want := metadata.View{
		DisplayTitle: "two",
		Current:      metadata.Item{DisplayTitle: "two"},
		Service:      metadata.DefaultService,
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestCache_SnapshotIsDetached(t *testing.T) {
	c := NewCache("")
	c.SetBouquet(metadata.Bouquet{Services: []metadata.Service{{Identifier: "a"}}})
	c.SetOffsetToLive(ptr(time.Second))

	s := c.Snapshot()
	s.Bouquet.Services[0].Identifier = "mutated"
	*s.OffsetToLive = time.Hour

	again := c.Snapshot()
	assert.Equal(t, "a", again.Services()[0].Identifier)
	assert.Equal(t, time.Second, *again.OffsetToLive)
}

func TestFacet_Valid(t *testing.T) {
	for _, f := range AllFacets {
		assert.True(t, f.Valid())
	}
	assert.False(t, Facet("volume").Valid())
}
