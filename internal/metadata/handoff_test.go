// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_TakeOnce(t *testing.T) {
	h := NewHandoff(4)
	id := h.Put(View{DisplayTitle: "one"})

	v, ok := h.Take(id)
	require.True(t, ok)
	assert.Equal(t, "one", v.DisplayTitle)

	_, ok = h.Take(id)
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}

func TestHandoff_PutAsReservedToken(t *testing.T) {
	h := NewHandoff(2)
	id := uuid.New()
	h.PutAs(id, View{DisplayTitle: "first"})
	h.PutAs(id, View{DisplayTitle: "second"})
	assert.Equal(t, 1, h.Len())

	v, ok := h.Take(id)
	require.True(t, ok)
	assert.Equal(t, "second", v.DisplayTitle)
}

func TestHandoff_UnknownToken(t *testing.T) {
	h := NewHandoff(0)
	_, ok := h.Take(uuid.New())
	assert.False(t, ok)
}

func TestHandoff_EvictsOldest(t *testing.T) {
	h := NewHandoff(2)
	first := h.Put(View{DisplayTitle: "1"})
	second := h.Put(View{DisplayTitle: "2"})
	third := h.Put(View{DisplayTitle: "3"})

	assert.Equal(t, 2, h.Len())
	_, ok := h.Take(first)
	assert.False(t, ok)
	_, ok = h.Take(second)
	assert.True(t, ok)
	_, ok = h.Take(third)
	assert.True(t, ok)
}

func TestHandoff_Concurrent(t *testing.T) {
	h := NewHandoff(1024)
	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 256)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 64; j++ {
				ids <- h.Put(View{DisplayTitle: "x"})
			}
		}()
	}
	wg.Wait()
	close(ids)

	taken := 0
	for id := range ids {
		if _, ok := h.Take(id); ok {
			taken++
		}
	}
	assert.Equal(t, 256, taken)
}
