// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultHandoffCapacity bounds the number of parked views.
const DefaultHandoffCapacity = 16

// Handoff parks metadata views between the audio intake, which takes a
// snapshot when tags arrive, and the listener side, which publishes it when
// the matching audio is heard. Each token is taken at most once.
type Handoff struct {
	mu       sync.Mutex
	capacity int
	views    map[uuid.UUID]View
	order    []uuid.UUID
}

// NewHandoff creates a hand-off with the given capacity. When full, the
// oldest parked view is dropped.
func NewHandoff(capacity int) *Handoff {
	if capacity <= 0 {
		capacity = DefaultHandoffCapacity
	}
	return &Handoff{
		capacity: capacity,
		views:    make(map[uuid.UUID]View, capacity),
	}
}

// Put parks v and returns the one-time token for it.
func (h *Handoff) Put(v View) uuid.UUID {
	id := uuid.New()
	h.PutAs(id, v)
	return id
}

// PutAs parks v under a token the caller handed out earlier. Parking under
// a token already in use replaces its view.
func (h *Handoff) PutAs(id uuid.UUID, v View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.views[id]; ok {
		h.views[id] = v
		return
	}
	for len(h.order) >= h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.views, oldest)
	}
	h.views[id] = v
	h.order = append(h.order, id)
}

// Take removes and returns the view parked under id.
func (h *Handoff) Take(id uuid.UUID) (View, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.views[id]
	if !ok {
		return View{}, false
	}
	delete(h.views, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Len reports the number of parked views.
func (h *Handoff) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}
