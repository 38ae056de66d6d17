// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package native

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockServer is an in-process control server for tests. It keeps one
// session worth of state and answers like a real server would, including
// refusals for actions outside the live window.
type MockServer struct {
	*httptest.Server

	mu          sync.Mutex
	sessionID   string
	offsetMs    int64
	windowMs    int64
	maxBitRate  int32
	curBitRate  int32
	swapsLeft   int
	services    []ServiceInfo
	primary     string
	active      string
	items       []ItemInfo
	itemIndex   int
	swapped     bool
	failures    map[string]int // pending 503 answers per path
	requests    map[string]int
	refuseStart bool
	now         func() time.Time
}

// NewMockServer starts a mock control server with a small default program.
func NewMockServer() *MockServer {
	m := &MockServer{
		failures: make(map[string]int),
		requests: make(map[string]int),
		now:      time.Now,
	}
	m.reset()

	mux := http.NewServeMux()
	mux.HandleFunc(pathCreate, m.handleCreate)
	mux.HandleFunc(pathInfo, m.session(m.handleInfo))
	mux.HandleFunc(pathClose, m.session(m.handleClose))
	mux.HandleFunc(pathWind, m.session(m.handleWind))
	mux.HandleFunc(pathWindToLive, m.session(m.handleWindToLive))
	mux.HandleFunc(pathSkipForward, m.session(m.handleSkip(1)))
	mux.HandleFunc(pathSkipBack, m.session(m.handleSkip(-1)))
	mux.HandleFunc(pathSwapItem, m.session(m.handleSwapItem))
	mux.HandleFunc(pathSwapService, m.session(m.handleSwapService))
	mux.HandleFunc(pathMaxBitRate, m.session(m.handleMaxBitRate))

	m.Server = httptest.NewServer(mux)
	return m
}

func (m *MockServer) reset() {
	m.offsetMs = 0
	m.windowMs = int64(3 * time.Hour / time.Millisecond)
	m.maxBitRate = 192000
	m.curBitRate = 128000
	m.swapsLeft = 3
	m.primary = "morning-show"
	m.active = "morning-show"
	m.services = []ServiceInfo{
		{ID: "morning-show", DisplayName: "Morning Show", Genre: "Talk"},
		{ID: "rock-channel", DisplayName: "Rock Channel", Genre: "Rock"},
		{ID: "jazz-lounge", DisplayName: "Jazz Lounge", Genre: "Jazz"},
	}
	m.items = []ItemInfo{
		{ID: "i-1", Type: "NEWS", Title: "Top of the hour", DurationMillis: 180000},
		{ID: "i-2", Type: "MUSIC", Artist: "Lamb", Title: "Gorecki", DurationMillis: 390000},
		{ID: "i-3", Type: "ADVERTISEMENT", Title: "Spot", DurationMillis: 30000},
		{ID: "i-4", Type: "MUSIC", Artist: "Portishead", Title: "Roads", DurationMillis: 305000},
	}
	m.itemIndex = 1
	m.swapped = false
}

// FailNext makes the next n requests to path answer 503.
func (m *MockServer) FailNext(path string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = n
}

// RefuseSessions makes session/create answer with success=false.
func (m *MockServer) RefuseSessions(refuse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refuseStart = refuse
}

// SetSwapsLeft sets the remaining item swaps.
func (m *MockServer) SetSwapsLeft(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapsLeft = n
}

// SetOffset moves the server-side position without a request, as when the
// server itself decides to change content.
func (m *MockServer) SetOffset(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsetMs = d.Milliseconds()
}

// Requests returns how many requests path received.
func (m *MockServer) Requests(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

// MaxBitRate returns the ceiling the server currently applies.
func (m *MockServer) MaxBitRate() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxBitRate
}

func (m *MockServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[pathCreate]++
	if m.fail(w, pathCreate) {
		return
	}
	if r.Method != http.MethodPost {
		m.refuse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if m.refuseStart {
		m.refuse(w, http.StatusForbidden, "no session available for this endpoint")
		return
	}
	m.sessionID = uuid.NewString()
	m.reset()
	m.ok(w, r)
}

// session wraps a handler with request counting, injected failures and the
// session id check. Handlers run with m.mu held.
func (m *MockServer) session(h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.requests[r.URL.Path]++
		if m.fail(w, r.URL.Path) {
			return
		}
		if m.sessionID == "" || r.URL.Query().Get("session-id") != m.sessionID {
			m.refuse(w, http.StatusNotFound, "unknown session")
			return
		}
		h(w, r)
	}
}

func (m *MockServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	m.ok(w, r)
}

func (m *MockServer) handleClose(w http.ResponseWriter, _ *http.Request) {
	m.sessionID = ""
	writeEnvelope(w, http.StatusOK, ResponseHeader{Success: true, StatusCode: http.StatusOK}, nil)
}

func (m *MockServer) handleWind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := m.offsetMs
	switch {
	case q.Get("duration") != "":
		by, err := strconv.ParseInt(q.Get("duration"), 10, 64)
		if err != nil {
			m.refuse(w, http.StatusBadRequest, "duration must be milliseconds")
			return
		}
		target += by
	case q.Get("ts") != "":
		ts, err := strconv.ParseInt(q.Get("ts"), 10, 64)
		if err != nil {
			m.refuse(w, http.StatusBadRequest, "ts must be unix milliseconds")
			return
		}
		target = ts - m.now().UnixMilli()
	default:
		m.refuse(w, http.StatusBadRequest, "duration or ts required")
		return
	}
	if target == m.offsetMs {
		m.refuse(w, http.StatusBadRequest, "already at the requested position")
		return
	}
	if target > 0 {
		m.refuse(w, http.StatusBadRequest, "cannot wind into the future")
		return
	}
	if target < -m.windowMs {
		m.refuse(w, http.StatusBadRequest, "cannot wind beyond session start")
		return
	}
	m.offsetMs = target
	m.ok(w, r)
}

func (m *MockServer) handleWindToLive(w http.ResponseWriter, r *http.Request) {
	if m.offsetMs == 0 {
		m.refuse(w, http.StatusBadRequest, "already live")
		return
	}
	m.offsetMs = 0
	m.itemIndex = 1
	m.ok(w, r)
}

func (m *MockServer) handleSkip(dir int) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir > 0 && m.offsetMs == 0 {
			m.refuse(w, http.StatusBadRequest, "already live")
			return
		}
		want := r.URL.Query().Get("item-type")
		for i := m.itemIndex + dir; i >= 0 && i < len(m.items); i += dir {
			if want != "" && m.items[i].Type != want {
				continue
			}
			shift := m.items[min(i, m.itemIndex)].DurationMillis
			next := m.offsetMs + int64(dir)*shift
			if next > 0 {
				next = 0
			}
			if next < -m.windowMs {
				break
			}
			m.offsetMs = next
			m.itemIndex = i
			m.ok(w, r)
			return
		}
		m.refuse(w, http.StatusBadRequest, "no matching item to skip to")
	}
}

func (m *MockServer) handleSwapItem(w http.ResponseWriter, r *http.Request) {
	if m.swapsLeft <= 0 {
		m.refuse(w, http.StatusBadRequest, "no swaps left")
		return
	}
	m.swapsLeft--
	m.swapped = !m.swapped
	m.ok(w, r)
}

func (m *MockServer) handleSwapService(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("service-id")
	if id == m.active {
		m.refuse(w, http.StatusBadRequest, "service already active")
		return
	}
	for _, s := range m.services {
		if s.ID == id {
			m.active = id
			m.offsetMs = 0
			m.ok(w, r)
			return
		}
	}
	m.refuse(w, http.StatusBadRequest, "unknown service "+strconv.Quote(id))
}

func (m *MockServer) handleMaxBitRate(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.ParseInt(r.URL.Query().Get("value"), 10, 32)
	if err != nil || v <= 0 {
		m.refuse(w, http.StatusBadRequest, "value must be a positive bit rate")
		return
	}
	m.maxBitRate = int32(v)
	if m.curBitRate > m.maxBitRate {
		m.curBitRate = m.maxBitRate
	}
	m.ok(w, r)
}

func (m *MockServer) fail(w http.ResponseWriter, path string) bool {
	if m.failures[path] <= 0 {
		return false
	}
	m.failures[path]--
	http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	return true
}

func (m *MockServer) refuse(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, ResponseHeader{Success: false, StatusCode: status, Message: msg}, nil)
}

func (m *MockServer) ok(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, ResponseHeader{Success: true, StatusCode: http.StatusOK}, m.snapshot(r))
}

func (m *MockServer) snapshot(r *http.Request) *Session {
	maxBR, curBR, off, swaps := m.maxBitRate, m.curBitRate, m.offsetMs, m.swapsLeft
	cur := m.items[m.itemIndex]
	if m.swapped {
		cur = ItemInfo{ID: cur.ID + "-alt", Type: cur.Type, Artist: "Alternative", Title: cur.Title, DurationMillis: cur.DurationMillis}
	}
	meta := &Metadata{CurrentItem: &cur}
	if m.itemIndex+1 < len(m.items) {
		next := m.items[m.itemIndex+1]
		meta.NextItem = &next
	}
	for _, s := range m.services {
		if s.ID == m.active {
			station := s
			meta.Station = &station
		}
	}
	base := "http://" + r.Host
	return &Session{
		ID:          m.sessionID,
		BaseURL:     base,
		PlaybackURI: base + "/stream?session-id=" + m.sessionID,
		Playout: &Playout{
			MaxBitRate:     &maxBR,
			CurrentBitRate: &curBR,
			OffsetToLive:   &off,
			SwapsLeft:      &swaps,
		},
		Bouquet: &Bouquet{
			PrimaryServiceID: m.primary,
			ActiveServiceID:  m.active,
			Services:         append([]ServiceInfo(nil), m.services...),
		},
		Metadata: meta,
	}
}

func writeEnvelope(w http.ResponseWriter, status int, header ResponseHeader, obj *Session) {
	env := struct {
		Header ResponseHeader `json:"__responseHeader"`
		Object *Session       `json:"__responseObject,omitempty"`
	}{Header: header, Object: obj}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
