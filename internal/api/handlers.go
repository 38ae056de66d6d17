// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/livectl/internal/api/middleware"
	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/session"
)

const maxBodyBytes = 1 << 16

// handleState serves the current state. Concurrent callers share one
// rendering.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	v, err, _ := s.state.Do("state", func() (any, error) {
		return json.Marshal(s.stateResponse())
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v.([]byte))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.player.Play(r.Context()); err != nil {
		writeDriverError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(s.player.State())})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.player.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(s.player.State())})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.player.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleWind(w http.ResponseWriter, r *http.Request) {
	var req WindRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case req.Live:
		s.await(w, r, s.player.WindToLive)
	case req.By != "":
		d, err := time.ParseDuration(req.By)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
			return
		}
		s.await(w, r, func(done func(session.Completion)) { s.player.WindBy(d, done) })
	case req.To != nil:
		to := *req.To
		s.await(w, r, func(done func(session.Completion)) { s.player.WindTo(to, done) })
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "one of by, to or live is required")
	}
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var typ *metadata.ItemType
	if raw := r.URL.Query().Get("type"); raw != "" {
		typ = metadata.ParseItemType(raw).Ptr()
	}
	switch chi.URLParam(r, "direction") {
	case "forward":
		s.await(w, r, func(done func(session.Completion)) { s.player.SkipForward(typ, done) })
	case "backward":
		s.await(w, r, func(done func(session.Completion)) { s.player.SkipBackward(typ, done) })
	default:
		writeError(w, http.StatusNotFound, "not_found", "direction must be forward or backward")
	}
}

func (s *Server) handleSwapItem(w http.ResponseWriter, r *http.Request) {
	s.await(w, r, s.player.SwapItem)
}

func (s *Server) handleSwapService(w http.ResponseWriter, r *http.Request) {
	var req SwapServiceRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "serviceId is required")
		return
	}
	s.await(w, r, func(done func(session.Completion)) { s.player.SwapService(req.ServiceID, done) })
}

// handleBitRate accepts a ceiling in kbit/s. Values above the ladder are
// dropped by the session without a callback.
func (s *Server) handleBitRate(w http.ResponseWriter, r *http.Request) {
	var req BitRateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Kbps <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "kbps must be positive")
		return
	}
	s.player.MaxBitRate(req.Kbps)
	w.WriteHeader(http.StatusAccepted)
}

// await starts a control action and answers with its completion.
func (s *Server) await(w http.ResponseWriter, r *http.Request, start func(done func(session.Completion))) {
	result := make(chan session.Completion, 1)
	start(func(c session.Completion) { result <- c })

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ActionTimeout)
	defer cancel()

	select {
	case c := <-result:
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		logger.Debug().
			Str(xglog.FieldEvent, "api.action_done").
			Str(xglog.FieldAction, c.Action).
			Bool(xglog.FieldSuccess, c.Success).
			Msg("control action resolved")
		middleware.Annotate(r,
			attribute.String(xglog.FieldAction, c.Action),
			attribute.Bool(xglog.FieldSuccess, c.Success),
		)
		status := http.StatusOK
		if !c.Success {
			status = http.StatusConflict
		}
		writeJSON(w, status, completionResponse(c))
	case <-ctx.Done():
		writeError(w, http.StatusGatewayTimeout, "timeout", "control action did not resolve in time")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, detail string) {
	writeJSON(w, code, ErrorResponse{Error: kind, Detail: detail})
}

// writeDriverError maps the error taxonomy to HTTP statuses.
func writeDriverError(w http.ResponseWriter, err error) {
	msg := driver.Message(err)
	switch {
	case errors.Is(err, driver.ErrInvalidSession):
		writeError(w, http.StatusUnprocessableEntity, "invalid_session", msg)
	case errors.Is(err, driver.ErrUnsupportedAction):
		writeError(w, http.StatusNotImplemented, "unsupported", msg)
	case errors.Is(err, driver.ErrActionRejected):
		writeError(w, http.StatusConflict, "rejected", msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "timeout", msg)
	case errors.Is(err, driver.ErrTransportFailure):
		writeError(w, http.StatusBadGateway, "transport_failure", msg)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}
