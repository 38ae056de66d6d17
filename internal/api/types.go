// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"time"

	"github.com/ManuGH/livectl/internal/driver"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/session"
)

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	State          string       `json:"state"`
	Protocol       string       `json:"protocol"`
	Problem        string       `json:"problem,omitempty"`
	PlaybackURI    string       `json:"playbackUri,omitempty"`
	OffsetToLiveMs *int64       `json:"offsetToLiveMs"`
	SwapsLeft      int          `json:"swapsLeft"`
	MaxBitRate     int32        `json:"maxBitRate"`
	CurrentBitRate *int32       `json:"currentBitRate"`
	Metadata       *MetadataDTO `json:"metadata"`
	Bouquet        BouquetDTO   `json:"bouquet"`
}

// MetadataDTO is the resolved metadata of the session.
type MetadataDTO struct {
	DisplayTitle string     `json:"displayTitle"`
	Current      ItemDTO    `json:"current"`
	Next         *ItemDTO   `json:"next,omitempty"`
	Service      ServiceDTO `json:"service"`
	StreamURL    string     `json:"streamUrl,omitempty"`
}

// ItemDTO is one item.
type ItemDTO struct {
	Identifier   string `json:"id,omitempty"`
	Type         string `json:"type,omitempty"`
	DisplayTitle string `json:"displayTitle"`
	Title        string `json:"title,omitempty"`
	Artist       string `json:"artist,omitempty"`
	LengthMs     int64  `json:"lengthMs,omitempty"`
}

// ServiceDTO is one service.
type ServiceDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

// BouquetDTO lists the selectable services.
type BouquetDTO struct {
	Primary  string       `json:"primary,omitempty"`
	Active   string       `json:"active,omitempty"`
	Services []ServiceDTO `json:"services"`
}

// WindRequest moves the position. Exactly one field is honoured, in the
// order live, by, to.
type WindRequest struct {
	By   string     `json:"by,omitempty"`
	To   *time.Time `json:"to,omitempty"`
	Live bool       `json:"live,omitempty"`
}

// SwapServiceRequest selects a service.
type SwapServiceRequest struct {
	ServiceID string `json:"serviceId"`
}

// BitRateRequest sets the ceiling in kbit/s.
type BitRateRequest struct {
	Kbps int32 `json:"kbps"`
}

// CompletionResponse is the outcome of a control action.
type CompletionResponse struct {
	Action  string `json:"action"`
	Facet   string `json:"facet"`
	Success bool   `json:"success"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) stateResponse() StateResponse {
	snap := s.player.Snapshot()
	resp := StateResponse{
		State:          string(s.player.State()),
		Protocol:       string(s.player.Protocol()),
		Problem:        s.player.CurrentProblem(),
		PlaybackURI:    snap.PlaybackURI,
		SwapsLeft:      snap.SwapsLeft,
		MaxBitRate:     snap.MaxBitRate,
		CurrentBitRate: snap.CurrentBitRate,
		Bouquet: BouquetDTO{
			Primary:  snap.Bouquet.Primary,
			Active:   snap.Bouquet.Active,
			Services: make([]ServiceDTO, 0, len(snap.Bouquet.Services)),
		},
	}
	if snap.OffsetToLive != nil {
		ms := snap.OffsetToLive.Milliseconds()
		resp.OffsetToLiveMs = &ms
	}
	for _, svc := range snap.Bouquet.Services {
		resp.Bouquet.Services = append(resp.Bouquet.Services, serviceDTO(svc))
	}
	if v := snap.Metadata; v != nil {
		m := &MetadataDTO{
			DisplayTitle: v.DisplayTitle,
			Current:      itemDTO(v.Current),
			Service:      serviceDTO(v.Service),
			StreamURL:    v.StreamURL,
		}
		if v.Next != nil {
			next := itemDTO(*v.Next)
			m.Next = &next
		}
		resp.Metadata = m
	}
	return resp
}

func itemDTO(it metadata.Item) ItemDTO {
	dto := ItemDTO{
		Identifier:   it.Identifier,
		DisplayTitle: it.DisplayTitle,
		Title:        it.Title,
		Artist:       it.Artist,
		LengthMs:     it.PlaybackLength.Milliseconds(),
	}
	if it.Type != nil {
		dto.Type = string(*it.Type)
	}
	return dto
}

func serviceDTO(svc metadata.Service) ServiceDTO {
	return ServiceDTO{ID: svc.Identifier, DisplayName: svc.DisplayName, Genre: svc.Genre}
}

func completionResponse(c session.Completion) CompletionResponse {
	resp := CompletionResponse{
		Action:  c.Action,
		Facet:   string(c.Facet),
		Success: c.Success,
		Result:  c.Result,
	}
	if c.Err != nil {
		resp.Message = driver.Message(c.Err)
	}
	return resp
}
