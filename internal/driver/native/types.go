// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package native

import (
	"encoding/json"
	"time"

	"github.com/ManuGH/livectl/internal/metadata"
)

// Control endpoints, relative to the session base URL.
const (
	pathCreate      = "/ctrl/v2/session/create"
	pathInfo        = "/ctrl/v2/session/info"
	pathClose       = "/ctrl/v2/session/close"
	pathWind        = "/ctrl/v2/playout/wind"
	pathWindToLive  = "/ctrl/v2/playout/wind/back-to-live"
	pathSkipForward = "/ctrl/v2/playout/skip/forwards"
	pathSkipBack    = "/ctrl/v2/playout/skip/backwards"
	pathSwapItem    = "/ctrl/v2/content/swap/item"
	pathSwapService = "/ctrl/v2/content/swap/service"
	pathMaxBitRate  = "/ctrl/v2/session/set-max-bit-rate"
)

// ResponseHeader is the status block of every control response.
type ResponseHeader struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
}

// Envelope wraps every control response.
type Envelope struct {
	Header ResponseHeader  `json:"__responseHeader"`
	Object json.RawMessage `json:"__responseObject,omitempty"`
}

// Session is the session object returned by every control endpoint. Absent
// parts leave the corresponding cached state untouched.
type Session struct {
	ID          string    `json:"sessionId,omitempty"`
	BaseURL     string    `json:"baseURL,omitempty"`
	PlaybackURI string    `json:"playbackURI,omitempty"`
	Playout     *Playout  `json:"playout,omitempty"`
	Bouquet     *Bouquet  `json:"bouquet,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Playout carries bit rates in bit/s and the offset in milliseconds.
type Playout struct {
	MaxBitRate     *int32 `json:"maxBitRate,omitempty"`
	CurrentBitRate *int32 `json:"currentBitRate,omitempty"`
	OffsetToLive   *int64 `json:"offsetToLive,omitempty"`
	SwapsLeft      *int   `json:"swapsLeft,omitempty"`
}

// Bouquet lists the selectable services.
type Bouquet struct {
	PrimaryServiceID string        `json:"primaryServiceId"`
	ActiveServiceID  string        `json:"activeServiceId"`
	Services         []ServiceInfo `json:"services"`
}

// ServiceInfo describes one service.
type ServiceInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
	InfoURL     string `json:"infoUrl,omitempty"`
}

// ItemInfo describes one content item.
type ItemInfo struct {
	ID             string   `json:"id,omitempty"`
	Type           string   `json:"type,omitempty"`
	DisplayTitle   string   `json:"displayTitle,omitempty"`
	Title          string   `json:"title,omitempty"`
	Artist         string   `json:"artist,omitempty"`
	Album          string   `json:"album,omitempty"`
	Version        string   `json:"version,omitempty"`
	Description    string   `json:"description,omitempty"`
	DurationMillis int64    `json:"durationMillis,omitempty"`
	Genre          string   `json:"genre,omitempty"`
	InfoURL        string   `json:"infoUrl,omitempty"`
	Companions     []string `json:"companions,omitempty"`
}

// Metadata is the current/next item and the station.
type Metadata struct {
	CurrentItem *ItemInfo    `json:"currentItem,omitempty"`
	NextItem    *ItemInfo    `json:"nextItem,omitempty"`
	Station     *ServiceInfo `json:"station,omitempty"`
}

func (s ServiceInfo) toService() metadata.Service {
	return metadata.Service{
		Identifier:  s.ID,
		DisplayName: s.DisplayName,
		IconURI:     s.IconURL,
		Genre:       s.Genre,
		Description: s.Description,
		InfoURI:     s.InfoURL,
	}
}

func (b Bouquet) toBouquet() metadata.Bouquet {
	out := metadata.Bouquet{Primary: b.PrimaryServiceID, Active: b.ActiveServiceID}
	for _, s := range b.Services {
		out.Services = append(out.Services, s.toService())
	}
	return out
}

func (i *ItemInfo) toItem() *metadata.Item {
	if i == nil {
		return nil
	}
	it := &metadata.Item{
		DisplayTitle:   i.DisplayTitle,
		Identifier:     i.ID,
		Title:          i.Title,
		Artist:         i.Artist,
		Album:          i.Album,
		Version:        i.Version,
		Description:    i.Description,
		PlaybackLength: time.Duration(i.DurationMillis) * time.Millisecond,
		Genre:          i.Genre,
		InfoURI:        i.InfoURL,
		Companions:     i.Companions,
	}
	if i.Type != "" {
		it.Type = metadata.ParseItemType(i.Type).Ptr()
	}
	if it.DisplayTitle == "" {
		it.DisplayTitle = metadata.SynthesizeDisplayTitle(i.Artist, i.Title)
	}
	return it
}

func (m *Metadata) toNode() *metadata.Node {
	var station *metadata.Service
	if m.Station != nil {
		s := m.Station.toService()
		station = &s
	}
	return metadata.NewNode(metadata.SourceNative, m.CurrentItem.toItem(), m.NextItem.toItem(), station)
}
