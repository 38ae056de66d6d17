// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metadata models what is playing: items, services and the delegation
// chain that merges partial information from inline tags and the control protocol.
package metadata

import (
	"slices"
	"strings"
	"time"
)

// ItemType classifies an item. TypeUnknown is a reported value and differs
// from an absent type (nil *ItemType).
type ItemType string

const (
	TypeAdvertisement ItemType = "ADVERTISEMENT"
	TypeComedy        ItemType = "COMEDY"
	TypeJingle        ItemType = "JINGLE"
	TypeMusic         ItemType = "MUSIC"
	TypeNews          ItemType = "NEWS"
	TypeTraffic       ItemType = "TRAFFIC"
	TypeVoice         ItemType = "VOICE"
	TypeWeather       ItemType = "WEATHER"
	TypeUnknown       ItemType = "UNKNOWN"
)

var itemTypes = []ItemType{
	TypeAdvertisement, TypeComedy, TypeJingle, TypeMusic, TypeNews,
	TypeTraffic, TypeVoice, TypeWeather, TypeUnknown,
}

// ParseItemType maps a wire value to an ItemType. Anything outside the closed
// set becomes TypeUnknown.
func ParseItemType(raw string) ItemType {
	v := ItemType(strings.ToUpper(strings.TrimSpace(raw)))
	if slices.Contains(itemTypes, v) {
		return v
	}
	return TypeUnknown
}

// Ptr returns a pointer to t, for optional item type arguments.
func (t ItemType) Ptr() *ItemType {
	return &t
}

// Item is a single piece of content, e.g. a song or a news block.
type Item struct {
	DisplayTitle   string
	Identifier     string
	Type           *ItemType
	Title          string
	Artist         string
	Album          string
	Version        string
	Description    string
	PlaybackLength time.Duration
	Genre          string
	InfoURI        string
	Companions     []string
}

// Equal reports full structural equality.
func (i Item) Equal(o Item) bool {
	if (i.Type == nil) != (o.Type == nil) {
		return false
	}
	if i.Type != nil && *i.Type != *o.Type {
		return false
	}
	return i.DisplayTitle == o.DisplayTitle &&
		i.Identifier == o.Identifier &&
		i.Title == o.Title &&
		i.Artist == o.Artist &&
		i.Album == o.Album &&
		i.Version == o.Version &&
		i.Description == o.Description &&
		i.PlaybackLength == o.PlaybackLength &&
		i.Genre == o.Genre &&
		i.InfoURI == o.InfoURI &&
		slices.Equal(i.Companions, o.Companions)
}

// SynthesizeDisplayTitle builds a display title from artist and title when
// the source did not deliver one.
func SynthesizeDisplayTitle(artist, title string) string {
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	switch {
	case artist != "" && title != "":
		return artist + " - " + title
	case title != "":
		return title
	default:
		return artist
	}
}

// Service is one selectable program within a bouquet.
type Service struct {
	Identifier  string
	DisplayName string
	IconURI     string
	Genre       string
	Description string
	InfoURI     string
}

// DefaultService is reported when no node in a chain knows the service.
var DefaultService = Service{Identifier: "default"}

// Bouquet is the set of services selectable in one session.
type Bouquet struct {
	Primary  string
	Active   string
	Services []Service
}

// Equal reports whether both bouquets list the same services and the same
// active selection.
func (b Bouquet) Equal(o Bouquet) bool {
	return b.Primary == o.Primary && b.Active == o.Active && slices.Equal(b.Services, o.Services)
}

// ActiveService returns the active service if it is part of the bouquet.
func (b Bouquet) ActiveService() (Service, bool) {
	for _, s := range b.Services {
		if s.Identifier == b.Active {
			return s, true
		}
	}
	return Service{}, false
}

// Clone returns a deep copy.
func (b Bouquet) Clone() Bouquet {
	b.Services = slices.Clone(b.Services)
	return b
}
