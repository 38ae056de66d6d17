// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/livectl/internal/driver"
	xglog "github.com/ManuGH/livectl/internal/log"
	"github.com/ManuGH/livectl/internal/metadata"
	"github.com/ManuGH/livectl/internal/playback"
)

// LogListener writes every player callback to the log. The daemon has no
// UI, so the log is where users see what is playing.
type LogListener struct {
	logger zerolog.Logger
}

// NewLogListener creates a listener logging under the "listener" component.
func NewLogListener() *LogListener {
	return &LogListener{logger: xglog.WithComponent("listener")}
}

func (l *LogListener) MetadataChanged(v metadata.View) {
	l.logger.Info().
		Str(xglog.FieldEvent, "listener.metadata").
		Str("title", v.DisplayTitle).
		Str(xglog.FieldServiceID, v.Service.Identifier).
		Msg("now playing")
}

func (l *LogListener) OffsetToLiveChanged(offset *time.Duration) {
	ev := l.logger.Info().Str(xglog.FieldEvent, "listener.offset")
	if offset != nil {
		ev = ev.Dur(xglog.FieldOffsetToLive, *offset)
	}
	ev.Msg("offset to live changed")
}

func (l *LogListener) SwapsChanged(swapsLeft int) {
	l.logger.Info().Str(xglog.FieldEvent, "listener.swaps").Int("swaps_left", swapsLeft).Msg("swaps changed")
}

func (l *LogListener) BitRateChanged(current *int32, maxBR int32) {
	ev := l.logger.Info().Str(xglog.FieldEvent, "listener.bitrate").Int32(xglog.FieldMaxBitRate, maxBR)
	if current != nil {
		ev = ev.Int32("current_bit_rate", *current)
	}
	ev.Msg("bit rate changed")
}

func (l *LogListener) ServicesChanged(b metadata.Bouquet) {
	l.logger.Info().
		Str(xglog.FieldEvent, "listener.services").
		Int("services", len(b.Services)).
		Str("active", b.Active).
		Msg("services changed")
}

func (l *LogListener) Error(severity driver.Severity, err error) {
	ev := l.logger.Warn()
	if severity == driver.SeverityFatal {
		ev = l.logger.Error()
	}
	ev.Err(err).
		Str(xglog.FieldEvent, "listener.error").
		Str("severity", string(severity)).
		Str("message", driver.Message(err)).
		Msg("session error")
}

func (l *LogListener) StateChanged(s playback.State) {
	l.logger.Info().Str(xglog.FieldEvent, "listener.state").Str(xglog.FieldNewState, string(s)).Msg("playback state changed")
}

func (l *LogListener) CurrentProblem(text string) {
	if text == "" {
		l.logger.Info().Str(xglog.FieldEvent, "listener.problem_cleared").Msg("problem cleared")
		return
	}
	l.logger.Warn().Str(xglog.FieldEvent, "listener.problem").Str("problem", text).Msg("playback problem")
}
