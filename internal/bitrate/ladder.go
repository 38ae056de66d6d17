// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bitrate holds the ladder of bit-rate ceilings a session accepts.
package bitrate

import "sort"

// SupportedKbps lists the selectable ceilings in kbit/s, ascending.
// Callers that render a selection rely on this order.
var SupportedKbps = []int32{8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 352, 384, 416, 448}

// ladder is SupportedKbps in bit/s.
var ladder = func() []int32 {
	out := make([]int32, len(SupportedKbps))
	for i, kbps := range SupportedKbps {
		out[i] = kbps * 1000
	}
	return out
}()

// Ladder returns a copy of the supported ceilings in bit/s.
func Ladder() []int32 {
	return append([]int32(nil), ladder...)
}

// Max returns the highest supported ceiling in bit/s.
func Max() int32 {
	return ladder[len(ladder)-1]
}

// Quantize maps a requested ceiling in bit/s to the smallest ladder tier that is
// greater than or equal to it. Requests above the top tier are not clamped:
// ok is false and the caller must leave its current ceiling untouched.
func Quantize(bps int32) (tier int32, ok bool) {
	i := sort.Search(len(ladder), func(i int) bool { return ladder[i] >= bps })
	if i == len(ladder) {
		return 0, false
	}
	return ladder[i], true
}

// FromKbps converts a kbit/s value from the control surface into bit/s,
// saturating instead of overflowing.
func FromKbps(kbps int32) int32 {
	const limit = int32(^uint32(0)>>1) / 1000
	switch {
	case kbps > limit:
		return int32(^uint32(0) >> 1)
	case kbps < -limit:
		return -int32(^uint32(0)>>1) - 1
	}
	return kbps * 1000
}
