// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// maxBlockBytes is the largest ICY block: 255 chunks of 16 bytes.
const maxBlockBytes = 255 * 16

// ErrShortBlock means the buffer ends before the announced block length.
var ErrShortBlock = errors.New("icy: short metadata block")

// EncodeBlock encodes text as an ICY metadata block: one length byte counting
// 16-byte chunks, followed by the NUL padded payload.
func EncodeBlock(text string) []byte {
	if text == "" {
		return []byte{0x00}
	}
	payload := []byte(text)
	if len(payload) > maxBlockBytes {
		payload = payload[:maxBlockBytes]
	}
	chunks := (len(payload) + 15) / 16

	var buf bytes.Buffer
	buf.Grow(1 + chunks*16)
	buf.WriteByte(byte(chunks))
	buf.Write(payload)
	buf.Write(make([]byte, chunks*16-len(payload)))
	return buf.Bytes()
}

// DecodeBlock reads one ICY metadata block from the start of b. It returns the
// payload without padding and the number of bytes consumed.
func DecodeBlock(b []byte) ([]byte, int, error) {
	if len(b) == 0 {
		return nil, 0, ErrShortBlock
	}
	size := int(b[0]) * 16
	if len(b) < 1+size {
		return nil, 0, fmt.Errorf("%w: want %d bytes, have %d", ErrShortBlock, size, len(b)-1)
	}
	return bytes.TrimRight(b[1:1+size], "\x00"), 1 + size, nil
}

// ParseICY turns an inline tag payload such as
// "StreamTitle='Artist - Title';StreamUrl='http://...';" into a chain node.
// Payloads that are not valid UTF-8 are decoded as ISO-8859-1.
func ParseICY(payload []byte) *Node {
	text := decodeText(payload)
	tags := parseTags(text)

	node := NewNode(SourceICY, nil, nil, nil)
	if title, ok := tags["StreamTitle"]; ok && strings.TrimSpace(title) != "" {
		node.current = itemFromStreamTitle(title)
	}
	if u := strings.TrimSpace(tags["StreamUrl"]); u != "" {
		node.streamURL = u
	}
	return node
}

func decodeText(payload []byte) string {
	if utf8.Valid(payload) {
		return string(payload)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return strings.ToValidUTF8(string(payload), "")
	}
	return string(out)
}

// parseTags splits key='value'; pairs. Values may contain quotes and
// semicolons; only the sequence "';" terminates a value.
func parseTags(text string) map[string]string {
	tags := make(map[string]string)
	rest := text
	for rest != "" {
		eq := strings.Index(rest, "='")
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(strings.TrimLeft(rest[:eq], ";"))
		rest = rest[eq+2:]

		end := strings.Index(rest, "';")
		var value string
		if end < 0 {
			value = strings.TrimSuffix(rest, "'")
			rest = ""
		} else {
			value = rest[:end]
			rest = rest[end+2:]
		}
		if key != "" {
			tags[key] = value
		}
	}
	return tags
}

func itemFromStreamTitle(title string) *Item {
	title = strings.TrimSpace(title)
	it := &Item{DisplayTitle: title}
	if artist, song, ok := strings.Cut(title, " - "); ok {
		it.Artist = strings.TrimSpace(artist)
		it.Title = strings.TrimSpace(song)
	} else {
		it.Title = title
	}
	return it
}
