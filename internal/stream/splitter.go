// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "strings"

// =============================================================================
// WIRE CONSTANTS
// =============================================================================

const (
	// FrameDelimiter separates events in the byte stream.
	FrameDelimiter = "\n\n"

	// DataPrefix is the fixed-width field prefix every payload frame starts with.
	DataPrefix = "data: "

	// SentinelPayload marks the end of a response.
	SentinelPayload = "[DONE]"

	// SentinelFrame is the complete end-of-response frame.
	SentinelFrame = DataPrefix + SentinelPayload
)

// =============================================================================
// FRAME SPLITTER
// =============================================================================

// SplitFrames cuts a chunk into candidate frames. Empty frames, frames with
// no room for a payload after the prefix, and the sentinel frame are dropped.
func SplitFrames(chunk string) []string {
	frames, tail := splitChunk(chunk)
	if tail != "" {
		frames = append(frames, tail)
	}

	out := frames[:0]
	for _, f := range frames {
		if hasPayload(f) && !isSentinel(f) {
			out = append(out, f)
		}
	}
	return out
}

// splitChunk splits text into delimiter-terminated frames and the
// unterminated tail. Terminated frames that cannot hold a payload are
// dropped; the tail is returned as-is since it may be the head of a frame
// that continues in the next chunk.
func splitChunk(text string) (frames []string, tail string) {
	parts := strings.Split(text, FrameDelimiter)
	for _, p := range parts[:len(parts)-1] {
		p = trimDelimiterResidue(p)
		if hasPayload(p) {
			frames = append(frames, p)
		}
	}
	return frames, trimDelimiterResidue(parts[len(parts)-1])
}

// trimDelimiterResidue drops newline bytes left at the start of a frame when
// a delimiter was cut in half by a chunk boundary.
func trimDelimiterResidue(s string) string {
	return strings.TrimLeft(s, "\r\n")
}

func hasPayload(frame string) bool {
	return len(frame) > len(DataPrefix)
}

func isSentinel(frame string) bool {
	return strings.TrimRight(frame, "\r\n ") == SentinelFrame
}
