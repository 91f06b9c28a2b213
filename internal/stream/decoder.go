// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/azvaliev/gpterm/internal/model"
)

// =============================================================================
// DECODE ERRORS
// =============================================================================

var (
	// ErrShortFrame is returned for a frame shorter than DataPrefix.
	ErrShortFrame = errors.New("frame shorter than data prefix")

	// ErrMissingPrefix is returned when a frame does not start with DataPrefix.
	ErrMissingPrefix = errors.New("frame does not start with data prefix")

	// ErrSentinel is returned for the end-of-response frame.
	ErrSentinel = errors.New("end of response")

	// ErrIncomplete is returned when the payload is not valid JSON. The frame
	// may be truncated at a chunk boundary.
	ErrIncomplete = errors.New("incomplete frame")

	// ErrNoChoices is returned for a payload with an empty choices list.
	ErrNoChoices = errors.New("frame has no choices")

	// ErrUnknownRole is returned when a delta names a role outside the wire table.
	ErrUnknownRole = errors.New("frame has unknown role")
)

// IsIncomplete reports whether err may be caused by truncation, meaning the
// frame is worth retrying with more bytes.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncomplete) || errors.Is(err, ErrShortFrame)
}

// =============================================================================
// DELTA
// =============================================================================

// Delta is one decoded increment of an assistant turn.
type Delta struct {
	// TurnID is the server-assigned id of the response this delta belongs to.
	TurnID string

	// Role is set on the first delta of a turn and RoleNone afterwards.
	Role model.Role

	// Content is the incremental text, possibly empty.
	Content string

	// FinishReason is set on the last delta of a turn by servers that report it.
	FinishReason string
}

// HasRole reports whether the delta carries a role.
func (d Delta) HasRole() bool {
	return d.Role != model.RoleNone
}

// completionChunk mirrors the subset of a chat.completion.chunk payload
// that the assembler needs.
type completionChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Role    *string `json:"role"`
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// =============================================================================
// FRAME DECODER
// =============================================================================

// DecodeFrame parses one delimiter-free frame into a Delta. Only the first
// choice is used.
func DecodeFrame(frame string) (Delta, error) {
	if len(frame) < len(DataPrefix) {
		return Delta{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	if frame[:len(DataPrefix)] != DataPrefix {
		return Delta{}, ErrMissingPrefix
	}

	payload := frame[len(DataPrefix):]
	if strings.TrimSpace(payload) == SentinelPayload {
		return Delta{}, ErrSentinel
	}

	var chunk completionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return Delta{}, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	if len(chunk.Choices) == 0 {
		return Delta{TurnID: chunk.ID}, ErrNoChoices
	}

	choice := chunk.Choices[0]
	delta := Delta{TurnID: chunk.ID}

	if r := choice.Delta.Role; r != nil && *r != "" {
		role, err := model.ParseRole(*r)
		if err != nil {
			return Delta{}, fmt.Errorf("%w: %q", ErrUnknownRole, *r)
		}
		delta.Role = role
	}
	if c := choice.Delta.Content; c != nil {
		delta.Content = *c
	}
	if fr := choice.FinishReason; fr != nil {
		delta.FinishReason = *fr
	}

	return delta, nil
}
