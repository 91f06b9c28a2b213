// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
//
// ID is local bookkeeping only: user turns get a generated UUID and
// assistant turns carry the id the server assigned to the response stream.
// It is never sent upstream; see WireMessage.
type Message struct {
	ID      string
	Role    Role
	Content string
}

// WireMessage is the upstream representation of a message.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message with a freshly generated ID.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:      uuid.NewString(),
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates an assistant message for the given response id.
func NewAssistantMessage(id, content string) *Message {
	return &Message{
		ID:      id,
		Role:    RoleAssistant,
		Content: content,
	}
}

// Wire returns the upstream representation of the message.
func (m *Message) Wire() WireMessage {
	return WireMessage{Role: m.Role, Content: m.Content}
}

// Preview returns the content truncated to maxWidth terminal cells.
// Newlines are flattened so the preview fits on one log line.
func (m *Message) Preview(maxWidth int) string {
	return Preview(m.Content, maxWidth)
}

// Preview truncates s to maxWidth display cells, appending "..." when cut.
func Preview(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	flat := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		flat = append(flat, r)
	}
	return runewidth.Truncate(string(flat), maxWidth, "...")
}
