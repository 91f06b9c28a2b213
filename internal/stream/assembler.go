// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"github.com/rs/zerolog"

	"github.com/azvaliev/gpterm/internal/model"
)

// Assembler folds deltas into a conversation.
type Assembler struct {
	log zerolog.Logger
}

// NewAssembler creates an assembler that logs turn transitions to logger.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{log: logger}
}

// Merge applies d to conv and returns the text that became available for
// display.
//
// A delta for the open last message is appended to it; the message is popped,
// extended and pushed back so it stays last. Any other delta starts a new
// open message, including one whose turn id was seen before the turn closed.
func (a *Assembler) Merge(conv *model.Conversation, d Delta) string {
	if conv.IsOpen(d.TurnID) {
		msg := conv.PopLast()
		msg.Content += d.Content
		conv.Append(msg)
		conv.OpenTurn()
		return d.Content
	}

	role := model.RoleAssistant
	if d.HasRole() {
		role = d.Role
	} else {
		a.log.Debug().Str("turn_id", d.TurnID).Msg("first delta of turn has no role, assuming assistant")
	}

	conv.Append(&model.Message{
		ID:      d.TurnID,
		Role:    role,
		Content: d.Content,
	})
	conv.OpenTurn()

	a.log.Debug().Str("turn_id", d.TurnID).Str("role", role.String()).Msg("turn opened")
	return d.Content
}
