// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWrapWidth is the markdown word-wrap column.
const DefaultWrapWidth = 80

// NewMarkdownRenderer returns a glamour renderer. With color disabled the
// "notty" style is used so output carries no escape sequences.
func NewMarkdownRenderer(color bool, width int) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
}
