// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// InfoStyle is used for the banner and confirmations.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	// LinkStyle highlights URLs.
	LinkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // Cyan
			Underline(true)

	// ErrorStyle is used for failed turns and fatal errors.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for cancellations and degraded replies.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Orange
)

// SetColorProfile applies profile to every style. Ascii renders plain text.
func SetColorProfile(profile termenv.Profile) {
	lipgloss.SetColorProfile(profile)
}
