// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - assistant output, selection
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - prompts, headers
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - completed interactions
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - streaming and loading
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// TEXT COLORS
// =============================================================================

var (
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	Overlay       = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
)

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// ACCESSIBILITY: Every status also has an ASCII marker so it reads without color.
var statusMarkers = map[string]string{
	"COMPLETED": "[OK]",
	"ERROR":     "[X]",
	"STREAMING": "[~]",
	"PENDING":   "[ ]",
	"CANCELLED": "[-]",
	"idle":      "[OK]",
	"loading":   "[..]",
	"streaming": "[~]",
	"error":     "[X]",
}

// Marker returns the ASCII marker for an interaction or store status.
func Marker(status string) string {
	if m, ok := statusMarkers[status]; ok {
		return m
	}
	return "[?]"
}
