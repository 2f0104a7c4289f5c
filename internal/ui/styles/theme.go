// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemePlain = "plain" // no color, for pipes and tests
)

// Theme holds the styles of the stream viewer.
type Theme struct {
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile

	Header    lipgloss.Style
	Title     lipgloss.Style
	Muted     lipgloss.Style
	Prompt    lipgloss.Style
	Reasoning lipgloss.Style
	Error     lipgloss.Style
	Selected  lipgloss.Style
	Footer    lipgloss.Style
	Spinner   lipgloss.Style
	Separator lipgloss.Style

	status map[string]lipgloss.Style
}

// NewTheme builds a theme. "auto" asks the terminal for its background;
// unknown names fall back to auto.
func NewTheme(name string) *Theme {
	name = strings.ToLower(strings.TrimSpace(name))
	t := &Theme{Name: name, ColorProfile: termenv.ColorProfile()}

	switch name {
	case ThemeDark:
		t.IsDark = true
	case ThemeLight:
		t.IsDark = false
	case ThemePlain:
		t.IsDark = true
		t.ColorProfile = termenv.Ascii
	default:
		t.Name = ThemeAuto
		t.IsDark = termenv.HasDarkBackground()
	}

	t.initStyles()
	return t
}

// Plain reports whether the theme renders without color.
func (t *Theme) Plain() bool {
	return t.ColorProfile == termenv.Ascii
}

func (t *Theme) initStyles() {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(t.ColorProfile)
	r.SetHasDarkBackground(t.IsDark)

	t.Header = r.NewStyle().Bold(true).Foreground(Cyan).Padding(0, 1)
	t.Title = r.NewStyle().Bold(true).Foreground(Purple)
	t.Muted = r.NewStyle().Foreground(TextMuted)
	t.Prompt = r.NewStyle().Foreground(Cyan).Bold(true)
	t.Reasoning = r.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Error = r.NewStyle().Foreground(Rose).Bold(true)
	t.Selected = r.NewStyle().Foreground(Purple).Bold(true)
	t.Footer = r.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.Spinner = r.NewStyle().Foreground(Amber)
	t.Separator = r.NewStyle().Foreground(Overlay)

	ok := r.NewStyle().Foreground(Emerald)
	warn := r.NewStyle().Foreground(Amber)
	bad := r.NewStyle().Foreground(Rose)
	t.status = map[string]lipgloss.Style{
		"COMPLETED": ok,
		"idle":      ok,
		"STREAMING": warn,
		"PENDING":   warn,
		"streaming": warn,
		"loading":   warn,
		"ERROR":     bad,
		"error":     bad,
		"CANCELLED": t.Muted,
	}
}

// Badge renders a status with its marker, colored when the theme allows.
func (t *Theme) Badge(status string) string {
	text := Marker(status) + " " + status
	if st, ok := t.status[status]; ok {
		return st.Render(text)
	}
	return text
}
