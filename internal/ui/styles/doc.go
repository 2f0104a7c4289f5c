// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the litechat terminal UI.
// All colors use lipgloss AdaptiveColor so they follow the terminal's light
// or dark background.
//
// # Key Types
//
//   - Theme: lipgloss styles bound to a detected termenv color profile
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.Badge(string(it.Status)))
//	fmt.Println(theme.Highlight(jsonText, "json"))
package styles
