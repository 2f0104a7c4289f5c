// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across litechat.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadWidth, StringWidth: Terminal column aware layout
//   - SingleLine: Collapse text for table cells
//
// File Operations:
//   - AtomicWriteFile: Replace a conversation or config file without torn writes
//
// # Usage
//
//	preview := util.TruncateWidth(util.SingleLine(prompt), 40)
//	err := util.AtomicWriteFile(path, data, 0644)
package util
