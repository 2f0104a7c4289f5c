// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for litechat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StorageConfig: Persistence backend selection
//   - StreamConfig: Display refresh rates while streaming
//   - Watcher: Reloads the config file when it changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LITECHAT_*), optionally seeded from .env
//   - ~/.litechat/config.toml
//   - ~/.litechat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// React to edits:
//
//	w, _ := config.NewWatcher(path, logger, func(c *config.Config) {
//	    presenter.SetIntervals(render.IntervalsFromFPS(c.Stream.TextFPS, c.Stream.CodeFPS))
//	})
//	w.Start(ctx)
package config
