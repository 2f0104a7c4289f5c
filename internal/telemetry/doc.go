// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry sets up tracing and summarizes token usage.
//
// # Key Types
//
//   - Shutdown: Flushes the tracer provider installed by InitTracer
//   - Usage: Token and timing totals over a set of interactions
//
// # Usage
//
//	shutdown, err := telemetry.InitTracer(cfg.Tracing.Enabled, os.Stderr, log)
//	defer shutdown(context.Background())
//
//	u := telemetry.Summarize(st.Interactions())
//	fmt.Printf("%d tokens\n", u.TotalTokens())
package telemetry
