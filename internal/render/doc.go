// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render paces how often streamed output is shown.
//
// Fragments can arrive hundreds of times per second; re-rendering markdown
// that often wastes CPU and flickers. A Throttle per streaming interaction
// coalesces updates into snapshots at a bounded rate, with a slower rate once
// a fenced code block shows up. The end of a stream is always flushed at
// once, unthrottled.
//
// # Key Types
//
//   - Throttle: Leading and trailing rate limiting of one interaction's output
//   - Presenter: Drives throttles from store events
//   - Scheduler: Clock and timers; ManualScheduler makes tests deterministic
//   - Snapshot: One displayed state of an interaction's output
//
// # Usage
//
//	p := render.NewPresenter(bus, st, func(s render.Snapshot) {
//	    program.Send(s)
//	}, render.WithIntervals(render.IntervalsFromFPS(30, 10)))
//	p.Start()
//	defer p.Close()
package render
