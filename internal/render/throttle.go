// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// codeFence marks a fenced code block in markdown output.
const codeFence = "```"

// =============================================================================
// CONFIGURATION
// =============================================================================

// Intervals are the minimum times between two display snapshots.
type Intervals struct {
	// Text applies to plain output
	Text time.Duration

	// Code applies once the output contains a fenced code block. It is
	// normally longer because highlighting code is the expensive path.
	Code time.Duration
}

// DefaultIntervals returns 30 snapshots/s for text and 10/s for code.
func DefaultIntervals() Intervals {
	return Intervals{
		Text: time.Second / 30,
		Code: time.Second / 10,
	}
}

// IntervalsFromFPS converts refresh rates to intervals. Rates outside 1..60
// fall back to the defaults.
func IntervalsFromFPS(textFPS, codeFPS int) Intervals {
	iv := DefaultIntervals()
	if textFPS > 0 && textFPS <= 60 {
		iv.Text = time.Second / time.Duration(textFPS)
	}
	if codeFPS > 0 && codeFPS <= 60 {
		iv.Code = time.Second / time.Duration(codeFPS)
	}
	return iv
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is one materialized view of a streaming interaction's output.
type Snapshot struct {
	InteractionID string
	Content       string

	// Code reports whether the content was treated as code-heavy
	Code bool

	// Final is set on the unthrottled flush at stream end
	Final bool
}

// =============================================================================
// THROTTLE
// =============================================================================

// Throttle decides when the latest output of one interaction becomes the
// displayed output. Updates inside an interval are coalesced: the first one
// flushes immediately, the rest schedule a single trailing flush at the next
// interval boundary that shows whatever is latest at that moment.
//
// The sink runs with the throttle locked and must not call back into it.
type Throttle struct {
	mu sync.Mutex

	id        string
	sched     Scheduler
	intervals Intervals
	limiter   *rate.Limiter
	interval  time.Duration
	sink      func(Snapshot)

	latest    string
	displayed string
	code      bool
	scanned   int

	pending  Timer
	finished bool
	flushes  int
}

// NewThrottle creates a throttle for interaction id.
func NewThrottle(id string, sched Scheduler, intervals Intervals, sink func(Snapshot)) *Throttle {
	if sched == nil {
		sched = WallClock()
	}
	if sink == nil {
		sink = func(Snapshot) {}
	}
	return &Throttle{
		id:        id,
		sched:     sched,
		intervals: intervals,
		interval:  intervals.Text,
		limiter:   rate.NewLimiter(rate.Every(intervals.Text), 1),
		sink:      sink,
	}
}

// Update records new latest content that extends the previous content.
func (t *Throttle) Update(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateLocked(content, false)
}

// Replace records latest content that does not extend the previous content,
// so code detection starts over.
func (t *Throttle) Replace(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateLocked(content, true)
}

func (t *Throttle) updateLocked(content string, replaced bool) {
	if t.finished {
		return
	}
	now := t.sched.Now()

	t.latest = content
	t.detectLocked(content, replaced)
	t.retuneLocked(now)

	if t.pending != nil {
		// the trailing flush will pick up this content
		return
	}

	delay := t.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		t.flushLocked(false)
		return
	}
	t.pending = t.sched.AfterFunc(delay, t.fire)
}

func (t *Throttle) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = nil
	if t.finished {
		return
	}
	t.flushLocked(false)
}

// detectLocked scans only the bytes added since the last scan, plus enough
// overlap to catch a fence split across two fragments.
func (t *Throttle) detectLocked(content string, replaced bool) {
	if replaced || len(content) < t.scanned {
		t.code = false
		t.scanned = 0
	}
	if t.code {
		return
	}
	start := t.scanned - (len(codeFence) - 1)
	if start < 0 {
		start = 0
	}
	if strings.Contains(content[start:], codeFence) {
		t.code = true
	}
	t.scanned = len(content)
}

func (t *Throttle) retuneLocked(now time.Time) {
	want := t.intervals.Text
	if t.code {
		want = t.intervals.Code
	}
	if want == t.interval {
		return
	}
	t.interval = want
	t.limiter.SetLimitAt(now, rate.Every(want))
}

func (t *Throttle) flushLocked(final bool) {
	if !final && t.latest == t.displayed {
		return
	}
	t.displayed = t.latest
	t.flushes++
	t.sink(Snapshot{
		InteractionID: t.id,
		Content:       t.displayed,
		Code:          t.code,
		Final:         final,
	})
}

// Finish cancels any pending flush and shows final immediately. Later
// updates are ignored.
func (t *Throttle) Finish(final string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return
	}
	t.stopPendingLocked()
	t.finished = true
	t.latest = final
	t.detectLocked(final, true)
	t.flushLocked(true)
}

// Stop cancels any pending flush without a final one.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopPendingLocked()
	t.finished = true
}

func (t *Throttle) stopPendingLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// SetIntervals changes the refresh rates. A pending flush keeps its time.
func (t *Throttle) SetIntervals(iv Intervals) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intervals = iv
	t.interval = 0
	t.retuneLocked(t.sched.Now())
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Displayed returns the content the consumer currently shows.
func (t *Throttle) Displayed() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.displayed
}

// Latest returns the newest content received.
func (t *Throttle) Latest() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Interval returns the interval in effect.
func (t *Throttle) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// IsCode reports whether the content was detected as code-heavy.
func (t *Throttle) IsCode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.code
}

// Flushes returns how many snapshots were produced.
func (t *Throttle) Flushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushes
}

// Finished reports whether Finish or Stop was called.
func (t *Throttle) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}
