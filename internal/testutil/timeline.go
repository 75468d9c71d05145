// Package testutil holds deterministic helpers shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// Timeline hands out evenly spaced instants for building event sequences.
//
// The first call to Next returns the start instant. Safe for concurrent use.
type Timeline struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int
}

// NewTimeline creates a timeline starting at start and advancing by step.
func NewTimeline(start time.Time, step time.Duration) *Timeline {
	return &Timeline{start: start.UTC(), step: step}
}

// Next returns the next instant and advances the timeline.
func (tl *Timeline) Next() time.Time {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	t := tl.start.Add(time.Duration(tl.n) * tl.step)
	tl.n++
	return t
}

// Current returns the last instant handed out, or the start if Next was
// never called.
func (tl *Timeline) Current() time.Time {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.n == 0 {
		return tl.start
	}
	return tl.start.Add(time.Duration(tl.n-1) * tl.step)
}

// Reset rewinds the timeline so the next call to Next returns the start.
func (tl *Timeline) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.n = 0
}
