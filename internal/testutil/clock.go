// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"sync"
	"time"
)

// referenceTime is used when NewFakeClock is given the zero time.
var referenceTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// FakeClock reports a manually advanced instant and counts how often it was
// read. It satisfies indexer.Clock.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	reads int
}

// NewFakeClock returns a clock stopped at initial, or at 2020-01-01 UTC when
// initial is zero.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = referenceTime
	}
	return &FakeClock{now: initial}
}

// Now returns the stopped instant.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Reads returns the number of Now calls so far.
func (c *FakeClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
