// Package testfixtures provides deterministic stand-ins for the injected
// clock and id generator used across service tests.
package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable clock for tests. The zero value is unusable; use
// NewClock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at the given instant.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fixed instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to the given instant.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NowFunc returns a function suitable for injecting as a service's now
// dependency.
func (c *Clock) NowFunc() func() time.Time {
	return c.Now
}
