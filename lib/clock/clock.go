// Copyright 2026 The Hcert Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts "now" for testability. Expiration checks
// compare a token's claims against the current instant; production
// code injects Real(), tests inject a Fake pinned to a chosen time so
// the 30-days-later scenarios are deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Every function that would call
// time.Now directly takes a Clock (or sits on a struct with a Clock
// field) instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the system clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Fake returns a deterministic Clock pinned to initial. Time stands
// still until Advance or Set is called.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a Clock under test control.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// Now returns the pinned time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward (or backward, with a negative d).
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Set pins the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
