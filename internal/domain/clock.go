// Package domain contains the shared vocabulary of the clock process:
// sentinel errors, operational limits, value objects, and the wall-clock
// abstraction. Only google/uuid is imported from outside the standard library.
package domain

import "time"

// Clock provides the current wall time and fixed-period tickers.
// Implementations may be real (production) or deterministic (testing).
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker that delivers the time on its channel once
	// per period d. Like time.Ticker, ticks are dropped for slow receivers.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks at a fixed period until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock using the system clock.
// It is a zero-allocation implementation (empty struct).
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker.
func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Ensure RealClock implements Clock at compile time.
var _ Clock = RealClock{}
