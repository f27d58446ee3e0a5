// Package domaintest provides test doubles for the domain package.
package domaintest

import (
	"sync"
	"time"

	"github.com/aelexs/hubclock/internal/domain"
)

// FakeClock is a deterministic, advanceable clock for tests.
// Tickers created from it fire only when Advance moves time past their next
// deadline, so tests control exactly how many ticks a driver sees.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*FakeTicker
	created chan struct{}
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t, created: make(chan struct{}, 16)}
}

// Now returns the fake clock's current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) domain.Ticker {
	if d <= 0 {
		panic("domaintest: non-positive ticker period")
	}
	c.mu.Lock()
	tk := &FakeTicker{
		ch:     make(chan time.Time, 1),
		period: d,
		next:   c.current.Add(d),
	}
	c.tickers = append(c.tickers, tk)
	c.mu.Unlock()

	select {
	case c.created <- struct{}{}:
	default:
	}
	return tk
}

// TickerCreated is signalled each time a ticker is registered. Tests wait on
// it before advancing so the first tick is not missed.
func (c *FakeClock) TickerCreated() <-chan struct{} {
	return c.created
}

// Advance moves the fake clock forward by the given duration and fires every
// ticker whose deadline has passed. A ticker whose buffered tick has not been
// received yet drops the new one, matching time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	for _, tk := range c.tickers {
		tk.fire(c.current)
	}
}

// Set changes the fake clock to a specific time without firing tickers.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// FakeTicker is the Ticker returned by FakeClock.
type FakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

// C returns the tick channel.
func (t *FakeTicker) C() <-chan time.Time { return t.ch }

// Stop prevents further ticks.
func (t *FakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *FakeTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	for !t.next.After(now) {
		select {
		case t.ch <- t.next:
		default:
		}
		t.next = t.next.Add(t.period)
	}
}

// Ensure FakeClock implements domain.Clock at compile time.
var _ domain.Clock = (*FakeClock)(nil)
