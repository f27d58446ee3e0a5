// Package driver paces the live clock in real time. One tickule lasts
// 60/77 of a second; a speed multiplier shortens that for fast-forward.
package driver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/hubtime"
)

// Advancer moves a clock forward one tickule. A refused advance is skipped.
type Advancer interface {
	Advance(ctx context.Context) error
}

// Config holds the dependencies for Driver.
type Config struct {
	Advancer  Advancer
	Clock     domain.Clock // Defaults to domain.RealClock
	Speed     float64      // Defaults to domain.DefaultSpeed
	Autostart bool
	Logger    *slog.Logger
}

// Driver calls Advance once per tickule period while running. The run flag
// can be flipped from any goroutine; Run itself owns the ticker.
type Driver struct {
	advancer Advancer
	clock    domain.Clock
	period   time.Duration
	running  atomic.Bool
	logger   *slog.Logger
}

// New creates a Driver. It panics if cfg.Advancer is nil.
func New(cfg Config) *Driver {
	if cfg.Advancer == nil {
		panic("driver: nil Advancer")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{
		advancer: cfg.Advancer,
		clock:    clock,
		period:   Period(cfg.Speed),
		logger:   logger,
	}
	d.running.Store(cfg.Autostart)
	return d
}

// Period returns the ticker period for a speed multiplier. Non-positive
// speeds run in real time; the result never drops below domain.MinTickEvery.
func Period(speed float64) time.Duration {
	if speed <= 0 {
		speed = domain.DefaultSpeed
	}
	speed = min(speed, domain.MaxSpeed)
	return max(time.Duration(float64(hubtime.TickulePeriod)/speed), domain.MinTickEvery)
}

// Period returns the driver's ticker period.
func (d *Driver) Period() time.Duration { return d.period }

// Run ticks until ctx is done. Ticks that arrive while stopped are
// discarded, so a paused clock never catches up on resume.
func (d *Driver) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.period)
	defer ticker.Stop()

	d.logger.InfoContext(ctx, "driver.started",
		"period", d.period,
		"running", d.running.Load(),
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "driver.stopped")
			return nil
		case <-ticker.C():
			if !d.running.Load() {
				continue
			}
			if err := d.advancer.Advance(ctx); err != nil {
				d.logger.DebugContext(ctx, "driver.advance_skipped", "error", err)
			}
		}
	}
}

// Start sets the run flag. It reports whether the flag changed.
func (d *Driver) Start() bool {
	return d.running.CompareAndSwap(false, true)
}

// Stop clears the run flag. It reports whether the flag changed.
func (d *Driver) Stop() bool {
	return d.running.CompareAndSwap(true, false)
}

// Toggle flips the run flag and returns the new state.
func (d *Driver) Toggle() bool {
	for {
		cur := d.running.Load()
		if d.running.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// Running reports whether the driver advances the clock on each tick.
func (d *Driver) Running() bool {
	return d.running.Load()
}
