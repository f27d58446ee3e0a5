// Package hubtime models time on the world Hub.
//
// Hub time is recorded as a cycle number plus a position inside the cycle
// measured in slices, ticks, and tickules, much like a day count plus hours,
// minutes, and seconds. There is no grouping above the cycle; the cycle
// count just keeps incrementing.
//
// Cycles are usually referenced by a limited number of trailing digits, the
// "splat" date, while the full-precision "absolute" date is always tracked
// internally. A clock left running past its display precision appears to
// roll over even though the absolute date keeps counting.
//
// Everything in this package is a pure value or function. Time is not safe
// for concurrent mutation; owners that share one across goroutines must
// serialize access themselves.
package hubtime

import "time"

// Radixes between the Hub time units.
const (
	SlicesPerCycle   = 16
	TicksPerSlice    = 100
	TickulesPerTick  = 100
	TickulesPerSlice = TicksPerSlice * TickulesPerTick   // 10 000
	TickulesPerCycle = SlicesPerCycle * TickulesPerSlice // 160 000
)

// SecondsPerTickule is the one ratio tying Hub time to common time. Every
// other rate derives from it.
const SecondsPerTickule = 60.0 / 77.0

// TickulePeriod is SecondsPerTickule as a Duration, truncated to the
// nanosecond.
const TickulePeriod = 60 * time.Second / 77

// Splat date precision bounds. MaxPrecision can be raised as long as the
// display still fits the digits.
const (
	MinPrecision     = 1
	MaxPrecision     = 7
	DefaultPrecision = 3
)

// Display glyphs.
const (
	SplatMarker    = "*"
	SliceSeparator = "′" // U+2032 PRIME
	TickSeparator  = "″" // U+2033 DOUBLE PRIME
)
