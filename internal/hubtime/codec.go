package hubtime

import (
	"fmt"
	"strings"
)

// quoRem returns the quotient and remainder of dividend / divisor.
// Both operands are expected to be non-negative.
func quoRem(dividend, divisor int) (int, int) {
	return dividend / divisor, dividend % divisor
}

// Split decomposes a tickule count from the top of a cycle into its slice,
// tick, and tickule components.
func Split(elapsed int) (slice, tick, tickule int) {
	ticks, tickule := quoRem(elapsed, TickulesPerTick)
	slice, tick = quoRem(ticks, TicksPerSlice)
	return slice, tick, tickule
}

// Join is the inverse of Split. It does not validate its inputs; callers
// clamp each component into range first.
func Join(slice, tick, tickule int) int {
	return slice*TickulesPerSlice + tick*TickulesPerTick + tickule
}

// FormatCycle renders a splat date: cycle zero-padded to precision digits,
// truncated to its last precision digits, and prefixed with SplatMarker.
//
//	FormatCycle(12345, 3) == "*345"
//	FormatCycle(7, 3)     == "*007"
func FormatCycle(cycle, precision int) string {
	digits := fmt.Sprintf("%0*d", precision, cycle)
	if n := len(digits); n > precision {
		digits = digits[n-precision:]
	}
	var b strings.Builder
	b.Grow(len(SplatMarker) + len(digits))
	b.WriteString(SplatMarker)
	b.WriteString(digits)
	return b.String()
}

// FormatTime renders the sub-cycle components as two-digit fields separated
// by the prime and double-prime glyphs, e.g. "01′23″45".
func FormatTime(slice, tick, tickule int) string {
	return fmt.Sprintf("%02d%s%02d%s%02d", slice, SliceSeparator, tick, TickSeparator, tickule)
}
