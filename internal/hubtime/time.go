package hubtime

import (
	"log/slog"
	"math"
)

// Time is a Hub date and time of day. It is a plain value: assigning a Time
// copies it, which is how editors take a private draft.
//
// The sub-cycle position is stored once, as tickules since the top of the
// cycle. Slice, tick, and tickule are always derived from it.
//
// The zero value is not a valid clock; construct with New.
type Time struct {
	cycle     int
	precision int
	elapsed   int
}

// New returns a clock at the top of cycle 0 with the default precision.
func New() Time {
	return Time{precision: DefaultPrecision}
}

// Cycle returns the absolute cycle number.
func (t Time) Cycle() int { return t.cycle }

// SetCycle sets the absolute cycle number. Negative values clamp to 0.
func (t *Time) SetCycle(cycle int) {
	t.cycle = max(cycle, 0)
}

// Precision returns the number of trailing cycle digits shown in the splat
// date.
func (t Time) Precision() int { return t.precision }

// SetPrecision sets the splat date precision, clamped into
// [MinPrecision, MaxPrecision].
func (t *Time) SetPrecision(precision int) {
	t.precision = clamp(precision, MinPrecision, MaxPrecision)
}

// Elapsed returns the tickules since the top of the current cycle.
func (t Time) Elapsed() int { return t.elapsed }

// Advance moves the clock forward one tickule, carrying into the next cycle
// at the end of the current one. It reports whether the cycle rolled over.
func (t *Time) Advance() bool {
	if t.elapsed+1 < TickulesPerCycle {
		t.elapsed++
		return false
	}
	t.elapsed = 0
	t.addCycles(1)
	return true
}

// SetTotalElapsed sets the tickules since the top of the current cycle. It
// is the only setter that accepts magnitudes beyond one cycle: whole cycles
// in value are carried into the cycle number, since the clock only runs
// forward. Negative values clamp to 0 and leave the cycle alone.
func (t *Time) SetTotalElapsed(value int) {
	if value < 0 {
		t.elapsed = 0
		return
	}
	carry, rest := quoRem(value, TickulesPerCycle)
	t.elapsed = rest
	t.addCycles(carry)
}

// addCycles adds n >= 0 cycles, saturating at math.MaxInt.
func (t *Time) addCycles(n int) {
	if t.cycle > math.MaxInt-n {
		t.cycle = math.MaxInt
		return
	}
	t.cycle += n
}

// Components returns the slice, tick, and tickule of the current time.
func (t Time) Components() (slice, tick, tickule int) {
	return Split(t.elapsed)
}

// Slice returns the current slice.
func (t Time) Slice() int {
	slice, _, _ := t.Components()
	return slice
}

// Tick returns the current tick.
func (t Time) Tick() int {
	_, tick, _ := t.Components()
	return tick
}

// Tickule returns the current tickule.
func (t Time) Tickule() int {
	_, _, tickule := t.Components()
	return tickule
}

// SetSlice replaces the slice, clamped into [0, SlicesPerCycle).
func (t *Time) SetSlice(slice int) {
	_, tick, tickule := t.Components()
	t.elapsed = Join(clamp(slice, 0, SlicesPerCycle-1), tick, tickule)
}

// SetTick replaces the tick, clamped into [0, TicksPerSlice).
func (t *Time) SetTick(tick int) {
	slice, _, tickule := t.Components()
	t.elapsed = Join(slice, clamp(tick, 0, TicksPerSlice-1), tickule)
}

// SetTickule replaces the tickule, clamped into [0, TickulesPerTick).
func (t *Time) SetTickule(tickule int) {
	slice, tick, _ := t.Components()
	t.elapsed = Join(slice, tick, clamp(tickule, 0, TickulesPerTick-1))
}

// CycleString returns the splat date, e.g. "*345" for cycle 12345 at
// precision 3.
func (t Time) CycleString() string {
	return FormatCycle(t.cycle, t.precision)
}

// TimeString returns the time of day, e.g. "01′23″45".
func (t Time) TimeString() string {
	return FormatTime(t.Components())
}

// String returns the splat date and time of day separated by a space.
func (t Time) String() string {
	return t.CycleString() + " " + t.TimeString()
}

// LogValue renders the clock as a structured log group.
func (t Time) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cycle", t.cycle),
		slog.Int("precision", t.precision),
		slog.Int("elapsed", t.elapsed),
		slog.String("display", t.String()),
	)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
