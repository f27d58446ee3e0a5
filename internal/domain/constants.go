package domain

import "time"

// Operational limits for the clock process.
// These are compiled defaults; the speed multiplier can be overridden via
// configuration.
const (
	// Driver pacing
	DefaultSpeed = 1.0     // Real-time pacing: one tickule every 60/77 s
	MaxSpeed     = 1_000.0 // Fastest allowed fast-forward multiplier
	MinTickEvery = time.Millisecond

	// Console limits
	MaxCommandLineLength = 4 * 1024 // Longest accepted console line
	MaxFieldInputLength  = 32       // Longest text accepted into an edit field

	// Graceful shutdown
	ShutdownOTELTimeout = 5 * time.Second // Max time to flush metrics and spans
)

// DisplayFormat selects how the console renders clock state.
type DisplayFormat string

const (
	DisplayFormatText DisplayFormat = "text"
	DisplayFormatJSON DisplayFormat = "json"
)

// IsValidDisplayFormat checks if a display format is supported.
func IsValidDisplayFormat(f DisplayFormat) bool {
	return f == DisplayFormatText || f == DisplayFormatJSON
}

// FieldName identifies an editable clock field.
type FieldName string

const (
	FieldCycle   FieldName = "cycle"
	FieldSlice   FieldName = "slice"
	FieldTick    FieldName = "tick"
	FieldTickule FieldName = "tickule"
)

// EditableFields lists the fields an edit session exposes, in display order.
var EditableFields = []FieldName{FieldCycle, FieldSlice, FieldTick, FieldTickule}

// IsValidFieldName checks if a field name is editable.
func IsValidFieldName(f FieldName) bool {
	for _, name := range EditableFields {
		if f == name {
			return true
		}
	}
	return false
}
