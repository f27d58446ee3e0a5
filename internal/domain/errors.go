package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
//
// The time model itself never fails; these cover the layers around it.
var (
	// Input errors
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownField   = errors.New("unknown field")

	// Edit session errors
	ErrClockRunning   = errors.New("clock must be stopped before editing")
	ErrEditInProgress = errors.New("an edit session is already open")
	ErrNoEditSession  = errors.New("no edit session is open")
	ErrInvalidDraft   = errors.New("draft has invalid fields")
	ErrSessionClosed  = errors.New("edit session already closed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// clientErrors enumerates all domain errors the console user can fix by
// issuing a different command.
var clientErrors = []error{
	ErrInvalidInput,
	ErrUnknownCommand,
	ErrUnknownField,
	ErrClockRunning,
	ErrEditInProgress,
	ErrNoEditSession,
	ErrInvalidDraft,
	ErrSessionClosed,
}

// IsClientError returns true if the error represents a user-side issue
// that will not succeed on retry without a different command.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsEditConflict returns true if the error reports an edit session in the
// wrong state for the requested operation.
func IsEditConflict(err error) bool {
	return errors.Is(err, ErrClockRunning) ||
		errors.Is(err, ErrEditInProgress) ||
		errors.Is(err, ErrNoEditSession) ||
		errors.Is(err, ErrSessionClosed)
}
