// Package errmap maps domain errors to what the console and the process
// report: an error code for output frames and an exit status.
package errmap

import (
	"errors"

	"github.com/aelexs/hubclock/internal/domain"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1 // Internal or unexpected error
	ExitUsage   = 2 // Bad command or argument
	ExitConfig  = 3 // Configuration could not be loaded or validated
)

// CommandError is the user-facing form of a refused command.
type CommandError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ExitCode int    `json:"-"`
}

func (e CommandError) Error() string {
	return e.Message
}

// commandMapping defines a domain error to code/exit status mapping.
type commandMapping struct {
	err      error
	code     string
	exitCode int
}

// commandMappings maps domain errors to console codes.
// Order matters: first match wins (via errors.Is).
var commandMappings = []commandMapping{
	// Input errors
	{domain.ErrUnknownCommand, "UNKNOWN_COMMAND", ExitUsage},
	{domain.ErrUnknownField, "UNKNOWN_FIELD", ExitUsage},
	{domain.ErrInvalidInput, "INVALID_ARGUMENT", ExitUsage},

	// Edit session state
	{domain.ErrClockRunning, "CLOCK_RUNNING", ExitUsage},
	{domain.ErrEditInProgress, "EDIT_IN_PROGRESS", ExitUsage},
	{domain.ErrNoEditSession, "NO_EDIT_SESSION", ExitUsage},
	{domain.ErrSessionClosed, "SESSION_CLOSED", ExitUsage},
	{domain.ErrInvalidDraft, "INVALID_DRAFT", ExitUsage},

	// Startup
	{domain.ErrInvalidConfig, "INVALID_CONFIG", ExitConfig},
}

// ToCommandError converts a domain error to a CommandError.
func ToCommandError(err error) CommandError {
	if err == nil {
		return CommandError{ExitCode: ExitOK}
	}
	for _, m := range commandMappings {
		if errors.Is(err, m.err) {
			return CommandError{Code: m.code, Message: err.Error(), ExitCode: m.exitCode}
		}
	}
	// Never expose internal error details to the user
	return CommandError{Code: "INTERNAL", Message: "internal error", ExitCode: ExitFailure}
}

// ToExitCode extracts just the process exit status for an error.
func ToExitCode(err error) int {
	return ToCommandError(err).ExitCode
}
