package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID is a value object identifying one edit session.
// Always valid in memory - use NewSessionID or GenerateSessionID to construct.
type SessionID struct {
	value string
}

// NewSessionID creates a SessionID from a raw string, validating it is a
// valid UUID.
func NewSessionID(raw string) (SessionID, error) {
	if raw == "" {
		return SessionID{}, fmt.Errorf("%w: empty session ID", ErrInvalidInput)
	}
	if _, err := uuid.Parse(raw); err != nil {
		return SessionID{}, fmt.Errorf("%w: session ID %q", ErrInvalidInput, raw)
	}
	return SessionID{value: raw}, nil
}

// GenerateSessionID creates a new random SessionID.
func GenerateSessionID() SessionID {
	return SessionID{value: uuid.NewString()}
}

func (id SessionID) String() string { return id.value }
