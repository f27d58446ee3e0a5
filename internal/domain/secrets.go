package domain

import "log/slog"

// SecretString wraps sensitive string values such as the OTLP auth token.
// Implements slog.LogValuer to prevent accidental logging.
// Implements fmt.Stringer to return redacted value.
type SecretString string

// String returns a redacted placeholder, never the actual value.
func (s SecretString) String() string {
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer so secrets are never logged in plaintext.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Expose returns the actual secret value.
// Use only where the secret must be sent, e.g. an exporter header.
func (s SecretString) Expose() string {
	return string(s)
}

// IsEmpty returns true if the secret is empty.
func (s SecretString) IsEmpty() bool {
	return len(s) == 0
}

// Ensure interfaces are implemented at compile time.
var _ slog.LogValuer = SecretString("")
