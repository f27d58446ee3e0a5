package editor

import (
	"fmt"
	"math"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/hubtime"
)

// Session is a private draft of the clock. Edits go to the draft only; the
// owner either swaps the whole draft into the live clock or discards it.
// A Session is not goroutine-safe.
type Session struct {
	id     domain.SessionID
	draft  hubtime.Time
	fields map[domain.FieldName]*Field
	closed bool
}

// FieldState is a read-only view of one edit field.
type FieldState struct {
	Name  domain.FieldName
	Text  string
	Value int
	Valid bool
}

// NewSession starts a draft copied from live. Every field is seeded with
// its current value and treats empty input as 0.
func NewSession(live hubtime.Time) *Session {
	slice, tick, tickule := live.Components()
	return &Session{
		id:    domain.GenerateSessionID(),
		draft: live,
		fields: map[domain.FieldName]*Field{
			domain.FieldCycle:   NewField(string(domain.FieldCycle), math.MaxInt, WithEmptyAsZero(), WithInitial(live.Cycle())),
			domain.FieldSlice:   NewField(string(domain.FieldSlice), hubtime.SlicesPerCycle-1, WithEmptyAsZero(), WithInitial(slice)),
			domain.FieldTick:    NewField(string(domain.FieldTick), hubtime.TicksPerSlice-1, WithEmptyAsZero(), WithInitial(tick)),
			domain.FieldTickule: NewField(string(domain.FieldTickule), hubtime.TickulesPerTick-1, WithEmptyAsZero(), WithInitial(tickule)),
		},
	}
}

// ID returns the session identifier used in logs and output frames.
func (s *Session) ID() string { return s.id.String() }

// Draft returns a copy of the draft clock.
func (s *Session) Draft() hubtime.Time { return s.draft }

// Set feeds input text to the named field. Valid text updates the draft;
// invalid text leaves the draft at the field's last accepted value. The
// returned bool is the field's validity.
func (s *Session) Set(name domain.FieldName, text string) (bool, error) {
	if s.closed {
		return false, domain.ErrSessionClosed
	}
	f, ok := s.fields[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
	}
	value, valid := f.Update(text)
	if !valid {
		return false, nil
	}
	switch name {
	case domain.FieldCycle:
		s.draft.SetCycle(value)
	case domain.FieldSlice:
		s.draft.SetSlice(value)
	case domain.FieldTick:
		s.draft.SetTick(value)
	case domain.FieldTickule:
		s.draft.SetTickule(value)
	}
	return true, nil
}

// SetPrecision sets the draft precision, clamped into range.
func (s *Session) SetPrecision(precision int) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	s.draft.SetPrecision(precision)
	return nil
}

// Valid reports whether every field holds accepted input.
func (s *Session) Valid() bool {
	return len(s.InvalidFields()) == 0
}

// InvalidFields lists fields whose latest input was rejected, in display
// order.
func (s *Session) InvalidFields() []domain.FieldName {
	var invalid []domain.FieldName
	for _, name := range domain.EditableFields {
		if !s.fields[name].Valid() {
			invalid = append(invalid, name)
		}
	}
	return invalid
}

// Fields returns the state of every field in display order.
func (s *Session) Fields() []FieldState {
	states := make([]FieldState, 0, len(domain.EditableFields))
	for _, name := range domain.EditableFields {
		f := s.fields[name]
		states = append(states, FieldState{
			Name:  name,
			Text:  f.Text(),
			Value: f.Value(),
			Valid: f.Valid(),
		})
	}
	return states
}

// Close marks the session finished. Closing twice returns ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	s.closed = true
	return nil
}

// Closed reports whether the session was committed or cancelled.
func (s *Session) Closed() bool { return s.closed }
