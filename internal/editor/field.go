// Package editor holds the editing side of the clock: bounded integer input
// fields and draft sessions that are committed or discarded as a whole.
package editor

import (
	"strconv"

	"github.com/aelexs/hubclock/internal/domain"
)

// Field validates free-form text typed into a non-negative integer input.
//
// Invalid text is a normal state, not a fault: the field keeps the last
// accepted value and reports itself invalid until the text becomes valid
// again.
type Field struct {
	name        string
	max         int
	emptyAsZero bool

	text  string
	value int
	valid bool
}

// FieldOption configures a Field.
type FieldOption func(*Field)

// WithEmptyAsZero treats empty text as a valid 0 instead of invalid input.
func WithEmptyAsZero() FieldOption {
	return func(f *Field) { f.emptyAsZero = true }
}

// WithInitial seeds the field with a value and its decimal text, as if the
// user had typed it.
func WithInitial(value int) FieldOption {
	return func(f *Field) {
		f.Update(strconv.Itoa(value))
	}
}

// NewField creates a field accepting integers in [0, max]. Without options
// the field starts empty and, unless WithEmptyAsZero is given, invalid.
func NewField(name string, max int, opts ...FieldOption) *Field {
	f := &Field{name: name, max: max}
	for _, opt := range opts {
		opt(f)
	}
	if f.text == "" {
		f.valid = f.accepts("")
	}
	return f
}

// Update records new input text and returns the field's value and validity
// after it. The value only changes when the text is valid.
func (f *Field) Update(text string) (int, bool) {
	f.text = text
	if v, ok := f.parse(text); ok {
		f.value = v
		f.valid = true
	} else {
		f.valid = false
	}
	return f.value, f.valid
}

func (f *Field) accepts(text string) bool {
	_, ok := f.parse(text)
	return ok
}

// parse accepts only plain ASCII digits: no sign, no spaces.
func (f *Field) parse(text string) (int, bool) {
	if text == "" {
		return 0, f.emptyAsZero
	}
	if len(text) > domain.MaxFieldInputLength {
		return 0, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(text)
	if err != nil || v > f.max {
		return 0, false
	}
	return v, true
}

// Name returns the field label.
func (f *Field) Name() string { return f.name }

// Max returns the largest accepted value.
func (f *Field) Max() int { return f.max }

// Text returns the most recent input text, valid or not.
func (f *Field) Text() string { return f.text }

// Value returns the last accepted value.
func (f *Field) Value() int { return f.value }

// Valid reports whether the most recent input text was accepted.
func (f *Field) Valid() bool { return f.valid }
