// Package protocol defines the JSON frames the clock console emits in json
// display mode, one frame per line.
package protocol

import "encoding/json"

// FrameType identifies the type of output frame.
type FrameType string

const (
	// Live clock state
	FrameTypeSnapshot FrameType = "snapshot"

	// Open edit session state
	FrameTypeDraft FrameType = "draft"

	// Command results
	FrameTypeAck   FrameType = "ack"
	FrameTypeError FrameType = "error"
)

// Frame is the base structure for all output frames.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Snapshot reports a clock value and both display strings.
type Snapshot struct {
	Cycle        int    `json:"cycle"`
	Precision    int    `json:"precision"`
	Elapsed      int    `json:"elapsed"`
	Slice        int    `json:"slice"`
	Tick         int    `json:"tick"`
	Tickule      int    `json:"tickule"`
	CycleDisplay string `json:"cycle_display"`
	TimeDisplay  string `json:"time_display"`
	Running      bool   `json:"running"`
}

// Field is the state of one edit field.
type Field struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Value int    `json:"value"`
	Valid bool   `json:"valid"`
}

// Draft reports an open edit session. Snapshot holds the draft clock, not
// the live one.
type Draft struct {
	SessionID string   `json:"session_id"`
	Snapshot  Snapshot `json:"snapshot"`
	Fields    []Field  `json:"fields"`
	Valid     bool     `json:"valid"`
}

// Ack confirms a command that changed state without producing a snapshot.
type Ack struct {
	Command string `json:"command"`
	Message string `json:"message,omitempty"`
}

// Error reports a refused command.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewFrame creates a Frame with the given type and payload.
func NewFrame(frameType FrameType, payload interface{}) (*Frame, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Frame{
		Type:    frameType,
		Payload: payloadBytes,
	}, nil
}

// ParsePayload unmarshals the frame payload into the given struct.
func (f *Frame) ParsePayload(v interface{}) error {
	if f.Payload == nil {
		return nil
	}
	return json.Unmarshal(f.Payload, v)
}
