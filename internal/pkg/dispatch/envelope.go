package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Envelope is the decoded webhook payload: a batch of platform events.
type Envelope struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one entry of an envelope. Only text message events are processed;
// every other kind is skipped without error.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Source    struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

var errNoEvents = errors.New("payload has no events field")

// ParseEnvelope decodes a raw webhook body. A structurally invalid body is a
// request-level failure; a missing events array counts as invalid too because
// nothing downstream could act on it. Events are decoded one by one so that a
// single garbage entry (wrong field types, not valid JSON for an event) does
// not take its valid siblings down with it; such an entry decodes to the zero
// Event, which the classifier skips.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var raw struct {
		Destination string            `json:"destination"`
		Events      []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if raw.Events == nil {
		return nil, errNoEvents
	}

	env := &Envelope{
		Destination: raw.Destination,
		Events:      make([]Event, len(raw.Events)),
	}
	for i, rawEvent := range raw.Events {
		var ev Event
		if err := json.Unmarshal(rawEvent, &ev); err != nil {
			// Partially decoded fields are discarded; a half-read event must
			// not be acted on.
			ev = Event{}
		}
		env.Events[i] = ev
	}
	return env, nil
}

// IsTextMessage reports whether the event is a message event with a textual
// body.
func (e *Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text" && e.Message.Text != ""
}

// Time converts the millisecond timestamp to a point in time. A negative
// timestamp is a recoverable per-event failure, not a batch abort.
func (e *Event) Time() (time.Time, error) {
	if e.Timestamp < 0 {
		return time.Time{}, fmt.Errorf("invalid event timestamp %d", e.Timestamp)
	}
	return time.UnixMilli(e.Timestamp), nil
}
