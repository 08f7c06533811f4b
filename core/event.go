package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event is an application-defined telemetry record emitted from inside an
// operation. Type is the discriminator identifying the event kind; Data is a
// producer-defined payload with no fixed schema.
//
// Events are encoded with the discriminator under "custom_event" so consumers
// written against the custom stream channel can switch on a single key.
type Event struct {
	Type string         `json:"custom_event" msgpack:"custom_event"`
	Data map[string]any `json:"data,omitempty" msgpack:"data,omitempty"`
}

// NewEvent creates an event of the given kind. Data may be nil.
func NewEvent(kind string, data map[string]any) Event {
	return Event{Type: kind, Data: data}
}

// Get returns the payload value stored under key.
func (e Event) Get(key string) (any, bool) {
	if e.Data == nil {
		return nil, false
	}
	v, ok := e.Data[key]
	return v, ok
}

// String renders the event as compact JSON, falling back to the type name.
func (e Event) String() string {
	b, err := json.Marshal(e)
	if err != nil {
		return e.Type
	}
	return string(b)
}

// NewID generates a new unique identifier for messages, runs and tool calls.
func NewID() string { return uuid.NewString() }
