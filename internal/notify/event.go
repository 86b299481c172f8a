package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Name identifies an event kind.
type Name string

// Event is one flow outcome. Data is the mediator's data object as received; Payload
// is its decoded form. Err is set on failure events.
type Event struct {
	ID      uuid.UUID
	Name    Name
	Time    time.Time
	CycleID string
	Route   string
	Data    json.RawMessage
	Payload any
	Err     error
	Message string
	Timeout bool
}

type wireEvent struct {
	ID      uuid.UUID       `json:"id"`
	Name    Name            `json:"name"`
	Time    time.Time       `json:"time"`
	CycleID string          `json:"cycle_id,omitempty"`
	Route   string          `json:"route,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Timeout bool            `json:"timeout,omitempty"`
}

// MarshalJSON encodes the event without Payload. Err is flattened to its message.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:      e.ID,
		Name:    e.Name,
		Time:    e.Time,
		CycleID: e.CycleID,
		Route:   e.Route,
		Data:    e.Data,
		Message: e.Message,
		Timeout: e.Timeout,
	}
	if e.Err != nil {
		w.Error = e.Err.Error()
	}
	return json.Marshal(w)
}
