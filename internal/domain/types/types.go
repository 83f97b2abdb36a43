// Package types contains the wire shapes shared by the HTTP API and its clients.
package types

import (
	"github.com/okian/recall/internal/domain/model"
	"github.com/okian/recall/internal/domain/retention"
)

// StudyEvent is the JSON body of POST /revlog. Kind travels as its name.
type StudyEvent struct {
	EventID      string          `json:"event_id,omitempty"`
	CardID       int64           `json:"card_id"`
	Timestamp    int64           `json:"ts"`
	Kind         model.EventKind `json:"kind"`
	LastInterval int32           `json:"last_interval"`
	Button       int32           `json:"button"`
}

// FromModel converts a domain event to its wire form.
func FromModel(e model.StudyEvent) StudyEvent {
	return StudyEvent(e)
}

// Model converts the wire form to a domain event.
func (e StudyEvent) Model() model.StudyEvent {
	return model.StudyEvent(e)
}

// Ack answers POST /revlog.
type Ack struct {
	EventID   string `json:"event_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Retention is the body of GET /retention.
type Retention struct {
	NextDayStart int64                 `json:"next_day_start"`
	Windows      retention.Table       `json:"windows"`
	Report       retention.Report      `json:"report"`
	Diagnostics  retention.Diagnostics `json:"diagnostics"`
}
