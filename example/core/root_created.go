package core

import (
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const RootCreatedEventName = "RootCreated"

// RootCreatedEvent is queued as a type token. Its fields are filled from the Root by name.
type RootCreatedEvent struct {
	domainevents.AdditionalData `json:"-"`

	ID        RootIDString
	Name      string
	CreatedAt OccurredAt
}

func (e *RootCreatedEvent) EventName() string {
	return RootCreatedEventName
}

func (e *RootCreatedEvent) HasOccurredAt() time.Time {
	return e.CreatedAt
}
