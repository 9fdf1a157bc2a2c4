package core

import (
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const EntityAddedEventName = "EntityAdded"

type EntityAddedEvent struct {
	domainevents.AdditionalData `json:"-"`

	RootID     RootIDString
	ChildID    ChildIDString
	Name       string
	OccurredAt OccurredAt
}

func BuildEntityAddedEvent(
	rootID RootIDString,
	childID ChildIDString,
	name string,
	occurredAt time.Time,
) *EntityAddedEvent {

	return &EntityAddedEvent{
		RootID:     rootID,
		ChildID:    childID,
		Name:       name,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

func (e *EntityAddedEvent) EventName() string {
	return EntityAddedEventName
}

func (e *EntityAddedEvent) HasOccurredAt() time.Time {
	return e.OccurredAt
}
