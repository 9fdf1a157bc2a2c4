package core

import (
	"time"
)

// DomainEvents is a slice of DomainEvent instances
type DomainEvents = []DomainEvent

// DomainEvent represents a business event that has occurred in the domain
type DomainEvent interface {
	// EventName returns the string identifier under which this event is published
	EventName() string
	// HasOccurredAt returns when this event occurred
	HasOccurredAt() time.Time
}
