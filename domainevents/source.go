package domainevents

import (
	"reflect"
	"sync"
)

// EventSource is implemented by entities that queue domain events from their business methods.
//
// Capture calls DrainEvents exactly once per save cycle. Events that have been drained are
// never returned again by the same source.
type EventSource interface {
	// AddEvent queues a concrete event. Any value is accepted.
	AddEvent(event any)

	// AddEventOfType queues a type token. The event is built from the entity's state
	// by the Mapper during capture.
	AddEventOfType(eventType reflect.Type)

	// DrainEvents returns all queued descriptors in insertion order and empties the queue.
	DrainEvents() Descriptors
}

// AddEventOf queues a type token for T on the given source.
func AddEventOf[T any](source EventSource) {
	source.AddEventOfType(reflect.TypeFor[T]())
}

// Descriptors is an ordered list of queued event descriptors.
type Descriptors []Descriptor

type descriptorKind int

const (
	kindExplicit descriptorKind = iota
	kindTypeToken
)

// Descriptor is one queued entry: either a concrete event or a type token.
type Descriptor struct {
	kind      descriptorKind
	event     any
	typeToken reflect.Type
}

// ExplicitEvent builds a Descriptor for a concrete event.
func ExplicitEvent(event any) Descriptor {
	return Descriptor{kind: kindExplicit, event: event}
}

// TypeToken builds a Descriptor for an event that still has to be mapped from its entity.
// A nil type stays a type token and is handled by the unresolved type token rules.
func TypeToken(eventType reflect.Type) Descriptor {
	return Descriptor{kind: kindTypeToken, typeToken: eventType}
}

// IsTypeToken reports whether the descriptor carries a type token instead of an event.
func (d Descriptor) IsTypeToken() bool {
	return d.kind == kindTypeToken
}

// Event returns the concrete event, or nil for a type token.
func (d Descriptor) Event() any {
	return d.event
}

// TokenType returns the type token, or nil for a concrete event.
func (d Descriptor) TokenType() reflect.Type {
	return d.typeToken
}

// Split separates the descriptors into concrete events and type tokens, keeping the relative order of each.
func (ds Descriptors) Split() ([]any, []reflect.Type) {
	explicitEvents := make([]any, 0, len(ds))
	typeTokens := make([]reflect.Type, 0)

	for _, d := range ds {
		if d.IsTypeToken() {
			typeTokens = append(typeTokens, d.typeToken)
			continue
		}

		explicitEvents = append(explicitEvents, d.event)
	}

	return explicitEvents, typeTokens
}

// Recorder is an embeddable EventSource. The zero value is an empty queue ready to use.
//
// Embed it by value and use the entity through a pointer so the pointer-receiver methods
// are part of the entity's method set.
type Recorder struct {
	mu      sync.Mutex
	pending Descriptors
}

// AddEvent queues a concrete event.
func (r *Recorder) AddEvent(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, ExplicitEvent(event))
}

// AddEventOfType queues a type token.
func (r *Recorder) AddEventOfType(eventType reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, TypeToken(eventType))
}

// DrainEvents returns and clears the queue in one step.
func (r *Recorder) DrainEvents() Descriptors {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := r.pending
	r.pending = nil

	if drained == nil {
		return Descriptors{}
	}

	return drained
}

// PendingEvents returns the number of queued descriptors without draining them.
func (r *Recorder) PendingEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// Ensure Recorder implements EventSource.
var _ EventSource = (*Recorder)(nil)
