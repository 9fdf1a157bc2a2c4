package domainevents

import "context"

// UnitOfWork is the persistence side of a save cycle.
//
// TrackedEntities returns every entity currently tracked, in enumeration order.
// Commit persists the tracked changes atomically.
type UnitOfWork interface {
	TrackedEntities() []TrackedEntity
	Commit(ctx context.Context) error
}

// EntityEventItem pairs one tracked entity with the events drained from it in one capture.
type EntityEventItem struct {
	Entity TrackedEntity
	Events []any
}

func flattenEventItems(items []EntityEventItem) Batch {
	size := 0
	for _, item := range items {
		size += len(item.Events)
	}

	batch := make(Batch, 0, size)
	for _, item := range items {
		batch = append(batch, item.Events...)
	}

	return batch
}
