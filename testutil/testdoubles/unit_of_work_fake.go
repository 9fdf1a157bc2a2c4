package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

// UnitOfWorkFake is an in-memory UnitOfWork. Commit fails with the configured error, if any.
type UnitOfWorkFake struct {
	mu          sync.Mutex
	entities    []domainevents.TrackedEntity
	commitErr   error
	commitCount int
	onCommit    func(ctx context.Context) error
}

// NewUnitOfWorkFake creates an empty UnitOfWorkFake.
func NewUnitOfWorkFake() *UnitOfWorkFake {
	return &UnitOfWorkFake{}
}

// Track adds an entity with its primary key to the snapshot.
func (u *UnitOfWorkFake) Track(entity any, keys domainevents.PrimaryKey) *UnitOfWorkFake {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.entities = append(u.entities, domainevents.TrackedEntity{Entity: entity, Keys: keys})

	return u
}

// FailCommitWith makes every following Commit return err. A nil err makes commits succeed again.
func (u *UnitOfWorkFake) FailCommitWith(err error) *UnitOfWorkFake {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.commitErr = err

	return u
}

// OnCommit installs a hook that runs inside Commit before the configured outcome is returned.
func (u *UnitOfWorkFake) OnCommit(hook func(ctx context.Context) error) *UnitOfWorkFake {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.onCommit = hook

	return u
}

// TrackedEntities implements domainevents.UnitOfWork.
func (u *UnitOfWorkFake) TrackedEntities() []domainevents.TrackedEntity {
	u.mu.Lock()
	defer u.mu.Unlock()

	entities := make([]domainevents.TrackedEntity, len(u.entities))
	copy(entities, u.entities)

	return entities
}

// Commit implements domainevents.UnitOfWork.
func (u *UnitOfWorkFake) Commit(ctx context.Context) error {
	u.mu.Lock()
	u.commitCount++
	hook := u.onCommit
	commitErr := u.commitErr
	u.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	return commitErr
}

// CommitCount returns the number of Commit calls.
func (u *UnitOfWorkFake) CommitCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.commitCount
}

// Ensure UnitOfWorkFake implements domainevents.UnitOfWork.
var _ domainevents.UnitOfWork = (*UnitOfWorkFake)(nil)
