package postgresuow

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow/internal/adapters"
)

type customerRow struct {
	domainevents.Recorder
	ID      string
	Name    string
	Country string
}

func (c *customerRow) TableName() string { return "customers" }

func (c *customerRow) PrimaryKey() domainevents.PrimaryKey { return domainevents.Key("id", c.ID) }

func (c *customerRow) Columns() map[string]any {
	return map[string]any{"name": c.Name, "country": c.Country}
}

type tagRow struct {
	CustomerID string
	Tag        string
}

func (t *tagRow) TableName() string { return "customer_tags" }

func (t *tagRow) PrimaryKey() domainevents.PrimaryKey {
	return domainevents.Key("customer_id", t.CustomerID).With("tag", t.Tag)
}

func (t *tagRow) Columns() map[string]any { return nil }

type fakeDB struct {
	mu         sync.Mutex
	executed   []string
	committed  int
	rolledBack int
	beginErr   error
	execErr    error
	failOnExec int
	commitErr  error
}

func (f *fakeDB) BeginTx(_ context.Context) (adapters.DBTx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}

	return &fakeTx{db: f}, nil
}

func (f *fakeDB) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.executed...)
}

type fakeTx struct {
	db      *fakeDB
	pending []string
	execs   int
}

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

func (t *fakeTx) Exec(ctx context.Context, query string) (adapters.DBResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.execs++
	if t.db.execErr != nil && t.execs >= t.db.failOnExec {
		return nil, t.db.execErr
	}

	t.pending = append(t.pending, query)

	return fakeResult(1), nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if t.db.commitErr != nil {
		return t.db.commitErr
	}

	t.db.executed = append(t.db.executed, t.pending...)
	t.db.committed++

	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	t.db.rolledBack++

	return nil
}

func givenStoreWithFakeDB(options ...Option) (*Store, *fakeDB) {
	db := &fakeDB{}
	store, err := newStore(db, options...)
	if err != nil {
		panic(err)
	}

	return store, db
}

type keylessRow struct {
	table string
}

func (k *keylessRow) TableName() string { return k.table }

func (k *keylessRow) PrimaryKey() domainevents.PrimaryKey { return nil }

func (k *keylessRow) Columns() map[string]any { return nil }
