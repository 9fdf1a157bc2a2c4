package postgresuow

import (
	"reflect"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

// Entity is a row that a Session can persist.
//
// PrimaryKey returns the key columns in their declared order. Columns returns the non-key columns.
// Entities are expected to be pointers, so the tracked instance is the one that records events.
type Entity interface {
	TableName() string
	PrimaryKey() domainevents.PrimaryKey
	Columns() map[string]any
}

type entityState int

const (
	stateTracked entityState = iota
	stateRemoved
)

type trackedEntry struct {
	entity   Entity
	identity string
	state    entityState
}

// identityOf returns the table name and the rendered primary key of the entity.
func identityOf(entity Entity) (string, error) {
	if entity == nil || isNilPointer(entity) {
		return "", ErrNilEntity
	}

	if entity.TableName() == "" {
		return "", ErrEmptyTableName
	}

	keys := entity.PrimaryKey()
	if len(keys) == 0 {
		return "", ErrEmptyPrimaryKey
	}

	rendered, err := keys.MarshalJSON()
	if err != nil {
		return "", err
	}

	return entity.TableName() + "|" + string(rendered), nil
}

func isNilPointer(entity Entity) bool {
	value := reflect.ValueOf(entity)
	return value.Kind() == reflect.Pointer && value.IsNil()
}

// sameInstance reports whether a and b are the same entity instance.
func sameInstance(a, b Entity) bool {
	if !reflect.TypeOf(a).Comparable() || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	return a == b
}
