package core

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow"
)

const RootsTable = "roots"

var (
	ErrEmptyRootID    = errors.New("root id must not be empty")
	ErrEmptyRootName  = errors.New("root name must not be empty")
	ErrEmptyChildID   = errors.New("child id must not be empty")
	ErrEmptyChildName = errors.New("child name must not be empty")
	ErrDuplicateChild = errors.New("child with this id already exists")
)

// Root is the demo aggregate. Use it through a pointer.
type Root struct {
	domainevents.Recorder

	ID        RootIDString
	Name      string
	CreatedAt OccurredAt
	Children  []*Child `json:"-"`
}

// CreateRoot builds a new Root and queues a RootCreatedEvent type token.
func CreateRoot(id RootIDString, name string, createdAt time.Time) (*Root, error) {
	if id == "" {
		return nil, ErrEmptyRootID
	}

	if name == "" {
		return nil, ErrEmptyRootName
	}

	root := &Root{
		ID:        id,
		Name:      name,
		CreatedAt: ToOccurredAt(createdAt),
	}

	domainevents.AddEventOf[*RootCreatedEvent](root)

	return root, nil
}

// AddChild attaches a new Child and queues an EntityAddedEvent for it.
func (r *Root) AddChild(id ChildIDString, name string, addedAt time.Time) (*Child, error) {
	if id == "" {
		return nil, ErrEmptyChildID
	}

	if name == "" {
		return nil, ErrEmptyChildName
	}

	for _, existing := range r.Children {
		if existing.ID == id {
			return nil, ErrDuplicateChild
		}
	}

	child := &Child{ID: id, RootID: r.ID, Name: name}
	r.Children = append(r.Children, child)

	r.AddEvent(BuildEntityAddedEvent(r.ID, id, name, addedAt))

	return child, nil
}

// Entities returns the Root followed by its children, ready to be added to a postgresuow.Session.
func (r *Root) Entities() []postgresuow.Entity {
	entities := make([]postgresuow.Entity, 0, len(r.Children)+1)
	entities = append(entities, r)

	for _, child := range r.Children {
		entities = append(entities, child)
	}

	return entities
}

func (r *Root) TableName() string {
	return RootsTable
}

func (r *Root) PrimaryKey() domainevents.PrimaryKey {
	return domainevents.Key("id", r.ID)
}

func (r *Root) Columns() map[string]any {
	return map[string]any{
		"name":       r.Name,
		"created_at": r.CreatedAt,
	}
}

var _ postgresuow.Entity = (*Root)(nil)
