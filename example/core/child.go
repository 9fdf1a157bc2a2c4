package core

import (
	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow"
)

const ChildrenTable = "root_children"

// Child is owned by a Root and records no events of its own.
type Child struct {
	ID     ChildIDString
	RootID RootIDString
	Name   string
}

func (c *Child) TableName() string {
	return ChildrenTable
}

func (c *Child) PrimaryKey() domainevents.PrimaryKey {
	return domainevents.Key("id", c.ID)
}

func (c *Child) Columns() map[string]any {
	return map[string]any{
		"root_id": c.RootID,
		"name":    c.Name,
	}
}

var _ postgresuow.Entity = (*Child)(nil)
