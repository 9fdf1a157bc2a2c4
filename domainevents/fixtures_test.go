package domainevents_test

import (
	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

type orderEntity struct {
	domainevents.Recorder
	ID   string
	Name string
}

func newOrderEntity(id, name string) *orderEntity {
	return &orderEntity{ID: id, Name: name}
}

func (o *orderEntity) AddItem(name string) {
	o.AddEvent(&itemAddedEvent{Name: name})
}

func (o *orderEntity) Place() {
	domainevents.AddEventOf[*orderPlacedEvent](o)
}

func (o *orderEntity) Keys() domainevents.PrimaryKey {
	return domainevents.Key("ID", o.ID)
}

type itemAddedEvent struct {
	domainevents.AdditionalData
	Name string
}

type orderPlacedEvent struct {
	domainevents.AdditionalData
	ID   string
	Name string
}

type plainEvent struct {
	Value int
}

type notAnEventSource struct {
	ID string
}
