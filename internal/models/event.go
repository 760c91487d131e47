package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string            `bun:"id,pk" json:"id"`
	Name        string            `bun:"name,notnull" json:"name"`
	Description string            `bun:"description,nullzero" json:"description,omitempty"`
	Location    string            `bun:"location,nullzero" json:"location,omitempty"`
	Date        time.Time         `bun:"date,notnull" json:"date"`
	OrganizerID string            `bun:"organizer_id,nullzero" json:"organizerId,omitempty"`
	CreatedAt   time.Time         `bun:"created_at,notnull" json:"createdAt"`
	TicketTypes []EventTicketType `bun:"rel:has-many,join:id=event_id" json:"ticketTypes,omitempty"`
}

// EventTicketType is one entry of an event's ticket catalog.
type EventTicketType struct {
	bun.BaseModel `bun:"table:event_ticket_types"`

	ID       int64   `bun:"id,pk,autoincrement" json:"-"`
	EventID  string  `bun:"event_id,notnull,unique:event_ticket_type" json:"-"`
	Name     string  `bun:"name,notnull,unique:event_ticket_type" json:"name"`
	Price    float64 `bun:"price,notnull" json:"price"`
	Quantity int     `bun:"quantity,notnull" json:"quantity"`
}

func (e *Event) CatalogEntry(name string) (*EventTicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].Name == name {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}
