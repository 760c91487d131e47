package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TicketCount represents a daily count of tickets booked for an event and ticket type
type TicketCount struct {
	bun.BaseModel `bun:"table:ticket_counts"`

	ID         int64     `bun:"id,pk,autoincrement" json:"-"`
	EventID    string    `bun:"event_id,notnull,unique:ticket_counts_event_type_date" json:"eventId"`
	TicketType string    `bun:"ticket_type,notnull,unique:ticket_counts_event_type_date" json:"ticketType"`
	Count      int       `bun:"count" json:"count"`
	Date       time.Time `bun:"date,notnull,unique:ticket_counts_event_type_date" json:"date"`
}
