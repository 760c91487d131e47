package models

import "time"

const (
	TicketEventBooked    = "ticket.booked"
	TicketEventCheckedIn = "ticket.checked_in"
	TicketEventCancelled = "ticket.cancelled"
)

// TicketEvent is the payload published to Kafka on every ticket state change.
type TicketEvent struct {
	Type             string       `json:"type"`
	TicketID         string       `json:"ticket_id"`
	EventID          string       `json:"event_id"`
	UserID           string       `json:"user_id"`
	TicketType       TicketType   `json:"ticket_type"`
	Status           TicketStatus `json:"status"`
	FinalPrice       float64      `json:"final_price"`
	DiscountCode     string       `json:"discount_code,omitempty"`
	RefundPercentage int          `json:"refund_percentage,omitempty"`
	OccurredAt       time.Time    `json:"occurred_at"`
}

func NewTicketEvent(eventType string, ticket Ticket, at time.Time) TicketEvent {
	return TicketEvent{
		Type:             eventType,
		TicketID:         ticket.ID,
		EventID:          ticket.EventID,
		UserID:           ticket.UserID,
		TicketType:       ticket.TicketType,
		Status:           ticket.Status,
		FinalPrice:       ticket.FinalPrice,
		DiscountCode:     ticket.DiscountCode,
		RefundPercentage: ticket.RefundPercentage,
		OccurredAt:       at,
	}
}
