// Package lifecycle holds the ticket status state machine and the refund policy.
// Everything here is pure: callers pass the current time in.
package lifecycle

import (
	"math"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

var transitions = map[models.TicketStatus][]models.TicketStatus{
	models.TicketStatusBooked: {models.TicketStatusCheckedIn, models.TicketStatusCancelled},
}

// Transition reports whether a ticket may move from one status to another.
// The error names the reason a forbidden move was rejected.
func Transition(from, to models.TicketStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}

	switch to {
	case models.TicketStatusCheckedIn:
		if from == models.TicketStatusCheckedIn {
			return apperror.ErrAlreadyCheckedIn
		}
		if from == models.TicketStatusCancelled || from == models.TicketStatusRefunded {
			return apperror.ErrTicketCancelled
		}
	case models.TicketStatusCancelled:
		if from == models.TicketStatusCancelled || from == models.TicketStatusRefunded {
			return apperror.ErrAlreadyCancelled
		}
		if from == models.TicketStatusCheckedIn {
			return apperror.ErrAlreadyCheckedIn
		}
	}
	return apperror.ErrInvalidTransition.WithMessage("cannot move ticket from %q to %q", from, to)
}

// Terminal reports whether no transition leaves status.
func Terminal(status models.TicketStatus) bool {
	return len(transitions[status]) == 0
}

// DaysBeforeEvent is the number of started days between now and the event.
// Past events yield zero or a negative number.
func DaysBeforeEvent(eventDate, now time.Time) int {
	return int(math.Ceil(eventDate.Sub(now).Hours() / 24))
}

// RefundPercentage is the share of the price refunded when a ticket of the
// given type is cancelled daysBeforeEvent days ahead of the event.
func RefundPercentage(ticketType models.TicketType, daysBeforeEvent int) int {
	switch ticketType {
	case models.TicketTypeEarlyBird:
		if daysBeforeEvent >= 7 {
			return 50
		}
	case models.TicketTypeRegular:
		if daysBeforeEvent >= 3 {
			return 75
		}
	}
	return 0
}

// RefundPolicy describes the refund rule of every ticket type.
func RefundPolicy() map[models.TicketType]string {
	return map[models.TicketType]string{
		models.TicketTypeEarlyBird: "50% refund if canceled 7 days before the event.",
		models.TicketTypeRegular:   "75% refund if canceled 3 days before the event.",
		models.TicketTypeVIP:       "No refund after booking.",
	}
}
