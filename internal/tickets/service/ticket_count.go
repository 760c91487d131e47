package tickets

import (
	"context"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

// TicketCountDBLayer represents the interface for ticket count database operations
type TicketCountDBLayer interface {
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

// TicketCountService serves the booking statistics
type TicketCountService struct {
	DB TicketCountDBLayer
}

func NewTicketCountService(db TicketCountDBLayer) *TicketCountService {
	return &TicketCountService{DB: db}
}

// GetTotalTicketsCount returns the total count of tickets
func (s *TicketCountService) GetTotalTicketsCount(ctx context.Context) (int, error) {
	count, err := s.DB.GetTotalTicketsCount(ctx)
	if err != nil {
		return 0, apperror.Internal(err, "count tickets")
	}
	return count, nil
}

// GetTicketCountsForEvent returns the daily counts of an event per ticket type
func (s *TicketCountService) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	counts, err := s.DB.GetTicketCountsForEvent(ctx, eventID)
	if err != nil {
		return nil, apperror.Internal(err, "load ticket counts")
	}
	return counts, nil
}
