package db

import (
	"context"
	"time"

	"ms-booking/internal/models"
)

// GetTotalTicketsCount returns the total count of tickets in the database
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
}

// IncrementTicketCount adds one to the daily count of an event and ticket
// type. The row is created on the first booking of the day; concurrent first
// bookings meet in the upsert instead of racing on the unique key.
func (d *DB) IncrementTicketCount(ctx context.Context, eventID, ticketType string, timestamp time.Time) error {
	ts := timestamp.UTC()
	row := models.TicketCount{
		EventID:    eventID,
		TicketType: ticketType,
		Count:      1,
		Date:       time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
	}

	_, err := d.Bun.NewInsert().
		Model(&row).
		On("CONFLICT (event_id, ticket_type, date) DO UPDATE").
		Set("count = ?TableAlias.count + 1").
		Exec(ctx)
	return err
}

// GetTicketCountsForEvent returns all ticket counts for a specific event
func (d *DB) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	counts := []models.TicketCount{}
	err := d.Bun.NewSelect().
		Model(&counts).
		Where("event_id = ?", eventID).
		Order("date", "ticket_type").
		Scan(ctx)

	return counts, err
}
