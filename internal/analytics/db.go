package analytics

import (
	"context"

	"github.com/uptrace/bun"

	"ms-booking/internal/models"
)

// DB handles analytics database operations
type DB struct {
	Bun bun.IDB
}

func NewDB(db bun.IDB) *DB {
	return &DB{Bun: db}
}

// GetTicketsByEventIDs loads the tickets of the given events, oldest first.
func (db *DB) GetTicketsByEventIDs(ctx context.Context, eventIDs []string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := db.Bun.NewSelect().
		Model(&tickets).
		Column("id", "event_id", "ticket_type", "price", "final_price", "discount_code", "status", "created_at").
		Where("event_id IN (?)", bun.In(eventIDs)).
		Order("created_at ASC").
		Scan(ctx)
	return tickets, err
}
