package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/apperror"
	discountdb "ms-booking/internal/discount/db"
	"ms-booking/internal/models"
)

// DB works on a *bun.DB or on a bun.Tx.
type DB struct {
	Bun bun.IDB
}

// Tx is the part of the store used inside a booking transaction.
type Tx interface {
	FindDiscount(ctx context.Context, code, eventID string) (*models.Discount, error)
	ApplyUsage(ctx context.Context, discountID string, at time.Time) (bool, error)
	ReserveTicketType(ctx context.Context, eventID, ticketType string) (bool, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
}

// WithTx runs fn in a database transaction. Any error returned by fn rolls
// back everything fn wrote through tx.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

func (d *DB) discounts() *discountdb.DB {
	return &discountdb.DB{Bun: d.Bun}
}

func (d *DB) FindDiscount(ctx context.Context, code, eventID string) (*models.Discount, error) {
	return d.discounts().FindDiscount(ctx, code, eventID)
}

func (d *DB) ApplyUsage(ctx context.Context, discountID string, at time.Time) (bool, error) {
	return d.discounts().ApplyUsage(ctx, discountID, at)
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return tickets, err
}

func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(ticket).Exec(ctx)
	return err
}

// TransitionTicket writes the status and timestamps of ticket, but only if
// the stored status is still from. It returns false when another writer
// changed the status first.
func (d *DB) TransitionTicket(ctx context.Context, ticket *models.Ticket, from models.TicketStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(ticket).
		Column("status", "refund_percentage", "checked_in_at", "cancelled_at", "updated_at").
		Where("id = ?", ticket.ID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("transition ticket %s: %w", ticket.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FindEvent loads an event together with its ticket catalog.
func (d *DB) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("TicketTypes").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ReserveTicketType takes one ticket out of an event's catalog entry.
// It returns false when the entry has nothing left.
func (d *DB) ReserveTicketType(ctx context.Context, eventID, ticketType string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.EventTicketType)(nil)).
		Set("quantity = quantity - 1").
		Where("event_id = ?", eventID).
		Where("name = ?", ticketType).
		Where("quantity > 0").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("reserve %s for event %s: %w", ticketType, eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CreditReferral records a referral bonus and adds it to the referrer's
// balance. A bonus already recorded for the same ticket is not paid again;
// in that case it returns false.
func (d *DB) CreditReferral(ctx context.Context, credit *models.RewardCredit) (bool, error) {
	credited := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(credit).
			On("CONFLICT (ticket_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}

		res, err = tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("reward_points = reward_points + ?", credit.Points).
			Where("id = ?", credit.ReferrerID).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.ErrUserNotFound.WithMessage("referrer %s not found", credit.ReferrerID)
		}
		credited = true
		return nil
	})
	return credited, err
}
