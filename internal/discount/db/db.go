package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

// DB works on a *bun.DB or on a bun.Tx.
type DB struct {
	Bun bun.IDB
}

// FindDiscount looks a code up case-insensitively within an event.
func (d *DB) FindDiscount(ctx context.Context, code, eventID string) (*models.Discount, error) {
	var discount models.Discount
	err := d.Bun.NewSelect().
		Model(&discount).
		Where("code_key = ?", models.NormalizeCode(code)).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (d *DB) GetDiscountByID(ctx context.Context, id string) (*models.Discount, error) {
	var discount models.Discount
	err := d.Bun.NewSelect().
		Model(&discount).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (d *DB) ListDiscountsByEvent(ctx context.Context, eventID string) ([]models.Discount, error) {
	discounts := []models.Discount{}
	err := d.Bun.NewSelect().
		Model(&discounts).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Scan(ctx)
	return discounts, err
}

// ApplyUsage consumes one use of a discount in a single conditional update.
// The code is deactivated by the same statement once it reaches its cap.
// It returns false when the code was inactive or had no use left.
func (d *DB) ApplyUsage(ctx context.Context, discountID string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Discount)(nil)).
		Set("used_count = used_count + 1").
		Set("is_active = CASE WHEN max_usage > 0 AND used_count + 1 >= max_usage THEN ? ELSE is_active END", false).
		Set("updated_at = ?", at).
		Where("id = ?", discountID).
		Where("is_active = ?", true).
		Where("(max_usage = 0 OR used_count < max_usage)").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("apply usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CreateDiscount inserts a discount unless its code is already taken.
func (d *DB) CreateDiscount(ctx context.Context, discount *models.Discount) error {
	discount.CodeKey = models.NormalizeCode(discount.Code)

	exists, err := d.Bun.NewSelect().
		Model((*models.Discount)(nil)).
		Where("code_key = ?", discount.CodeKey).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return apperror.ErrDiscountCodeExists
	}

	if _, err := d.Bun.NewInsert().Model(discount).Exec(ctx); err != nil {
		// Lost a race against a concurrent insert of the same code.
		if taken, _ := d.Bun.NewSelect().Model((*models.Discount)(nil)).Where("code_key = ?", discount.CodeKey).Exists(ctx); taken {
			return apperror.ErrDiscountCodeExists
		}
		return err
	}
	return nil
}

// DisableDiscount deactivates a code. It returns false if no such code exists.
func (d *DB) DisableDiscount(ctx context.Context, discountID string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Discount)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", at).
		Where("id = ?", discountID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (d *DB) EventExists(ctx context.Context, eventID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("id = ?", eventID).
		Exists(ctx)
}
