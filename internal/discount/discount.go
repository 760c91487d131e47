package discount

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

// Store is the discount directory used for redemption. ApplyUsage must
// consume one use atomically and report false when no use was left.
type Store interface {
	FindDiscount(ctx context.Context, code, eventID string) (*models.Discount, error)
	ApplyUsage(ctx context.Context, discountID string, at time.Time) (bool, error)
}

// Redemption is the outcome of resolving a code against a price.
type Redemption struct {
	Discount   *models.Discount `json:"-"`
	Code       string           `json:"code"`
	Price      decimal.Decimal  `json:"price"`
	FinalPrice decimal.Decimal  `json:"finalPrice"`
}

// Validate checks that d can be redeemed at now. Inactive or expired codes
// are invalid; codes outside their start/end window are not active.
func Validate(d *models.Discount, now time.Time) error {
	if !d.IsActive || d.ExpiryDate.Before(now) {
		return apperror.ErrInvalidDiscountCode
	}
	if now.Before(d.StartDate) || now.After(d.EndDate) {
		return apperror.ErrDiscountNotActive
	}
	if d.MaxUsage > 0 && d.UsedCount >= d.MaxUsage {
		return apperror.ErrDiscountUsageExceeded
	}
	return nil
}

// Quote resolves code for price without consuming a use.
func Quote(ctx context.Context, store Store, code, eventID string, price decimal.Decimal, now time.Time) (*Redemption, error) {
	d, err := lookup(ctx, store, code, eventID)
	if err != nil {
		return nil, err
	}
	if err := Validate(d, now); err != nil {
		return nil, err
	}
	return &Redemption{
		Discount:   d,
		Code:       d.Code,
		Price:      price,
		FinalPrice: FinalPrice(d.DiscountType, d.Value, price),
	}, nil
}

// Redeem resolves code for price and consumes one use. When store is bound
// to a transaction the use is rolled back with it.
func Redeem(ctx context.Context, store Store, code, eventID string, price decimal.Decimal, now time.Time) (*Redemption, error) {
	r, err := Quote(ctx, store, code, eventID, price, now)
	if err != nil {
		return nil, err
	}

	applied, err := store.ApplyUsage(ctx, r.Discount.ID, now)
	if err != nil {
		return nil, apperror.Internal(err, "apply discount usage")
	}
	if !applied {
		return nil, apperror.ErrDiscountUsageExceeded
	}

	r.Discount.UsedCount++
	if r.Discount.MaxUsage > 0 && r.Discount.UsedCount >= r.Discount.MaxUsage {
		r.Discount.IsActive = false
	}
	return r, nil
}

func lookup(ctx context.Context, store Store, code, eventID string) (*models.Discount, error) {
	if models.NormalizeCode(code) == "" {
		return nil, apperror.ErrInvalidDiscountCode
	}
	d, err := store.FindDiscount(ctx, code, eventID)
	if errors.Is(err, apperror.ErrDiscountNotFound) {
		return nil, apperror.ErrInvalidDiscountCode
	}
	if err != nil {
		return nil, apperror.Internal(err, "find discount")
	}
	return d, nil
}
