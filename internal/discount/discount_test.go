package discount

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

// memStore is an in-memory Store with the same conditional-update contract as the SQL store.
type memStore struct {
	mu        sync.Mutex
	discounts map[string]*models.Discount
}

func newMemStore(ds ...models.Discount) *memStore {
	s := &memStore{discounts: map[string]*models.Discount{}}
	for i := range ds {
		d := ds[i]
		s.discounts[d.ID] = &d
	}
	return s
}

func (s *memStore) FindDiscount(_ context.Context, code, eventID string) (*models.Discount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.discounts {
		if models.NormalizeCode(d.Code) == models.NormalizeCode(code) && d.EventID == eventID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperror.ErrDiscountNotFound
}

func (s *memStore) ApplyUsage(_ context.Context, id string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.discounts[id]
	if d == nil || !d.IsActive || (d.MaxUsage > 0 && d.UsedCount >= d.MaxUsage) {
		return false, nil
	}
	d.UsedCount++
	if d.MaxUsage > 0 && d.UsedCount >= d.MaxUsage {
		d.IsActive = false
	}
	return true, nil
}

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func activeDiscount() models.Discount {
	return models.Discount{
		ID:           "d1",
		Code:         "SPRING20",
		EventID:      "evt-1",
		DiscountType: models.DiscountTypePercentage,
		Value:        20,
		StartDate:    now.Add(-24 * time.Hour),
		EndDate:      now.Add(24 * time.Hour),
		ExpiryDate:   now.Add(48 * time.Hour),
		IsActive:     true,
	}
}

func TestValidate(t *testing.T) {
	d := activeDiscount()
	assert.NoError(t, Validate(&d, now))

	inactive := activeDiscount()
	inactive.IsActive = false
	assert.ErrorIs(t, Validate(&inactive, now), apperror.ErrInvalidDiscountCode)

	notStarted := activeDiscount()
	notStarted.StartDate = now.Add(time.Hour)
	assert.ErrorIs(t, Validate(&notStarted, now), apperror.ErrDiscountNotActive)

	ended := activeDiscount()
	ended.EndDate = now.Add(-time.Hour)
	assert.ErrorIs(t, Validate(&ended, now), apperror.ErrDiscountNotActive)

	exhausted := activeDiscount()
	exhausted.MaxUsage, exhausted.UsedCount = 2, 2
	assert.ErrorIs(t, Validate(&exhausted, now), apperror.ErrDiscountUsageExceeded)
}

func TestValidateExpiredIsInvalidRegardlessOfActive(t *testing.T) {
	for _, active := range []bool{true, false} {
		d := activeDiscount()
		d.IsActive = active
		d.ExpiryDate = now.Add(-time.Minute)
		assert.ErrorIs(t, Validate(&d, now), apperror.ErrInvalidDiscountCode)
	}
}

func TestRedeemIsCaseInsensitive(t *testing.T) {
	store := newMemStore(activeDiscount())

	r, err := Redeem(context.Background(), store, "spring20", "evt-1", decimal.NewFromInt(100), now)

	require.NoError(t, err)
	assert.Equal(t, "80", r.FinalPrice.String())
	assert.Equal(t, 1, store.discounts["d1"].UsedCount)
}

func TestRedeemUnknownCode(t *testing.T) {
	store := newMemStore(activeDiscount())

	_, err := Redeem(context.Background(), store, "NOPE", "evt-1", decimal.NewFromInt(100), now)
	assert.ErrorIs(t, err, apperror.ErrInvalidDiscountCode)

	_, err = Redeem(context.Background(), store, "SPRING20", "evt-2", decimal.NewFromInt(100), now)
	assert.ErrorIs(t, err, apperror.ErrInvalidDiscountCode)

	assert.Equal(t, 0, store.discounts["d1"].UsedCount)
}

func TestQuoteDoesNotConsume(t *testing.T) {
	store := newMemStore(activeDiscount())

	r, err := Quote(context.Background(), store, "SPRING20", "evt-1", decimal.NewFromInt(50), now)

	require.NoError(t, err)
	assert.Equal(t, "40", r.FinalPrice.String())
	assert.Equal(t, 0, store.discounts["d1"].UsedCount)
}

func TestRedeemLastUseDeactivates(t *testing.T) {
	d := activeDiscount()
	d.MaxUsage, d.UsedCount = 3, 2
	store := newMemStore(d)

	r, err := Redeem(context.Background(), store, "SPRING20", "evt-1", decimal.NewFromInt(10), now)
	require.NoError(t, err)
	assert.False(t, r.Discount.IsActive)

	_, err = Redeem(context.Background(), store, "SPRING20", "evt-1", decimal.NewFromInt(10), now)
	assert.ErrorIs(t, err, apperror.ErrInvalidDiscountCode)
	assert.Equal(t, 3, store.discounts["d1"].UsedCount)
}
