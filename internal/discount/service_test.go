package discount_test

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/apperror"
	"ms-booking/internal/discount"
	"ms-booking/internal/discount/db"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func setupService(t *testing.T) *discount.Service {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{(*models.Event)(nil), (*models.Discount)(nil)} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	_, err = bunDB.NewInsert().Model(&models.Event{ID: "evt-1", Name: "Launch", Date: fixedNow.Add(30 * 24 * time.Hour), CreatedAt: fixedNow}).Exec(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	svc := discount.NewService(&db.DB{Bun: bunDB}, logger.NewWriterLogger(io.Discard))
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

func createRequest(code string, maxUsage int) discount.CreateRequest {
	return discount.CreateRequest{
		Code:         code,
		EventID:      "evt-1",
		DiscountType: models.DiscountTypePercentage,
		Value:        25,
		MaxUsage:     maxUsage,
		StartDate:    fixedNow.Add(-time.Hour),
		EndDate:      fixedNow.Add(7 * 24 * time.Hour),
	}
}

func TestCreateDiscount(t *testing.T) {
	svc := setupService(t)

	d, err := svc.Create(context.Background(), createRequest("EARLY25", 0))

	require.NoError(t, err)
	assert.True(t, d.IsActive)
	assert.Equal(t, d.EndDate, d.ExpiryDate)

	_, err = svc.Create(context.Background(), createRequest("early25", 0))
	assert.ErrorIs(t, err, apperror.ErrDiscountCodeExists)
}

func TestCreateDiscountValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	tooMuch := createRequest("HUGE", 0)
	tooMuch.Value = 120
	_, err := svc.Create(ctx, tooMuch)
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	fine := createRequest("FINE", 0)
	fine.DiscountType = models.DiscountTypeFlat
	fine.Value = 2.505
	_, err = svc.Create(ctx, fine)
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	cents := createRequest("CENTS", 0)
	cents.DiscountType = models.DiscountTypeFlat
	cents.Value = 2.55
	d, err := svc.Create(ctx, cents)
	require.NoError(t, err)
	assert.Equal(t, 2.55, d.Value)

	badType := createRequest("ODD1", 0)
	badType.DiscountType = "bogo"
	_, err = svc.Create(ctx, badType)
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	reversed := createRequest("BACK", 0)
	reversed.EndDate = reversed.StartDate.Add(-time.Hour)
	_, err = svc.Create(ctx, reversed)
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	noEvent := createRequest("GHOST", 0)
	noEvent.EventID = "evt-404"
	_, err = svc.Create(ctx, noEvent)
	assert.ErrorIs(t, err, apperror.ErrEventNotFound)
}

func TestResolveConsumesAndQuoteDoesNot(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, createRequest("TWICE", 2))
	require.NoError(t, err)

	req := discount.ResolveRequest{Code: "twice", EventID: "evt-1", Price: 80}

	q, err := svc.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 60.0, q.FinalPrice)
	assert.Equal(t, 2, q.Remaining)

	r, err := svc.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 60.0, r.FinalPrice)
	assert.Equal(t, 1, r.Remaining)

	r, err = svc.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining)

	_, err = svc.Resolve(ctx, req)
	assert.ErrorIs(t, err, apperror.ErrInvalidDiscountCode)
}

func TestResolveNotYetActive(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	req := createRequest("LATER", 0)
	req.StartDate = fixedNow.Add(24 * time.Hour)
	req.EndDate = fixedNow.Add(48 * time.Hour)
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, discount.ResolveRequest{Code: "LATER", EventID: "evt-1", Price: 10})
	assert.ErrorIs(t, err, apperror.ErrDiscountNotActive)
}

func TestResolveRejectsBadInput(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Resolve(context.Background(), discount.ResolveRequest{EventID: "evt-1", Price: 10})
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	_, err = svc.Resolve(context.Background(), discount.ResolveRequest{Code: "X", EventID: "evt-1", Price: 10.001})
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestDisableIsPermanent(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, createRequest("STOPME", 0))
	require.NoError(t, err)

	disabled, err := svc.Disable(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, disabled.IsActive)

	_, err = svc.Resolve(ctx, discount.ResolveRequest{Code: "STOPME", EventID: "evt-1", Price: 10})
	assert.ErrorIs(t, err, apperror.ErrInvalidDiscountCode)

	_, err = svc.Disable(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrDiscountNotFound)

	list, err := svc.ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
