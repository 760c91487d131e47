package db_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/apperror"
	"ms-booking/internal/discount/db"
	"ms-booking/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()

	for _, model := range []interface{}{(*models.Event)(nil), (*models.Discount)(nil)} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}, bunDB
}

func seedDiscount(t *testing.T, store *db.DB, maxUsage, used int) *models.Discount {
	now := time.Now()
	d := &models.Discount{
		ID:           "disc-1",
		Code:         "Summer10",
		EventID:      "evt-1",
		DiscountType: models.DiscountTypeFlat,
		Value:        10,
		MaxUsage:     maxUsage,
		UsedCount:    used,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
		ExpiryDate:   now.Add(time.Hour),
		IsActive:     true,
		CreatedAt:    now,
	}
	require.NoError(t, store.CreateDiscount(context.Background(), d))
	return d
}

func TestCreateAndFindDiscountCaseInsensitive(t *testing.T) {
	store, _ := setupTestDB(t)
	seedDiscount(t, store, 0, 0)

	found, err := store.FindDiscount(context.Background(), "  SUMMER10 ", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "disc-1", found.ID)
	assert.Equal(t, "Summer10", found.Code)

	_, err = store.FindDiscount(context.Background(), "summer10", "evt-2")
	assert.ErrorIs(t, err, apperror.ErrDiscountNotFound)
}

func TestCreateDiscountDuplicateCode(t *testing.T) {
	store, _ := setupTestDB(t)
	seedDiscount(t, store, 0, 0)

	dup := &models.Discount{
		ID:           "disc-2",
		Code:         "SUMMER10",
		EventID:      "evt-9",
		DiscountType: models.DiscountTypePercentage,
		Value:        5,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	err := store.CreateDiscount(context.Background(), dup)
	assert.ErrorIs(t, err, apperror.ErrDiscountCodeExists)
}

func TestApplyUsageDeactivatesAtCap(t *testing.T) {
	store, _ := setupTestDB(t)
	seedDiscount(t, store, 2, 0)
	ctx := context.Background()

	ok, err := store.ApplyUsage(ctx, "disc-1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ApplyUsage(ctx, "disc-1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ApplyUsage(ctx, "disc-1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	d, err := store.GetDiscountByID(ctx, "disc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, d.UsedCount)
	assert.False(t, d.IsActive)
}

func TestApplyUsageUnlimited(t *testing.T) {
	store, _ := setupTestDB(t)
	seedDiscount(t, store, 0, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := store.ApplyUsage(ctx, "disc-1", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
	}

	d, err := store.GetDiscountByID(ctx, "disc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, d.UsedCount)
	assert.True(t, d.IsActive)
}

func TestApplyUsageConcurrentLastUse(t *testing.T) {
	store, _ := setupTestDB(t)
	seedDiscount(t, store, 3, 2)

	var wg sync.WaitGroup
	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ApplyUsage(context.Background(), "disc-1", time.Now())
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	assert.Equal(t, 1, successes)

	d, err := store.GetDiscountByID(context.Background(), "disc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, d.UsedCount)
	assert.False(t, d.IsActive)
}

func TestApplyUsageRolledBackWithTransaction(t *testing.T) {
	_, bunDB := setupTestDB(t)
	store := &db.DB{Bun: bunDB}
	seedDiscount(t, store, 1, 0)
	ctx := context.Background()

	err := bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ok, err := (&db.DB{Bun: tx}).ApplyUsage(ctx, "disc-1", time.Now())
		require.NoError(t, err)
		require.True(t, ok)
		return apperror.ErrCredentialFailed
	})
	assert.ErrorIs(t, err, apperror.ErrCredentialFailed)

	d, err := store.GetDiscountByID(ctx, "disc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, d.UsedCount)
	assert.True(t, d.IsActive)
}

func TestDisableAndList(t *testing.T) {
	store, _ := setupTestDB(t)
	seedDiscount(t, store, 0, 0)
	ctx := context.Background()

	ok, err := store.DisableDiscount(ctx, "disc-1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DisableDiscount(ctx, "missing", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := store.ListDiscountsByEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
}
