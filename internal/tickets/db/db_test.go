package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
	"ms-booking/internal/tickets/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()

	tables := []interface{}{
		(*models.Event)(nil),
		(*models.EventTicketType)(nil),
		(*models.User)(nil),
		(*models.RewardCredit)(nil),
		(*models.Discount)(nil),
		(*models.Ticket)(nil),
		(*models.TicketCount)(nil),
	}
	for _, model := range tables {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}, bunDB
}

func newTicket(status models.TicketStatus) *models.Ticket {
	return &models.Ticket{
		ID:         uuid.New().String(),
		EventID:    "evt-1",
		UserID:     "user-1",
		TicketType: models.TicketTypeRegular,
		Price:      50,
		FinalPrice: 40,
		Status:     status,
		CreatedAt:  time.Now(),
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()
	ticket := newTicket(models.TicketStatusBooked)
	ticket.AttachCredentials(models.CredentialRefs{QRCode: "/qrcodes/a.png", Badge: "/badges/users/a.png", BadgePDF: "/badges-pdf/users/a.pdf"})

	require.NoError(t, store.CreateTicket(ctx, ticket))

	got, err := store.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.FinalPrice, got.FinalPrice)
	assert.Equal(t, "/badges/users/a.png", got.Credentials().Badge)
	assert.True(t, got.CheckedInAt.IsZero())

	_, err = store.GetTicketByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrTicketNotFound)
}

func TestGetTicketsByUser(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateTicket(ctx, newTicket(models.TicketStatusBooked)))
	}

	tickets, err := store.GetTicketsByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, tickets, 3)

	tickets, err = store.GetTicketsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestTransitionTicketIsConditional(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()
	ticket := newTicket(models.TicketStatusBooked)
	require.NoError(t, store.CreateTicket(ctx, ticket))

	checkedIn := *ticket
	checkedIn.Status = models.TicketStatusCheckedIn
	checkedIn.CheckedInAt = time.Now()
	ok, err := store.TransitionTicket(ctx, &checkedIn, models.TicketStatusBooked)
	require.NoError(t, err)
	assert.True(t, ok)

	// A writer that still believes the ticket is Booked loses.
	cancelled := *ticket
	cancelled.Status = models.TicketStatusCancelled
	cancelled.CancelledAt = time.Now()
	ok, err = store.TransitionTicket(ctx, &cancelled, models.TicketStatusBooked)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCheckedIn, got.Status)
	assert.False(t, got.CheckedInAt.IsZero())
	assert.True(t, got.CancelledAt.IsZero())
}

func TestFindEventWithCatalog(t *testing.T) {
	store, bunDB := setupTestDB(t)
	ctx := context.Background()
	_, err := bunDB.NewInsert().Model(&models.Event{ID: "evt-1", Name: "Expo", Date: time.Now().Add(72 * time.Hour), CreatedAt: time.Now()}).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewInsert().Model(&[]models.EventTicketType{
		{EventID: "evt-1", Name: "VIP", Price: 120, Quantity: 1},
		{EventID: "evt-1", Name: "Regular", Price: 40, Quantity: 10},
	}).Exec(ctx)
	require.NoError(t, err)

	event, err := store.FindEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, event.TicketTypes, 2)
	entry, ok := event.CatalogEntry("VIP")
	require.True(t, ok)
	assert.Equal(t, 120.0, entry.Price)

	_, err = store.FindEvent(ctx, "evt-2")
	assert.ErrorIs(t, err, apperror.ErrEventNotFound)

	ok, err = store.ReserveTicketType(ctx, "evt-1", "VIP")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.ReserveTicketType(ctx, "evt-1", "VIP")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindUser(t *testing.T) {
	store, bunDB := setupTestDB(t)
	ctx := context.Background()
	_, err := bunDB.NewInsert().Model(&models.User{ID: "user-1", Name: "Ana", Email: "ana@example.com", Role: "user", CreatedAt: time.Now()}).Exec(ctx)
	require.NoError(t, err)

	user, err := store.FindUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)

	_, err = store.FindUser(ctx, "user-2")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestCreditReferralOncePerTicket(t *testing.T) {
	store, bunDB := setupTestDB(t)
	ctx := context.Background()
	_, err := bunDB.NewInsert().Model(&models.User{ID: "ref-1", Name: "Ref", Email: "ref@example.com", Role: "user", CreatedAt: time.Now()}).Exec(ctx)
	require.NoError(t, err)

	credit := func() *models.RewardCredit {
		return &models.RewardCredit{TicketID: "tkt-1", ReferrerID: "ref-1", UserID: "user-1", Points: 10, CreatedAt: time.Now()}
	}

	ok, err := store.CreditReferral(ctx, credit())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CreditReferral(ctx, credit())
	require.NoError(t, err)
	assert.False(t, ok)

	user, err := store.FindUser(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, 10, user.RewardPoints)
}

func TestCreditReferralUnknownReferrerLeavesNoLedgerRow(t *testing.T) {
	store, bunDB := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreditReferral(ctx, &models.RewardCredit{TicketID: "tkt-9", ReferrerID: "ghost", UserID: "user-1", Points: 10, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	count, err := bunDB.NewSelect().Model((*models.RewardCredit)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWithTxRollsBack(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()
	ticket := newTicket(models.TicketStatusBooked)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(ctx context.Context, tx db.Tx) error {
		require.NoError(t, tx.CreateTicket(ctx, ticket))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetTicketByID(ctx, ticket.ID)
	assert.ErrorIs(t, err, apperror.ErrTicketNotFound)
}
