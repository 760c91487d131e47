package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

func TestTransitionsFromBooked(t *testing.T) {
	assert.NoError(t, Transition(models.TicketStatusBooked, models.TicketStatusCheckedIn))
	assert.NoError(t, Transition(models.TicketStatusBooked, models.TicketStatusCancelled))
	assert.ErrorIs(t, Transition(models.TicketStatusBooked, models.TicketStatusRefunded), apperror.ErrInvalidTransition)
}

func TestCheckInRejections(t *testing.T) {
	assert.ErrorIs(t, Transition(models.TicketStatusCheckedIn, models.TicketStatusCheckedIn), apperror.ErrAlreadyCheckedIn)
	assert.ErrorIs(t, Transition(models.TicketStatusCancelled, models.TicketStatusCheckedIn), apperror.ErrTicketCancelled)
	assert.ErrorIs(t, Transition(models.TicketStatusRefunded, models.TicketStatusCheckedIn), apperror.ErrTicketCancelled)
}

func TestCancelRejections(t *testing.T) {
	assert.ErrorIs(t, Transition(models.TicketStatusCancelled, models.TicketStatusCancelled), apperror.ErrAlreadyCancelled)
	assert.ErrorIs(t, Transition(models.TicketStatusRefunded, models.TicketStatusCancelled), apperror.ErrAlreadyCancelled)
	assert.ErrorIs(t, Transition(models.TicketStatusCheckedIn, models.TicketStatusCancelled), apperror.ErrAlreadyCheckedIn)
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, Terminal(models.TicketStatusBooked))
	assert.True(t, Terminal(models.TicketStatusCheckedIn))
	assert.True(t, Terminal(models.TicketStatusCancelled))
	assert.True(t, Terminal(models.TicketStatusRefunded))
}

func TestRefundPercentageScenarios(t *testing.T) {
	cases := []struct {
		ticketType models.TicketType
		days       int
		want       int
	}{
		{models.TicketTypeEarlyBird, 10, 50},
		{models.TicketTypeEarlyBird, 7, 50},
		{models.TicketTypeEarlyBird, 5, 0},
		{models.TicketTypeRegular, 3, 75},
		{models.TicketTypeRegular, 2, 0},
		{models.TicketTypeVIP, 30, 0},
		{models.TicketTypeRegular, -1, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, RefundPercentage(tc.ticketType, tc.days), "%s with %d days", tc.ticketType, tc.days)
	}
}

func TestDaysBeforeEventRoundsUp(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysBeforeEvent(now.Add(2*24*time.Hour+time.Minute), now))
	assert.Equal(t, 2, DaysBeforeEvent(now.Add(48*time.Hour), now))
	assert.Equal(t, 1, DaysBeforeEvent(now.Add(time.Hour), now))
	assert.Equal(t, 0, DaysBeforeEvent(now, now))
	assert.Equal(t, -1, DaysBeforeEvent(now.Add(-25*time.Hour), now))
}

func TestRefundPolicyCoversAllTypes(t *testing.T) {
	policy := RefundPolicy()
	for _, tt := range models.TicketTypes {
		assert.NotEmpty(t, policy[tt])
	}
}
