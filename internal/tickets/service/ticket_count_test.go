package tickets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
	tickets "ms-booking/internal/tickets/service"
)

// MockTicketCountDB is a mock implementation of the TicketCountDBLayer interface
type MockTicketCountDB struct {
	mock.Mock
}

func (m *MockTicketCountDB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockTicketCountDB) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	args := m.Called(eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketCount), args.Error(1)
}

func TestGetTotalTicketsCount(t *testing.T) {
	mockDB := new(MockTicketCountDB)
	svc := tickets.NewTicketCountService(mockDB)

	mockDB.On("GetTotalTicketsCount").Return(42, nil)

	count, err := svc.GetTotalTicketsCount(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 42, count)
	mockDB.AssertExpectations(t)
}

func TestGetTicketCountsForEvent(t *testing.T) {
	mockDB := new(MockTicketCountDB)
	svc := tickets.NewTicketCountService(mockDB)

	expected := []models.TicketCount{
		{EventID: "event123", TicketType: "VIP", Count: 5, Date: time.Now()},
		{EventID: "event123", TicketType: "Regular", Count: 10, Date: time.Now()},
	}
	mockDB.On("GetTicketCountsForEvent", "event123").Return(expected, nil)

	counts, err := svc.GetTicketCountsForEvent(context.Background(), "event123")

	assert.NoError(t, err)
	assert.Equal(t, expected, counts)
	mockDB.AssertExpectations(t)
}

func TestGetTicketCountsForEventError(t *testing.T) {
	mockDB := new(MockTicketCountDB)
	svc := tickets.NewTicketCountService(mockDB)

	mockDB.On("GetTicketCountsForEvent", "event123").Return(nil, errors.New("database error"))

	counts, err := svc.GetTicketCountsForEvent(context.Background(), "event123")

	assert.Nil(t, counts)
	assert.Equal(t, apperror.KindInfrastructure, apperror.KindOf(err))
	mockDB.AssertExpectations(t)
}
