package analytics

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

const dateLayout = "2006-01-02"

// MaxBatchEvents caps one batch analytics request.
const MaxBatchEvents = 50

type DBLayer interface {
	GetTicketsByEventIDs(ctx context.Context, eventIDs []string) ([]models.Ticket, error)
}

// Service handles analytics operations
type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

// EventAnalytics represents aggregated sales of an event. Cancelled tickets
// count in StatusCounts only.
type EventAnalytics struct {
	EventID          string                      `json:"event_id"`
	TotalRevenue     float64                     `json:"total_revenue"`
	TotalBeforeDisc  float64                     `json:"total_before_discounts"`
	TotalTicketsSold int                         `json:"total_tickets_sold"`
	StatusCounts     map[models.TicketStatus]int `json:"status_counts"`
	DailySales       []DailySalesMetrics         `json:"daily_sales"`
	SalesByType      []TypeSalesMetrics          `json:"sales_by_ticket_type"`
}

// TypeSalesMetrics contains sales metrics for a ticket type
type TypeSalesMetrics struct {
	TicketType  models.TicketType `json:"ticket_type"`
	TicketsSold int               `json:"tickets_sold"`
	Revenue     float64           `json:"revenue"`
}

// DailySalesMetrics contains metrics for a single day
type DailySalesMetrics struct {
	Date        string  `json:"date"`
	Revenue     float64 `json:"revenue"`
	TicketsSold int     `json:"tickets_sold"`
}

// EventDiscountAnalytics represents discount usage data for an event
type EventDiscountAnalytics struct {
	EventID       string          `json:"event_id"`
	DiscountUsage []DiscountUsage `json:"discount_usage"`
}

// DiscountUsage tracks discount code usage by day
type DiscountUsage struct {
	Date          string  `json:"date"`
	DiscountCode  string  `json:"discount_code"`
	UsageCount    int     `json:"usage_count"`
	TotalDiscount float64 `json:"total_discount_amount"`
}

type BatchRequest struct {
	EventIDs []string `json:"event_ids"`
}

// GetEventAnalytics returns revenue analytics for a specific event
func (s *Service) GetEventAnalytics(ctx context.Context, eventID string) (*EventAnalytics, error) {
	batch, err := s.GetBatchEventAnalytics(ctx, BatchRequest{EventIDs: []string{eventID}})
	if err != nil {
		return nil, err
	}
	return batch[eventID], nil
}

// GetBatchEventAnalytics aggregates several events with one query.
func (s *Service) GetBatchEventAnalytics(ctx context.Context, req BatchRequest) (map[string]*EventAnalytics, error) {
	if len(req.EventIDs) == 0 {
		return nil, apperror.ErrValidationFailed.WithMessage("event_ids must not be empty")
	}
	if len(req.EventIDs) > MaxBatchEvents {
		return nil, apperror.ErrValidationFailed.WithMessage("at most %d events per request", MaxBatchEvents)
	}

	tickets, err := s.DB.GetTicketsByEventIDs(ctx, req.EventIDs)
	if err != nil {
		return nil, apperror.Internal(err, "load tickets for analytics")
	}

	byEvent := make(map[string][]models.Ticket, len(req.EventIDs))
	for _, t := range tickets {
		byEvent[t.EventID] = append(byEvent[t.EventID], t)
	}

	result := make(map[string]*EventAnalytics, len(req.EventIDs))
	for _, id := range req.EventIDs {
		result[id] = aggregate(id, byEvent[id])
	}
	return result, nil
}

func aggregate(eventID string, tickets []models.Ticket) *EventAnalytics {
	a := &EventAnalytics{
		EventID:      eventID,
		StatusCounts: map[models.TicketStatus]int{},
		DailySales:   []DailySalesMetrics{},
		SalesByType:  []TypeSalesMetrics{},
	}

	revenue, listed := decimal.Zero, decimal.Zero
	daily := map[string]*dailyTotals{}
	byType := map[models.TicketType]*dailyTotals{}

	for _, t := range tickets {
		a.StatusCounts[t.Status]++
		if t.Status == models.TicketStatusCancelled || t.Status == models.TicketStatusRefunded {
			continue
		}
		final := decimal.NewFromFloat(t.FinalPrice)
		revenue = revenue.Add(final)
		listed = listed.Add(decimal.NewFromFloat(t.Price))
		a.TotalTicketsSold++

		day := t.CreatedAt.UTC().Format(dateLayout)
		totals(daily, day).add(final)
		totals(byType, t.TicketType).add(final)
	}

	a.TotalRevenue = revenue.Round(2).InexactFloat64()
	a.TotalBeforeDisc = listed.Round(2).InexactFloat64()

	for day, d := range daily {
		a.DailySales = append(a.DailySales, DailySalesMetrics{Date: day, Revenue: d.revenue.Round(2).InexactFloat64(), TicketsSold: d.count})
	}
	sort.Slice(a.DailySales, func(i, j int) bool { return a.DailySales[i].Date < a.DailySales[j].Date })

	for _, tt := range models.TicketTypes {
		if d, ok := byType[tt]; ok {
			a.SalesByType = append(a.SalesByType, TypeSalesMetrics{TicketType: tt, TicketsSold: d.count, Revenue: d.revenue.Round(2).InexactFloat64()})
		}
	}
	return a
}

// GetEventDiscountAnalytics reports per day how often each code was redeemed
// and how much it took off the listed prices.
func (s *Service) GetEventDiscountAnalytics(ctx context.Context, eventID string) (*EventDiscountAnalytics, error) {
	tickets, err := s.DB.GetTicketsByEventIDs(ctx, []string{eventID})
	if err != nil {
		return nil, apperror.Internal(err, "load tickets for discount analytics")
	}

	type key struct{ date, code string }
	usage := map[key]*dailyTotals{}
	for _, t := range tickets {
		if t.DiscountCode == "" {
			continue
		}
		saved := decimal.NewFromFloat(t.Price).Sub(decimal.NewFromFloat(t.FinalPrice))
		totals(usage, key{t.CreatedAt.UTC().Format(dateLayout), t.DiscountCode}).add(saved)
	}

	out := &EventDiscountAnalytics{EventID: eventID, DiscountUsage: []DiscountUsage{}}
	for k, d := range usage {
		out.DiscountUsage = append(out.DiscountUsage, DiscountUsage{
			Date:          k.date,
			DiscountCode:  k.code,
			UsageCount:    d.count,
			TotalDiscount: d.revenue.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(out.DiscountUsage, func(i, j int) bool {
		if out.DiscountUsage[i].Date != out.DiscountUsage[j].Date {
			return out.DiscountUsage[i].Date < out.DiscountUsage[j].Date
		}
		return out.DiscountUsage[i].DiscountCode < out.DiscountUsage[j].DiscountCode
	})
	return out, nil
}

type dailyTotals struct {
	count   int
	revenue decimal.Decimal
}

func (d *dailyTotals) add(amount decimal.Decimal) {
	d.count++
	d.revenue = d.revenue.Add(amount)
}

func totals[K comparable](m map[K]*dailyTotals, k K) *dailyTotals {
	d, ok := m[k]
	if !ok {
		d = &dailyTotals{}
		m[k] = d
	}
	return d
}
