package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/monitoring"
)

// DBLayer is the discount directory used by the admin operations.
type DBLayer interface {
	Store
	GetDiscountByID(ctx context.Context, id string) (*models.Discount, error)
	ListDiscountsByEvent(ctx context.Context, eventID string) ([]models.Discount, error)
	CreateDiscount(ctx context.Context, discount *models.Discount) error
	DisableDiscount(ctx context.Context, discountID string, at time.Time) (bool, error)
	EventExists(ctx context.Context, eventID string) (bool, error)
}

type ResolveRequest struct {
	Code    string  `json:"code" validate:"required"`
	EventID string  `json:"eventId" validate:"required"`
	Price   float64 `json:"price" validate:"gte=0"`
}

type ResolveResult struct {
	Code       string  `json:"code"`
	Price      float64 `json:"price"`
	FinalPrice float64 `json:"finalPrice"`
	Remaining  int     `json:"remaining"`
}

type CreateRequest struct {
	Code         string              `json:"code" validate:"required,min=3,max=64"`
	EventID      string              `json:"eventId" validate:"required"`
	DiscountType models.DiscountType `json:"discountType" validate:"required"`
	Value        float64             `json:"value" validate:"gte=0"`
	MaxUsage     int                 `json:"maxUsage" validate:"gte=0"`
	StartDate    time.Time           `json:"startDate"`
	EndDate      time.Time           `json:"endDate"`
	ExpiryDate   *time.Time          `json:"expiryDate,omitempty"`
}

type Service struct {
	DB       DBLayer
	Logger   *logger.Logger
	Now      func() time.Time
	validate *validator.Validate
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{
		DB:       db,
		Logger:   log,
		Now:      time.Now,
		validate: validator.New(),
	}
}

// Quote previews the final price for a code without consuming a use.
func (s *Service) Quote(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	r, err := s.prepare(ctx, req, Quote)
	if err != nil {
		return nil, err
	}
	return toResult(r), nil
}

// Resolve applies a code to a price and consumes one use of it.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	r, err := s.prepare(ctx, req, Redeem)
	if err != nil {
		monitoring.TrackRedemption(resultLabel(err))
		return nil, err
	}
	monitoring.TrackRedemption("success")
	s.Logger.LogDiscount("REDEEM", r.Code, fmt.Sprintf("event %s: %s -> %s", req.EventID, r.Price.StringFixed(CurrencyPlaces), r.FinalPrice.StringFixed(CurrencyPlaces)))
	return toResult(r), nil
}

type resolveFunc func(ctx context.Context, store Store, code, eventID string, price decimal.Decimal, now time.Time) (*Redemption, error)

func (s *Service) prepare(ctx context.Context, req ResolveRequest, fn resolveFunc) (*Redemption, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(err)
	}
	price, err := ParsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	r, err := fn(ctx, s.DB, req.Code, req.EventID, price, s.Now())
	if err != nil {
		s.logFailure(req.Code, err)
		return nil, err
	}
	return r, nil
}

// Create registers a new code for an event.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Discount, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := checkCreateRequest(req); err != nil {
		return nil, err
	}

	exists, err := s.DB.EventExists(ctx, req.EventID)
	if err != nil {
		return nil, apperror.Internal(err, "check event")
	}
	if !exists {
		return nil, apperror.ErrEventNotFound
	}

	now := s.Now()
	expiry := req.EndDate
	if req.ExpiryDate != nil {
		expiry = *req.ExpiryDate
	}
	d := &models.Discount{
		ID:           uuid.New().String(),
		Code:         strings.TrimSpace(req.Code),
		EventID:      req.EventID,
		DiscountType: req.DiscountType,
		Value:        req.Value,
		MaxUsage:     req.MaxUsage,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ExpiryDate:   expiry,
		IsActive:     true,
		CreatedAt:    now,
	}

	if err := s.DB.CreateDiscount(ctx, d); err != nil {
		if errors.Is(err, apperror.ErrDiscountCodeExists) {
			return nil, err
		}
		s.Logger.Error("DISCOUNT", fmt.Sprintf("Failed to create discount %s: %v", d.Code, err))
		return nil, apperror.Internal(err, "create discount")
	}
	s.Logger.LogDiscount("CREATE", d.Code, fmt.Sprintf("%s %v for event %s", d.DiscountType, d.Value, d.EventID))
	return d, nil
}

// Disable deactivates a code. Deactivation cannot be undone.
func (s *Service) Disable(ctx context.Context, discountID string) (*models.Discount, error) {
	ok, err := s.DB.DisableDiscount(ctx, discountID, s.Now())
	if err != nil {
		return nil, apperror.Internal(err, "disable discount")
	}
	if !ok {
		return nil, apperror.ErrDiscountNotFound
	}
	d, err := s.DB.GetDiscountByID(ctx, discountID)
	if err != nil {
		if errors.Is(err, apperror.ErrDiscountNotFound) {
			return nil, err
		}
		return nil, apperror.Internal(err, "load discount")
	}
	s.Logger.LogDiscount("DISABLE", d.Code, "discount disabled")
	return d, nil
}

func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]models.Discount, error) {
	discounts, err := s.DB.ListDiscountsByEvent(ctx, eventID)
	if err != nil {
		return nil, apperror.Internal(err, "list discounts")
	}
	return discounts, nil
}

func (s *Service) logFailure(code string, err error) {
	if apperror.IsExpected(err) {
		s.Logger.Debug("DISCOUNT", fmt.Sprintf("Code %q rejected: %v", code, err))
		return
	}
	s.Logger.Error("DISCOUNT", fmt.Sprintf("Code %q failed: %v", code, err))
}

func checkCreateRequest(req CreateRequest) error {
	if !req.DiscountType.Valid() {
		return apperror.ErrValidationFailed.WithMessage("discountType must be percentage or flat")
	}
	if req.DiscountType == models.DiscountTypePercentage && req.Value > 100 {
		return apperror.ErrValidationFailed.WithMessage("percentage value must be between 0 and 100")
	}
	if v := decimal.NewFromFloat(req.Value); !v.Equal(v.Round(CurrencyPlaces)) {
		return apperror.ErrValidationFailed.WithMessage("value must have at most %d decimal places", CurrencyPlaces)
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return apperror.ErrValidationFailed.WithMessage("startDate and endDate are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return apperror.ErrValidationFailed.WithMessage("endDate must not be before startDate")
	}
	if req.ExpiryDate != nil && req.ExpiryDate.IsZero() {
		return apperror.ErrValidationFailed.WithMessage("expiryDate must be a valid date")
	}
	return nil
}

func toResult(r *Redemption) *ResolveResult {
	return &ResolveResult{
		Code:       r.Code,
		Price:      r.Price.InexactFloat64(),
		FinalPrice: r.FinalPrice.InexactFloat64(),
		Remaining:  r.Discount.Remaining(),
	}
}

func resultLabel(err error) string {
	if appErr, ok := apperror.As(err); ok {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
