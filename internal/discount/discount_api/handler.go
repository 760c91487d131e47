package discount_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/apperror"
	"ms-booking/internal/discount"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

type DiscountService interface {
	Quote(ctx context.Context, req discount.ResolveRequest) (*discount.ResolveResult, error)
	Resolve(ctx context.Context, req discount.ResolveRequest) (*discount.ResolveResult, error)
	Create(ctx context.Context, req discount.CreateRequest) (*models.Discount, error)
	Disable(ctx context.Context, discountID string) (*models.Discount, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Discount, error)
}

type Handler struct {
	DiscountService DiscountService
	Logger          *logger.Logger
}

func NewHandler(service DiscountService, log *logger.Logger) *Handler {
	return &Handler{DiscountService: service, Logger: log}
}

// RegisterRoutes mounts the discount endpoints under /discounts.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/discounts", func(r chi.Router) {
		r.Post("/", h.CreateDiscount)
		r.Post("/resolve", h.ResolveDiscount)
		r.Post("/quote", h.QuoteDiscount)
		r.Get("/event/{eventId}", h.ListEventDiscounts)
		r.Post("/{discountId}/disable", h.DisableDiscount)
	})
}

func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req discount.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "CreateDiscount", apperror.ErrValidationFailed.WithMessage("invalid request body: %v", err))
		return
	}

	d, err := h.DiscountService.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateDiscount", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Discount code added successfully", d))
}

func (h *Handler) ResolveDiscount(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, "ResolveDiscount", h.DiscountService.Resolve)
}

func (h *Handler) QuoteDiscount(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, "QuoteDiscount", h.DiscountService.Quote)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, discount.ResolveRequest) (*discount.ResolveResult, error)) {
	var req discount.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, op, apperror.ErrValidationFailed.WithMessage("invalid request body: %v", err))
		return
	}

	result, err := fn(r.Context(), req)
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Discount applied", result))
}

func (h *Handler) ListEventDiscounts(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	discounts, err := h.DiscountService.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "ListEventDiscounts", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d discounts", len(discounts)), discounts))
}

func (h *Handler) DisableDiscount(w http.ResponseWriter, r *http.Request) {
	discountID := chi.URLParam(r, "discountId")

	d, err := h.DiscountService.Disable(r.Context(), discountID)
	if err != nil {
		h.writeError(w, "DisableDiscount", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Discount disabled", d))
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	if apperror.IsExpected(err) {
		h.Logger.Info("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	}
	utils.WriteError(w, err)
}
