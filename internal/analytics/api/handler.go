package analytics_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/analytics"
	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

type AnalyticsService interface {
	GetEventAnalytics(ctx context.Context, eventID string) (*analytics.EventAnalytics, error)
	GetBatchEventAnalytics(ctx context.Context, req analytics.BatchRequest) (map[string]*analytics.EventAnalytics, error)
	GetEventDiscountAnalytics(ctx context.Context, eventID string) (*analytics.EventDiscountAnalytics, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service AnalyticsService
	Logger  *logger.Logger
}

func NewHandler(service AnalyticsService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/events/{eventId}", h.GetEventAnalytics)
		r.Get("/events/{eventId}/discounts", h.GetEventDiscountAnalytics)
		r.Post("/events/batch", h.GetBatchEventAnalytics)
	})
}

func (h *Handler) GetEventAnalytics(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	h.Logger.Debug("ANALYTICS", fmt.Sprintf("Event analytics requested for %s", eventID))

	result, err := h.Service.GetEventAnalytics(r.Context(), eventID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event analytics", result))
}

func (h *Handler) GetEventDiscountAnalytics(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.GetEventDiscountAnalytics(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Discount analytics", result))
}

func (h *Handler) GetBatchEventAnalytics(w http.ResponseWriter, r *http.Request) {
	var req analytics.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperror.ErrValidationFailed.WithMessage("invalid request body: %v", err))
		return
	}

	result, err := h.Service.GetBatchEventAnalytics(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Analytics for %d events", len(result)), result))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if !apperror.IsExpected(err) {
		h.Logger.Error("ANALYTICS", err.Error())
	}
	utils.WriteError(w, err)
}
