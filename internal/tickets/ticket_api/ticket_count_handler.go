package ticket_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/models"
	"ms-booking/internal/utils"
)

// TicketCountResponse is the response format for the GetTotalTicketsCount endpoint
type TicketCountResponse struct {
	TotalCount int `json:"total_count"`
}

type EventTicketCountsResponse struct {
	EventID string               `json:"event_id"`
	Counts  []models.TicketCount `json:"counts"`
}

// GetTotalTicketsCount handles the request to get the total ticket count
func (h *Handler) GetTotalTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.CountService.GetTotalTicketsCount(r.Context())
	if err != nil {
		h.writeError(w, "GetTotalTicketsCount", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Total tickets", TicketCountResponse{TotalCount: count}))
}

// GetEventTicketCounts returns the daily booking counts of an event
func (h *Handler) GetEventTicketCounts(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	counts, err := h.CountService.GetTicketCountsForEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "GetEventTicketCounts", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket counts", EventTicketCountsResponse{EventID: eventID, Counts: counts}))
}
