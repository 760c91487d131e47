package ticket_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	tickets "ms-booking/internal/tickets/service"
	"ms-booking/internal/utils"
)

// IdempotencyHeader lets a client retry a booking without booking twice.
const IdempotencyHeader = "Idempotency-Key"

type TicketService interface {
	BookTicket(ctx context.Context, req tickets.BookRequest) (*tickets.BookResult, error)
	CheckIn(ctx context.Context, ticketID string) (*models.Ticket, error)
	CheckInByQR(ctx context.Context, encoded string) (*models.Ticket, error)
	CancelTicket(ctx context.Context, ticketID string) (*tickets.CancelResult, error)
	GetTicketDetails(ctx context.Context, ticketID string) (*tickets.TicketDetails, error)
	GetTicketsByUser(ctx context.Context, userID string) ([]tickets.TicketDetails, error)
	GetRefundPolicy() map[models.TicketType]string
}

type CountService interface {
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

type Handler struct {
	TicketService TicketService
	CountService  CountService
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketService, countService CountService, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		CountService:  countService,
		Logger:        log,
	}
}

// RegisterRoutes mounts the ticket endpoints under /tickets. Read-only
// policy and statistics stay public; everything else goes through protect.
func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/refund-policy", h.GetRefundPolicy)
		r.Get("/count", h.GetTotalTicketsCount)
		r.Get("/counts/{eventId}", h.GetEventTicketCounts)

		r.Group(func(r chi.Router) {
			if protect != nil {
				r.Use(protect)
			}
			r.Post("/book", h.BookTicket)
			r.Post("/validate/{ticketId}", h.CheckinTicket)
			r.Post("/checkin/qr", h.CheckinByQR)
			r.Post("/{ticketId}/cancel", h.CancelTicket)
			r.Get("/user/{userId}", h.ListTicketsByUser)
			r.Get("/{ticketId}", h.ViewTicket)
		})
	})
}

func (h *Handler) BookTicket(w http.ResponseWriter, r *http.Request) {
	var req tickets.BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "BookTicket", apperror.ErrValidationFailed.WithMessage("invalid request body: %v", err))
		return
	}
	if req.UserID == "" {
		req.UserID = auth.UserID(r.Context())
	}
	req.IdempotencyKey = r.Header.Get(IdempotencyHeader)

	result, err := h.TicketService.BookTicket(r.Context(), req)
	if err != nil {
		h.writeError(w, "BookTicket", err)
		return
	}

	if result.Replayed {
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket already booked", result))
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Ticket booked successfully", result))
}

// CheckinTicket checks a ticket in by id.
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.CheckIn(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, "CheckinTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket checked in successfully", ticket))
}

// CheckinByQR checks a ticket in from the encrypted payload on its badge.
// Expected body: {"encrypted_qr": "..."}
func (h *Handler) CheckinByQR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EncryptedQR string `json:"encrypted_qr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "CheckinByQR", apperror.ErrValidationFailed.WithMessage("invalid request body: %v", err))
		return
	}
	if body.EncryptedQR == "" {
		h.writeError(w, "CheckinByQR", apperror.ErrValidationFailed.WithMessage("encrypted_qr is required"))
		return
	}

	ticket, err := h.TicketService.CheckInByQR(r.Context(), body.EncryptedQR)
	if err != nil {
		h.writeError(w, "CheckinByQR", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket checked in successfully", ticket))
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	result, err := h.TicketService.CancelTicket(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, "CancelTicket", err)
		return
	}
	msg := fmt.Sprintf("Ticket cancelled. Refund: %d%%", result.RefundPercentage)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(msg, result))
}

func (h *Handler) GetRefundPolicy(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Refund policy", h.TicketService.GetRefundPolicy()))
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	details, err := h.TicketService.GetTicketDetails(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, "ViewTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket details", details))
}

func (h *Handler) ListTicketsByUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.GetTicketsByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, "ListTicketsByUser", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d tickets", len(list)), list))
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	if apperror.IsExpected(err) {
		h.Logger.Info("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	}
	utils.WriteError(w, err)
}
