package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-booking/internal/apperror"
	"ms-booking/internal/discount"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/monitoring"
	"ms-booking/internal/tickets/credential"
	"ms-booking/internal/tickets/db"
	"ms-booking/internal/tickets/lifecycle"
	tredis "ms-booking/internal/tickets/redis"
)

const maxTransitionAttempts = 3

type DBLayer interface {
	discount.Store
	FindEvent(ctx context.Context, id string) (*models.Event, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	TransitionTicket(ctx context.Context, ticket *models.Ticket, from models.TicketStatus) (bool, error)
	CreditReferral(ctx context.Context, credit *models.RewardCredit) (bool, error)
	IncrementTicketCount(ctx context.Context, eventID, ticketType string, timestamp time.Time) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error
}

// CredentialGenerator produces the entry artifacts of a ticket.
type CredentialGenerator interface {
	Generate(ctx context.Context, user *models.User, event *models.Event, ticket *models.Ticket) (models.CredentialRefs, error)
	Discard(refs models.CredentialRefs)
	URL(ref string) string
}

type QRDecoder interface {
	DecodeQR(encoded string) (*credential.QRPayload, error)
}

type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, event models.TicketEvent) error
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, scope, key string) (*tredis.Reservation, error)
	Complete(ctx context.Context, res *tredis.Reservation, ticketID string) error
	Release(ctx context.Context, res *tredis.Reservation) error
}

type Options struct {
	// EnforceCatalog requires the ticket type to be in the event's catalog
	// and takes one ticket off its remaining quantity.
	EnforceCatalog      bool
	ReferralPoints      int
	CredentialTimeout   time.Duration
	CollaboratorTimeout time.Duration
}

type TicketService struct {
	DB          DBLayer
	Credentials CredentialGenerator
	Publisher   EventPublisher
	Idempotency IdempotencyStore
	QR          QRDecoder
	Logger      *logger.Logger
	Options     Options
	Now         func() time.Time
	validate    *validator.Validate
}

func NewTicketService(db DBLayer, credentials CredentialGenerator, publisher EventPublisher, log *logger.Logger, opts Options) *TicketService {
	if opts.ReferralPoints == 0 {
		opts.ReferralPoints = 10
	}
	if opts.CredentialTimeout == 0 {
		opts.CredentialTimeout = 10 * time.Second
	}
	if opts.CollaboratorTimeout == 0 {
		opts.CollaboratorTimeout = 5 * time.Second
	}
	return &TicketService{
		DB:          db,
		Credentials: credentials,
		Publisher:   publisher,
		Logger:      log,
		Options:     opts,
		Now:         time.Now,
		validate:    validator.New(),
	}
}

type BookRequest struct {
	EventID        string            `json:"eventId" validate:"required"`
	UserID         string            `json:"userId" validate:"required"`
	TicketType     models.TicketType `json:"ticketType" validate:"required"`
	Price          *float64          `json:"price" validate:"required"`
	DiscountCode   string            `json:"discountCode,omitempty"`
	IdempotencyKey string            `json:"-"`
}

type BookResult struct {
	Ticket      *models.Ticket        `json:"ticket"`
	Credentials models.CredentialRefs `json:"credentials"`
	Replayed    bool                  `json:"replayed,omitempty"`
}

type CancelResult struct {
	Ticket           *models.Ticket `json:"ticket"`
	RefundPercentage int            `json:"refundPercentage"`
}

type TicketDetails struct {
	*models.Ticket
	Credentials models.CredentialRefs `json:"credentials"`
}

// BookTicket issues a ticket. Discount redemption, catalog reservation and
// the ticket insert commit or roll back together; the credential files
// rendered for a booking that does not commit are discarded.
func (s *TicketService) BookTicket(ctx context.Context, req BookRequest) (result *BookResult, err error) {
	defer func() {
		if err != nil {
			if appErr, ok := apperror.As(err); ok {
				monitoring.TrackBookingFailure(appErr.Code)
			} else {
				monitoring.TrackBookingFailure(apperror.CodeInternal)
			}
		}
	}()

	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.Validation(err)
	}
	if !req.TicketType.Valid() {
		return nil, apperror.ErrValidationFailed.WithMessage("ticketType must be one of %v", models.TicketTypes)
	}
	price, err := discount.ParsePrice(*req.Price)
	if err != nil {
		return nil, err
	}

	var reservation *tredis.Reservation
	if req.IdempotencyKey != "" && s.Idempotency != nil {
		reservation, err = s.Idempotency.Reserve(ctx, req.UserID, req.IdempotencyKey)
		if err != nil {
			if apperror.IsExpected(err) {
				return nil, err
			}
			return nil, apperror.Internal(err, "reserve idempotency key")
		}
		if reservation.Replay() {
			return s.replay(ctx, reservation.TicketID)
		}
		defer func() {
			if err != nil {
				if rerr := s.Idempotency.Release(context.WithoutCancel(ctx), reservation); rerr != nil {
					s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to release idempotency key: %v", rerr))
				}
			}
		}()
	}

	event, err := s.DB.FindEvent(ctx, req.EventID)
	if err != nil {
		return nil, s.lookupError(err, "find event")
	}
	user, err := s.DB.FindUser(ctx, req.UserID)
	if err != nil {
		return nil, s.lookupError(err, "find user")
	}

	if s.Options.EnforceCatalog {
		entry, ok := event.CatalogEntry(string(req.TicketType))
		if !ok {
			return nil, apperror.ErrTicketTypeNotOffered.WithMessage("%s tickets are not offered for event %s", req.TicketType, event.ID)
		}
		if !price.Equal(decimal.NewFromFloat(entry.Price).Round(discount.CurrencyPlaces)) {
			return nil, apperror.ErrValidationFailed.WithMessage("price %s does not match the listed price %.2f", price.StringFixed(discount.CurrencyPlaces), entry.Price)
		}
	}

	now := s.Now()
	ticket := &models.Ticket{
		ID:         uuid.New().String(),
		EventID:    event.ID,
		UserID:     user.ID,
		TicketType: req.TicketType,
		Price:      price.InexactFloat64(),
		FinalPrice: price.InexactFloat64(),
		Status:     models.TicketStatusBooked,
		CreatedAt:  now,
	}

	// Reject a code that cannot apply before rendering anything; the
	// transaction below redeems it again under the row guard.
	if req.DiscountCode != "" {
		if _, err := discount.Quote(ctx, s.DB, req.DiscountCode, event.ID, price, now); err != nil {
			s.Logger.Info("BOOKING", fmt.Sprintf("Booking for user %s on event %s rejected: %v", user.ID, event.ID, err))
			return nil, err
		}
	}

	// Credentials are rendered before the transaction so a discount row
	// locked by ApplyUsage is never held across file I/O.
	refs, err := s.generateCredentials(ctx, user, event, ticket)
	if err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("Credentials for user %s on event %s failed: %v", user.ID, event.ID, err))
		return nil, apperror.ErrCredentialFailed.WithCause(err)
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context, tx db.Tx) error {
		if req.DiscountCode != "" {
			r, err := discount.Redeem(ctx, tx, req.DiscountCode, event.ID, price, now)
			if err != nil {
				return err
			}
			ticket.FinalPrice = r.FinalPrice.InexactFloat64()
			ticket.DiscountID = r.Discount.ID
			ticket.DiscountCode = r.Discount.Code
		}

		if s.Options.EnforceCatalog {
			ok, err := tx.ReserveTicketType(ctx, event.ID, string(req.TicketType))
			if err != nil {
				return apperror.Internal(err, "reserve ticket type")
			}
			if !ok {
				return apperror.ErrEventSoldOut
			}
		}

		ticket.AttachCredentials(refs)
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return apperror.Internal(err, "create ticket")
		}
		return nil
	})
	if err != nil {
		s.Credentials.Discard(refs)
		if apperror.IsExpected(err) {
			s.Logger.Info("BOOKING", fmt.Sprintf("Booking for user %s on event %s rejected: %v", user.ID, event.ID, err))
			return nil, err
		}
		s.Logger.Error("BOOKING", fmt.Sprintf("Booking for user %s on event %s failed: %v", user.ID, event.ID, err))
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Internal(err, "book ticket")
	}

	s.afterBooking(ctx, user, ticket)

	if reservation != nil {
		if err := s.Idempotency.Complete(context.WithoutCancel(ctx), reservation, ticket.ID); err != nil {
			s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to store idempotency result for ticket %s: %v", ticket.ID, err))
		}
	}

	return &BookResult{Ticket: ticket, Credentials: s.publicURLs(ticket)}, nil
}

func (s *TicketService) replay(ctx context.Context, ticketID string) (*BookResult, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, s.lookupError(err, "load replayed ticket")
	}
	s.Logger.LogTicket("REPLAY", ticket.ID, "returning ticket of an earlier booking")
	return &BookResult{Ticket: ticket, Credentials: s.publicURLs(ticket), Replayed: true}, nil
}

func (s *TicketService) generateCredentials(ctx context.Context, user *models.User, event *models.Event, ticket *models.Ticket) (models.CredentialRefs, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Options.CredentialTimeout)
	defer cancel()

	start := time.Now()
	refs, err := s.Credentials.Generate(ctx, user, event, ticket)
	monitoring.TrackCredentialGeneration(time.Since(start))
	return refs, err
}

// afterBooking runs the follow-ups of a committed booking. None of them can
// fail the booking; failures are logged.
func (s *TicketService) afterBooking(ctx context.Context, user *models.User, ticket *models.Ticket) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Options.CollaboratorTimeout)
	defer cancel()

	if err := s.DB.IncrementTicketCount(ctx, ticket.EventID, string(ticket.TicketType), ticket.CreatedAt); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to update ticket count for event %s: %v", ticket.EventID, err))
	}

	if user.ReferredBy != "" {
		s.creditReferrer(ctx, user, ticket)
	}

	s.publish(ctx, models.TicketEventBooked, ticket)

	monitoring.TrackBooking(string(ticket.TicketType), ticket.DiscountID != "")
	s.Logger.LogTicket("BOOK", ticket.ID, fmt.Sprintf("user %s, event %s, %s at %.2f", ticket.UserID, ticket.EventID, ticket.TicketType, ticket.FinalPrice))
}

func (s *TicketService) creditReferrer(ctx context.Context, user *models.User, ticket *models.Ticket) {
	credited, err := s.DB.CreditReferral(ctx, &models.RewardCredit{
		TicketID:   ticket.ID,
		ReferrerID: user.ReferredBy,
		UserID:     user.ID,
		Points:     s.Options.ReferralPoints,
		CreatedAt:  s.Now(),
	})
	if err != nil {
		s.Logger.Warn("REFERRAL", fmt.Sprintf("Failed to credit referrer %s for ticket %s: %v", user.ReferredBy, ticket.ID, err))
		return
	}
	if credited {
		s.Logger.Info("REFERRAL", fmt.Sprintf("Credited %d points to %s for ticket %s", s.Options.ReferralPoints, user.ReferredBy, ticket.ID))
	}
}

func (s *TicketService) publish(ctx context.Context, eventType string, ticket *models.Ticket) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishTicketEvent(ctx, models.NewTicketEvent(eventType, *ticket, s.Now())); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for ticket %s: %v", eventType, ticket.ID, err))
	}
}

// CheckIn moves a booked ticket to Checked-in.
func (s *TicketService) CheckIn(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.transition(ctx, ticketID, models.TicketStatusCheckedIn, func(ctx context.Context, t *models.Ticket, now time.Time) error {
		t.CheckedInAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(context.WithoutCancel(ctx), models.TicketEventCheckedIn, ticket)
	s.Logger.LogTicket("CHECKIN", ticket.ID, "ticket checked in")
	return ticket, nil
}

// CheckInByQR checks in the ticket named by an encrypted badge QR payload.
func (s *TicketService) CheckInByQR(ctx context.Context, encoded string) (*models.Ticket, error) {
	if s.QR == nil {
		return nil, apperror.ErrInvalidQRCode
	}
	payload, err := s.QR.DecodeQR(encoded)
	if err != nil {
		if apperror.IsExpected(err) {
			return nil, err
		}
		return nil, apperror.ErrInvalidQRCode.WithCause(err)
	}
	return s.CheckIn(ctx, payload.TicketID)
}

// CancelTicket moves a booked ticket to Cancelled and reports the refund
// percentage the ticket qualifies for. The percentage is informational.
func (s *TicketService) CancelTicket(ctx context.Context, ticketID string) (*CancelResult, error) {
	ticket, err := s.transition(ctx, ticketID, models.TicketStatusCancelled, func(ctx context.Context, t *models.Ticket, now time.Time) error {
		refund, err := s.refundFor(ctx, t, now)
		if err != nil {
			return err
		}
		t.RefundPercentage = refund
		t.CancelledAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackRefund(string(ticket.TicketType), ticket.RefundPercentage)
	s.publish(context.WithoutCancel(ctx), models.TicketEventCancelled, ticket)
	s.Logger.LogTicket("CANCEL", ticket.ID, fmt.Sprintf("ticket cancelled, refund %d%%", ticket.RefundPercentage))
	return &CancelResult{Ticket: ticket, RefundPercentage: ticket.RefundPercentage}, nil
}

func (s *TicketService) refundFor(ctx context.Context, ticket *models.Ticket, now time.Time) (int, error) {
	event, err := s.DB.FindEvent(ctx, ticket.EventID)
	if errors.Is(err, apperror.ErrEventNotFound) {
		s.Logger.Warn("CANCEL", fmt.Sprintf("Event %s of ticket %s not found, refund set to 0", ticket.EventID, ticket.ID))
		return 0, nil
	}
	if err != nil {
		return 0, apperror.Internal(err, "find event")
	}
	days := lifecycle.DaysBeforeEvent(event.Date, now)
	return lifecycle.RefundPercentage(ticket.TicketType, days), nil
}

type applyFunc func(ctx context.Context, ticket *models.Ticket, now time.Time) error

// transition applies a status change with a conditional write. If another
// request changed the ticket first, the ticket is reloaded and the move is
// judged again against its new status.
func (s *TicketService) transition(ctx context.Context, ticketID string, to models.TicketStatus, apply applyFunc) (*models.Ticket, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		ticket, err := s.DB.GetTicketByID(ctx, ticketID)
		if err != nil {
			return nil, s.lookupError(err, "load ticket")
		}

		from := ticket.Status
		if err := lifecycle.Transition(from, to); err != nil {
			return nil, err
		}

		now := s.Now()
		if err := apply(ctx, ticket, now); err != nil {
			return nil, err
		}
		ticket.Status = to
		ticket.UpdatedAt = now

		ok, err := s.DB.TransitionTicket(ctx, ticket, from)
		if err != nil {
			s.Logger.Error("TICKET", fmt.Sprintf("Failed to move ticket %s to %s: %v", ticketID, to, err))
			return nil, apperror.Internal(err, "update ticket status")
		}
		if ok {
			monitoring.TrackTransition(string(from), string(to))
			return ticket, nil
		}
		s.Logger.Debug("TICKET", fmt.Sprintf("Ticket %s changed concurrently, re-evaluating %s", ticketID, to))
	}
	return nil, apperror.ErrInvalidTransition.WithMessage("ticket %s kept changing, try again", ticketID)
}

// GetTicketDetails returns a ticket with the public URLs of its credentials.
func (s *TicketService) GetTicketDetails(ctx context.Context, ticketID string) (*TicketDetails, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, s.lookupError(err, "load ticket")
	}
	return &TicketDetails{Ticket: ticket, Credentials: s.publicURLs(ticket)}, nil
}

func (s *TicketService) GetTicketsByUser(ctx context.Context, userID string) ([]TicketDetails, error) {
	tickets, err := s.DB.GetTicketsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err, "list tickets")
	}
	details := make([]TicketDetails, 0, len(tickets))
	for i := range tickets {
		details = append(details, TicketDetails{Ticket: &tickets[i], Credentials: s.publicURLs(&tickets[i])})
	}
	return details, nil
}

func (s *TicketService) GetRefundPolicy() map[models.TicketType]string {
	return lifecycle.RefundPolicy()
}

func (s *TicketService) publicURLs(ticket *models.Ticket) models.CredentialRefs {
	refs := ticket.Credentials()
	if s.Credentials == nil {
		return refs
	}
	return models.CredentialRefs{
		QRCode:   s.Credentials.URL(refs.QRCode),
		Badge:    s.Credentials.URL(refs.Badge),
		BadgePDF: s.Credentials.URL(refs.BadgePDF),
	}
}

// lookupError passes typed errors through and wraps anything else.
func (s *TicketService) lookupError(err error, op string) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	s.Logger.Error("TICKET", fmt.Sprintf("%s: %v", op, err))
	return apperror.Internal(err, op)
}
