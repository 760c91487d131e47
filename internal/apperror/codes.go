package apperror

const (
	CodeInternal = "INTERNAL_ERROR"
)

var (
	ErrEventNotFound    = New(KindNotFound, "EVENT_NOT_FOUND", "event not found")
	ErrUserNotFound     = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrTicketNotFound   = New(KindNotFound, "TICKET_NOT_FOUND", "ticket not found")
	ErrDiscountNotFound = New(KindNotFound, "DISCOUNT_NOT_FOUND", "discount not found")

	ErrValidationFailed     = New(KindValidation, "VALIDATION_FAILED", "request validation failed")
	ErrTicketTypeNotOffered = New(KindValidation, "TICKET_TYPE_NOT_OFFERED", "ticket type is not offered for this event")
	ErrInvalidQRCode        = New(KindValidation, "INVALID_QR_CODE", "qr code could not be decoded")

	ErrAlreadyCheckedIn   = New(KindStateConflict, "ALREADY_CHECKED_IN", "ticket already checked in")
	ErrAlreadyCancelled   = New(KindStateConflict, "ALREADY_CANCELLED", "ticket is already cancelled")
	ErrTicketCancelled    = New(KindStateConflict, "TICKET_CANCELLED", "ticket is cancelled")
	ErrInvalidTransition  = New(KindStateConflict, "INVALID_STATUS_TRANSITION", "ticket status transition is not allowed")
	ErrDiscountCodeExists = New(KindStateConflict, "DISCOUNT_CODE_EXISTS", "discount code already exists")
	ErrBookingInProgress  = New(KindStateConflict, "BOOKING_IN_PROGRESS", "a booking with this idempotency key is in progress")

	ErrInvalidDiscountCode   = New(KindBusinessRule, "INVALID_DISCOUNT_CODE", "invalid discount code")
	ErrDiscountNotActive     = New(KindBusinessRule, "DISCOUNT_NOT_ACTIVE", "discount code expired or not active")
	ErrDiscountUsageExceeded = New(KindBusinessRule, "DISCOUNT_USAGE_EXCEEDED", "discount code usage limit reached")
	ErrEventSoldOut          = New(KindBusinessRule, "EVENT_SOLD_OUT", "no tickets left for this ticket type")

	ErrCredentialFailed = New(KindInfrastructure, "CREDENTIAL_GENERATION_FAILED", "failed to generate ticket credentials")
)
