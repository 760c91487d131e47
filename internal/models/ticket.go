package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketType string

const (
	TicketTypeEarlyBird TicketType = "Early Bird"
	TicketTypeRegular   TicketType = "Regular"
	TicketTypeVIP       TicketType = "VIP"
)

var TicketTypes = []TicketType{TicketTypeEarlyBird, TicketTypeRegular, TicketTypeVIP}

func (t TicketType) Valid() bool {
	for _, tt := range TicketTypes {
		if t == tt {
			return true
		}
	}
	return false
}

type TicketStatus string

const (
	TicketStatusBooked    TicketStatus = "Booked"
	TicketStatusCheckedIn TicketStatus = "Checked-in"
	TicketStatusCancelled TicketStatus = "Cancelled"
	TicketStatusRefunded  TicketStatus = "Refunded"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID               string       `bun:"id,pk" json:"id"`
	EventID          string       `bun:"event_id,notnull" json:"eventId"`
	UserID           string       `bun:"user_id,notnull" json:"userId"`
	TicketType       TicketType   `bun:"ticket_type,notnull" json:"ticketType"`
	Price            float64      `bun:"price,notnull" json:"price"`
	FinalPrice       float64      `bun:"final_price,notnull" json:"finalPrice"`
	DiscountID       string       `bun:"discount_id,nullzero" json:"discountId,omitempty"`
	DiscountCode     string       `bun:"discount_code,nullzero" json:"discountCode,omitempty"`
	Status           TicketStatus `bun:"status,notnull" json:"status"`
	RefundPercentage int          `bun:"refund_percentage" json:"refundPercentage"`
	QRCodePath       string       `bun:"qr_code_path,nullzero" json:"-"`
	BadgePath        string       `bun:"badge_path,nullzero" json:"-"`
	BadgePDFPath     string       `bun:"badge_pdf_path,nullzero" json:"-"`
	CreatedAt        time.Time    `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt        time.Time    `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
	CheckedInAt      time.Time    `bun:"checked_in_at,nullzero" json:"checkedInAt,omitempty"`
	CancelledAt      time.Time    `bun:"cancelled_at,nullzero" json:"cancelledAt,omitempty"`
}

// CredentialRefs holds the public paths of the artifacts generated for a ticket.
type CredentialRefs struct {
	QRCode   string `json:"qrCode"`
	Badge    string `json:"badge"`
	BadgePDF string `json:"badgePdf"`
}

func (t *Ticket) Credentials() CredentialRefs {
	return CredentialRefs{
		QRCode:   t.QRCodePath,
		Badge:    t.BadgePath,
		BadgePDF: t.BadgePDFPath,
	}
}

func (t *Ticket) AttachCredentials(refs CredentialRefs) {
	t.QRCodePath = refs.QRCode
	t.BadgePath = refs.Badge
	t.BadgePDFPath = refs.BadgePDF
}
