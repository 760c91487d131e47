package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Email        string    `bun:"email,unique,notnull" json:"email"`
	Role         string    `bun:"role,notnull" json:"role"`
	ReferredBy   string    `bun:"referred_by,nullzero" json:"referredBy,omitempty"`
	RewardPoints int       `bun:"reward_points,notnull" json:"rewardPoints"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// RewardCredit records a referral bonus paid for one ticket. The ticket id
// is the primary key so a bonus can never be paid twice for the same ticket.
type RewardCredit struct {
	bun.BaseModel `bun:"table:reward_credits"`

	TicketID   string    `bun:"ticket_id,pk" json:"ticketId"`
	ReferrerID string    `bun:"referrer_id,notnull" json:"referrerId"`
	UserID     string    `bun:"user_id,notnull" json:"userId"`
	Points     int       `bun:"points,notnull" json:"points"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"createdAt"`
}
