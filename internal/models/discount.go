package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFlat       DiscountType = "flat"
)

func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFlat
}

type Discount struct {
	bun.BaseModel `bun:"table:discounts"`

	ID           string       `bun:"id,pk" json:"id"`
	Code         string       `bun:"code,notnull" json:"code"`
	CodeKey      string       `bun:"code_key,unique,notnull" json:"-"`
	EventID      string       `bun:"event_id,notnull" json:"eventId"`
	DiscountType DiscountType `bun:"discount_type,notnull" json:"discountType"`
	Value        float64      `bun:"value,notnull" json:"value"`
	MaxUsage     int          `bun:"max_usage,notnull" json:"maxUsage"`
	UsedCount    int          `bun:"used_count,notnull" json:"usedCount"`
	StartDate    time.Time    `bun:"start_date,notnull" json:"startDate"`
	EndDate      time.Time    `bun:"end_date,notnull" json:"endDate"`
	ExpiryDate   time.Time    `bun:"expiry_date,notnull" json:"expiryDate"`
	IsActive     bool         `bun:"is_active,notnull" json:"isActive"`
	CreatedAt    time.Time    `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time    `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// NormalizeCode is the case-insensitive lookup key of a discount code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Remaining returns the uses left, or -1 when the code is unlimited.
func (d *Discount) Remaining() int {
	if d.MaxUsage == 0 {
		return -1
	}
	if d.UsedCount >= d.MaxUsage {
		return 0
	}
	return d.MaxUsage - d.UsedCount
}
