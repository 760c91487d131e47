package discount

import (
	"math"

	"github.com/shopspring/decimal"

	"ms-booking/internal/apperror"
	"ms-booking/internal/models"
)

// CurrencyPlaces is the number of decimal places in the smallest currency unit.
// Final prices are rounded half away from zero to this precision.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ParsePrice converts a listed price into a decimal. Negative prices and
// prices finer than the smallest currency unit are rejected.
func ParsePrice(price float64) (decimal.Decimal, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return decimal.Zero, apperror.ErrValidationFailed.WithMessage("price must be a number")
	}
	p := decimal.NewFromFloat(price)
	if p.IsNegative() {
		return decimal.Zero, apperror.ErrValidationFailed.WithMessage("price must not be negative")
	}
	if !p.Equal(p.Round(CurrencyPlaces)) {
		return decimal.Zero, apperror.ErrValidationFailed.WithMessage("price must have at most %d decimal places", CurrencyPlaces)
	}
	return p, nil
}

// FinalPrice applies a discount of the given type and value to price.
// The result is clamped to [0, price] and rounded to CurrencyPlaces.
func FinalPrice(discountType models.DiscountType, value float64, price decimal.Decimal) decimal.Decimal {
	v := decimal.NewFromFloat(value)
	if v.IsNegative() {
		v = decimal.Zero
	}

	var final decimal.Decimal
	switch discountType {
	case models.DiscountTypePercentage:
		final = price.Sub(price.Mul(v).Div(hundred))
	case models.DiscountTypeFlat:
		final = price.Sub(v)
	default:
		final = price
	}

	if final.IsNegative() {
		final = decimal.Zero
	}
	final = final.Round(CurrencyPlaces)
	if final.GreaterThan(price) {
		final = price
	}
	return final
}
