package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest money value accepted for prices and tenders. It
// matches the NUMERIC(12,2) price column.
var MaxAmount = decimal.RequireFromString("9999999999.99")

const (
	maxIntegerDigits = 10
	// maxFractionDigits bounds the scale inspected before rounding. Inputs
	// like "1.50000" stay valid; absurd scales are refused outright.
	maxFractionDigits = 18
)

// Money range errors.
var (
	ErrAmountTooLarge = errors.New("amount exceeds 9999999999.99")
	ErrSubCent        = errors.New("amount has more than 2 decimal places")
)

// CheckAmount reports whether d is a representable money value: at most
// MaxAmount and no fraction of a cent. Sign is left to the caller.
//
// The exponent and coefficient length are checked first, so values like
// 1e30000000 are refused without being rescaled.
func CheckAmount(d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	exp := int(d.Exponent())
	if exp < -maxFractionDigits {
		return ErrSubCent
	}
	if d.NumDigits()+exp > maxIntegerDigits {
		return ErrAmountTooLarge
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if !d.Equal(d.Round(2)) {
		return ErrSubCent
	}
	return nil
}
