package models

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ToKobo converts naira to kobo, rounding half away from zero
func ToKobo(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FormatNaira renders an amount the way receipts show it, e.g. ₦8,000 or ₦1,250.5
func FormatNaira(amount decimal.Decimal) string {
	return "₦" + FormatNumber(amount)
}

// FormatNumber groups thousands and drops a zero fraction
func FormatNumber(d decimal.Decimal) string {
	if d.IsInteger() {
		return humanize.Comma(d.IntPart())
	}
	return humanize.CommafWithDigits(d.InexactFloat64(), 2)
}
