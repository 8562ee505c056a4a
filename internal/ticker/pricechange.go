package ticker

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ChangeInPercent returns the percentage change from previous to current.
// A missing or zero previous sample yields zero.
func ChangeInPercent(current decimal.Decimal, previous decimal.NullDecimal) decimal.Decimal {
	if !previous.Valid || previous.Decimal.IsZero() {
		return decimal.Zero
	}
	diff := current.Sub(previous.Decimal)
	return quo(diff.Mul(hundred), previous.Decimal)
}
