package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). Prices are never stored as
// floats or strings inside the service.
type Money int64

const minorUnitExponent = 2

// ParseMoney converts a decimal amount from the transport boundary into
// minor units. Amounts with more than two fractional digits are rejected
// rather than rounded.
func ParseMoney(amount decimal.Decimal) (Money, error) {
	shifted := amount.Shift(minorUnitExponent)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, Detail(ErrInvalidAmount, "amount has more than two decimal places")
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, Detail(ErrInvalidAmount, "amount out of range")
	}
	return Money(shifted.IntPart()), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorUnitExponent)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(minorUnitExponent)
}

// MarshalJSON renders money as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return Detail(ErrInvalidAmount, "amount is not a number")
	}
	parsed, err := ParseMoney(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
