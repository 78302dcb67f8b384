package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CentsFromDecimal converts a decimal amount in major units (dollars) to
// integer minor units (cents). Amounts that do not land on a whole cent
// are rejected before anything is persisted.
func CentsFromDecimal(d decimal.Decimal) (int64, error) {
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrNonIntegerCents, d.String())
	}
	return cents.IntPart(), nil
}

// FromAggregatorSign converts the aggregator's outflow-positive sign
// convention to this system's outflow-negative convention.
func FromAggregatorSign(cents int64) int64 {
	return -cents
}
