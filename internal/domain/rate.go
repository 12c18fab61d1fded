package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrAmountOverflow reports that a checked arithmetic step left the uint64
// range. The preceding balance and amount checks make this unreachable in a
// correct deployment, so callers treat it as a defect, not a user error.
var ErrAmountOverflow = errors.New("amount arithmetic overflow")

var (
	rateScaleDec = decimal.NewFromInt(RateScale)
	maxUint64Dec = decimal.NewFromUint64(math.MaxUint64)
)

// Quote prices a swap: floor(amountIn * rate / RateScale). The multiply runs
// in arbitrary precision, so the full uint64 input range is safe; only a
// result that does not fit uint64 is rejected.
func Quote(amountIn, rate uint64) (uint64, error) {
	out := decimal.NewFromUint64(amountIn).
		Mul(decimal.NewFromUint64(rate)).
		Div(rateScaleDec).
		Floor()
	if out.GreaterThan(maxUint64Dec) {
		return 0, ErrAmountOverflow
	}
	return out.BigInt().Uint64(), nil
}

// CheckedAdd returns a+b, or ErrAmountOverflow if the sum wraps.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// CheckedSub returns a-b, or ErrAmountOverflow if b exceeds a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrAmountOverflow
	}
	return a - b, nil
}
