package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	// 1 USD = 83.25 INR, scaled by 10_000.
	out, err := Quote(1_000_000, 832500)
	require.NoError(t, err)
	assert.Equal(t, uint64(83_250_000), out)
}

func TestQuote_FloorsRemainder(t *testing.T) {
	// 3 * 3333 / 10000 = 0.9999 -> 0
	out, err := Quote(3, 3333)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out)

	out, err = Quote(7, 15_001)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), out) // 10.5007 floors to 10
}

func TestQuote_WideIntermediate(t *testing.T) {
	// amountIn * rate far exceeds 64 bits but the quotient fits.
	out, err := Quote(math.MaxUint64, RateScale)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), out)
}

func TestQuote_OverflowResult(t *testing.T) {
	_, err := Quote(math.MaxUint64, RateScale+1)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestQuote_ZeroRate(t *testing.T) {
	out, err := Quote(1_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out)
}

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(40, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sum)

	_, err = CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestCheckedSub(t *testing.T) {
	diff, err := CheckedSub(42, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), diff)

	_, err = CheckedSub(1, 2)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}
