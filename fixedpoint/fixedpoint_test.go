package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u256(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestMulDiv(t *testing.T) {
	got, err := MulDiv(u256("1000000000000000000"), u256("3"), u256("2"))
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", got.String())
}

func TestMulDiv_DivisionByZero(t *testing.T) {
	_, err := MulDiv(u256("1"), u256("1"), uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMulDivCeil_RoundsUp(t *testing.T) {
	exact, err := MulDiv(u256("10"), u256("1"), u256("3"))
	require.NoError(t, err)
	assert.Equal(t, "3", exact.String())

	ceil, err := MulDivCeil(u256("10"), u256("1"), u256("3"))
	require.NoError(t, err)
	assert.Equal(t, "4", ceil.String())
}

func TestSqrt(t *testing.T) {
	assert.Equal(t, "3", Sqrt(u256("9")).String())
	assert.Equal(t, "3", Sqrt(u256("15")).String()) // floor
}

func TestGetNextSqrtPriceFromInput_ZeroForOne_DecreasesPrice(t *testing.T) {
	sqrtP := Q96
	liquidity := u256("1000000000000000000")
	next, err := GetNextSqrtPriceFromInput(sqrtP, liquidity, u256("1000000000000000000"), true)
	require.NoError(t, err)
	assert.Equal(t, -1, next.Cmp(sqrtP))
}

func TestGetNextSqrtPriceFromInput_OneForZero_IncreasesPrice(t *testing.T) {
	sqrtP := Q96
	liquidity := u256("1000000000000000000")
	next, err := GetNextSqrtPriceFromInput(sqrtP, liquidity, u256("1000000000000000000"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Cmp(sqrtP))
}

func TestGetNextSqrtPriceFromInput_ZeroLiquidity(t *testing.T) {
	_, err := GetNextSqrtPriceFromInput(Q96, uint256.NewInt(0), u256("1"), true)
	assert.ErrorIs(t, err, ErrLiquidityZero)
}

func TestGetNextSqrtPriceFromInput_ZeroSqrtPrice(t *testing.T) {
	_, err := GetNextSqrtPriceFromInput(uint256.NewInt(0), u256("1"), u256("1"), true)
	assert.ErrorIs(t, err, ErrSqrtPriceZero)
}

func TestGetAmount0Delta_OrderIndependent(t *testing.T) {
	a := Q96
	b := new(uint256.Int).Mul(Q96, uint256.NewInt(2))
	liquidity := u256("1000000000000000000")

	lowHigh, err := GetAmount0Delta(a, b, liquidity, false)
	require.NoError(t, err)
	highLow, err := GetAmount0Delta(b, a, liquidity, false)
	require.NoError(t, err)
	assert.Equal(t, lowHigh.String(), highLow.String())
}

func TestGetAmount1Delta_RoundUpVsDown(t *testing.T) {
	a := Q96
	b := new(uint256.Int).Add(Q96, uint256.NewInt(1))
	liquidity := u256("3")

	down, err := GetAmount1Delta(a, b, liquidity, false)
	require.NoError(t, err)
	up, err := GetAmount1Delta(a, b, liquidity, true)
	require.NoError(t, err)
	assert.True(t, up.Cmp(down) >= 0)
}

func TestSqrtPriceX96FromPrice_RoundTripsOne(t *testing.T) {
	got := SqrtPriceX96FromPrice(big.NewInt(1), big.NewInt(1))
	assert.Equal(t, Q96.String(), got.String())
}

func TestMinMaxSqrtRatio_Ordered(t *testing.T) {
	assert.Equal(t, -1, MinSqrtRatio.Cmp(MaxSqrtRatio))
}
