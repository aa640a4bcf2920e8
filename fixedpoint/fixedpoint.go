// Package fixedpoint implements the 256-bit unsigned arithmetic the engine's
// pool models are built on: full-width mulDiv, integer square root, and the
// concentrated-liquidity sqrt-price identities from Uniswap V3.
//
// The arithmetic itself is grounded on the teacher repo's
// protocols/uniswapv3/calculator/sqrtpricemath and
// protocols/uniswapv3/calculator/tickmath packages, ported from math/big to
// github.com/holiman/uint256 so the domain-dependency stack is used for the
// thing it is best at: branch-lean, allocation-light 256-bit math with a
// native 512-bit-intermediate mulDiv.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned whenever a 256-bit-domain operation would
	// exceed 2^256-1, or a mulDiv's full-width intermediate cannot be
	// brought back into 256 bits after dividing by the denominator.
	ErrOverflow = errors.New("fixedpoint: overflow")

	// ErrDivisionByZero is returned by Div and MulDiv when the divisor/
	// denominator is zero.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")

	// ErrLiquidityZero mirrors the teacher's sqrtpricemath guard.
	ErrLiquidityZero = errors.New("fixedpoint: liquidity must be greater than zero")

	// ErrSqrtPriceZero mirrors the teacher's sqrtpricemath guard.
	ErrSqrtPriceZero = errors.New("fixedpoint: sqrt price must be greater than zero")
)

// Resolution is the number of fractional bits in the Q64.96 sqrt-price
// representation.
const Resolution = 96

// Q96 is the UQ64.96 fixed-point representation of 1.
var Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)

// MinSqrtRatio and MaxSqrtRatio bound the valid sqrt-price domain; a V3 pool
// whose sqrtPriceX96 leaves this range is invalid (see graph/Pool invariant).
var (
	MinSqrtRatio = uint256.MustFromDecimal("4295128739")
	MaxSqrtRatio = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")
)

var one = uint256.NewInt(1)

// Add returns a+b, or ErrOverflow if the sum does not fit in 256 bits.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns a-b, or ErrOverflow if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Mul returns a*b, or ErrOverflow if the product does not fit in 256 bits.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div returns floor(a/b).
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// MulDiv computes floor(a*b/denom) using uint256's native 512-bit
// intermediate product, failing with ErrOverflow if the quotient itself does
// not fit back into 256 bits (it cannot overflow the numerator, only the
// final division can be undefined for denom=0).
func MulDiv(a, b, denom *uint256.Int) (*uint256.Int, error) {
	if denom.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, denom)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivCeil computes ceil(a*b/denom), again using the full-width product.
func MulDivCeil(a, b, denom *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(a, b, denom)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, denom)
	if !rem.IsZero() {
		z, overflow := new(uint256.Int).AddOverflow(z, one)
		if overflow {
			return nil, ErrOverflow
		}
		return z, nil
	}
	return z, nil
}

func divCeil(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	z := new(uint256.Int).Div(a, b)
	rem := new(uint256.Int).Mod(a, b)
	if !rem.IsZero() {
		z, overflow := new(uint256.Int).AddOverflow(z, one)
		if overflow {
			return nil, ErrOverflow
		}
		return z, nil
	}
	return z, nil
}

// GetNextSqrtPriceFromInput computes the next sqrt price after swapping
// amountIn of the input token into a pool at (sqrtP, L), per §4.1 of the
// specification. It is a direct, allocation-conscious port of the teacher's
// sqrtpricemath.GetNextSqrtPriceFromInput.
func GetNextSqrtPriceFromInput(sqrtP, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtP.Sign() <= 0 {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtP, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtP, liquidity, amountIn, true)
}

// getNextSqrtPriceFromAmount0RoundingUp mirrors Uniswap V3's reference
// formula: adding token0 decreases price, removing it increases price.
func getNextSqrtPriceFromAmount0RoundingUp(sqrtP, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return new(uint256.Int).Set(sqrtP), nil
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution)

	if add {
		product, overflow := new(uint256.Int).MulOverflow(amount, sqrtP)
		if !overflow && new(uint256.Int).Div(product, amount).Eq(sqrtP) {
			denominator, dOverflow := new(uint256.Int).AddOverflow(numerator1, product)
			if !dOverflow && denominator.Cmp(numerator1) >= 0 {
				return MulDivCeil(numerator1, sqrtP, denominator)
			}
		}
		denominator := new(uint256.Int).Div(numerator1, sqrtP)
		denominator, overflow = denominator.AddOverflow(denominator, amount)
		if overflow {
			return nil, ErrOverflow
		}
		return divCeil(numerator1, denominator)
	}

	product, overflow := new(uint256.Int).MulOverflow(amount, sqrtP)
	if overflow || new(uint256.Int).Div(product, amount).Cmp(sqrtP) != 0 || numerator1.Cmp(product) <= 0 {
		return nil, ErrOverflow
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	return MulDivCeil(numerator1, sqrtP, denominator)
}

func getNextSqrtPriceFromAmount1RoundingDown(sqrtP, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		quotient, err := MulDiv(amount, Q96, liquidity)
		if err != nil {
			return nil, err
		}
		return Add(sqrtP, quotient)
	}
	quotient, err := MulDivCeil(amount, Q96, liquidity)
	if err != nil {
		return nil, err
	}
	if sqrtP.Cmp(quotient) <= 0 {
		return nil, ErrOverflow
	}
	return Sub(sqrtP, quotient)
}

// GetAmount0Delta computes the amount of token0 consumed/produced moving
// between two sqrt prices at constant liquidity L.
func GetAmount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Sign() <= 0 {
		return nil, ErrSqrtPriceZero
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		term, err := MulDivCeil(numerator1, numerator2, sqrtB)
		if err != nil {
			return nil, err
		}
		return divCeil(term, sqrtA)
	}
	term, err := MulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(term, sqrtA), nil
}

// GetAmount1Delta computes the amount of token1 consumed/produced moving
// between two sqrt prices at constant liquidity L.
func GetAmount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return MulDivCeil(liquidity, numerator1, Q96)
	}
	return MulDiv(liquidity, numerator1, Q96)
}

// SqrtPriceX96FromPrice converts a human price ratio (token1/token0,
// expressed as priceNum/priceDenom) into its sqrtPriceX96 representation:
// floor(sqrt(price) * 2^96). This is not on the hot path — it is used only
// to seed synthetic V3 state from a human-readable price at startup or in
// tests — so it is implemented directly on math/big's arbitrary-precision
// integer sqrt rather than uint256, which has no rational/float support.
func SqrtPriceX96FromPrice(priceNum, priceDenom *big.Int) *uint256.Int {
	scaled := new(big.Int).Lsh(priceNum, 2*Resolution)
	scaled.Div(scaled, priceDenom)
	root := new(big.Int).Sqrt(scaled)
	z, _ := uint256.FromBig(root)
	return z
}
