// Package v3 implements the single-step concentrated-liquidity pool model
// used for UniswapV3 pools in the universe, per §4.3 of the specification.
// It deliberately does not model tick crossings: every swap is priced at the
// pool's current liquidity, and the quote is reported Unroutable only if the
// implied sqrt price would leave [MinSqrtRatio+1, MaxSqrtRatio-1]. A swap
// that would cross an initialized tick is not detected.
//
// Grounded on the teacher's protocols/uniswapv3/calculator package (the
// swap-step loop in particular), collapsed from a multi-step, tick-crossing
// loop into the single step the specification calls for, and built on
// fixedpoint instead of the teacher's sync.Pool-recycled math/big.
package v3

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/fixedpoint"
)

var (
	// ErrTokenMismatch is returned when tokenIn doesn't belong to the pool.
	ErrTokenMismatch = errors.New("v3: token mismatch")
	// ErrUnroutable is returned when the resulting sqrt price leaves the safe
	// range or the sqrt-price math fails (zero liquidity, overflow).
	ErrUnroutable = errors.New("v3: unroutable")
)

var million = uint256.NewInt(1_000_000)

// State is the mutable, on-chain-mirrored part of a V3 pool. Tick and the
// tick bitmap are intentionally absent: the model works entirely in
// sqrt-price space and never needs to know which tick it is in, only
// whether a step would leave the valid sqrt-price domain.
type State struct {
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	TickSpacing  int32
	Fee          uint32 // parts-per-million, matching the on-chain fee parameter
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{
		SqrtPriceX96: new(uint256.Int).Set(s.SqrtPriceX96),
		Liquidity:    new(uint256.Int).Set(s.Liquidity),
		TickSpacing:  s.TickSpacing,
		Fee:          s.Fee,
	}
}

// Valid reports whether the state's sqrt price is within the engine's
// tracked safe range, per the Graph invariant in §3 of the specification.
func (s State) Valid() bool {
	return s.SqrtPriceX96.Cmp(fixedpoint.MinSqrtRatio) > 0 && s.SqrtPriceX96.Cmp(fixedpoint.MaxSqrtRatio) < 0
}

// Pool is the immutable identity plus current mutable State of a V3 edge.
type Pool struct {
	ID       domain.PoolID
	Address  common.Address
	Exchange domain.Exchange
	Token0   domain.TokenID
	Token1   domain.TokenID
	State    State
}

// Quote computes the exact-in swap output for a single price step, per
// §4.3:
//  1. amountInNet = floor(amountIn * (1_000_000-fee) / 1_000_000)
//  2. sqrtP' = GetNextSqrtPriceFromInput(sqrtP, L, amountInNet, zeroForOne)
//  3. amountOut from the appropriate amountDelta formula
//  4. liquidity is unchanged; only sqrtPriceX96 moves
func Quote(p Pool, tokenIn domain.TokenID, amountIn *uint256.Int) (amountOut *uint256.Int, next State, err error) {
	var zeroForOne bool
	switch tokenIn {
	case p.Token0:
		zeroForOne = true
	case p.Token1:
		zeroForOne = false
	default:
		return nil, State{}, ErrTokenMismatch
	}

	if amountIn.IsZero() {
		return new(uint256.Int), p.State.Clone(), nil
	}

	feeMultiplier := new(uint256.Int).Sub(million, uint256.NewInt(uint64(p.State.Fee)))
	amountInNet := new(uint256.Int).Mul(amountIn, feeMultiplier)
	amountInNet.Div(amountInNet, million)

	sqrtPNext, err := fixedpoint.GetNextSqrtPriceFromInput(p.State.SqrtPriceX96, p.State.Liquidity, amountInNet, zeroForOne)
	if err != nil {
		return nil, State{}, ErrUnroutable
	}

	safeMin := new(uint256.Int).Add(fixedpoint.MinSqrtRatio, uint256.NewInt(1))
	safeMax := new(uint256.Int).Sub(fixedpoint.MaxSqrtRatio, uint256.NewInt(1))
	if sqrtPNext.Cmp(safeMin) < 0 || sqrtPNext.Cmp(safeMax) > 0 {
		return nil, State{}, ErrUnroutable
	}

	if zeroForOne {
		amountOut, err = fixedpoint.GetAmount1Delta(sqrtPNext, p.State.SqrtPriceX96, p.State.Liquidity, false)
	} else {
		amountOut, err = fixedpoint.GetAmount0Delta(p.State.SqrtPriceX96, sqrtPNext, p.State.Liquidity, false)
	}
	if err != nil {
		return nil, State{}, ErrUnroutable
	}

	next = p.State.Clone()
	next.SqrtPriceX96 = sqrtPNext
	return amountOut, next, nil
}
