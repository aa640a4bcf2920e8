// Package v2 implements the constant-product ("x*y=k") pool model shared by
// every V2-style exchange in the universe: Camelot, Sushi, and Chronos
// (volatile pairs only). It is grounded on the teacher's
// protocols/uniswapv2/calculator package, generalized from a single-protocol
// calculator keyed by a registry Pool into a pure function over the
// engine's own domain.TokenID/Exchange identifiers.
package v2

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fulcrum-dex/fulcrum/domain"
)

var (
	// ErrTokenMismatch is returned when tokenIn/tokenOut don't belong to the pool.
	ErrTokenMismatch = errors.New("v2: token mismatch")
	// ErrUnroutable is returned when the pool cannot serve the requested swap:
	// zero reserves, or the implied output would not leave reserveOut positive.
	ErrUnroutable = errors.New("v2: unroutable")
)

var basisPointDivisor = uint256.NewInt(10_000)

// feeBps holds the protocol fee, in basis points, for each V2-style exchange.
// UniswapV3 never appears here; it is routed through pools/v3 instead.
var feeBps = map[domain.Exchange]uint32{
	domain.Camelot: 30,
	domain.Sushi:   30,
	domain.Chronos: 20,
}

// FeeBps returns the fixed protocol fee for a V2-style exchange.
func FeeBps(exchange domain.Exchange) (uint32, error) {
	fee, ok := feeBps[exchange]
	if !ok {
		return 0, fmt.Errorf("v2: exchange %s has no fixed fee tier", exchange)
	}
	return fee, nil
}

// State is the mutable, on-chain-mirrored part of a V2-style pool.
type State struct {
	Reserve0         *uint256.Int
	Reserve1         *uint256.Int
	LastUpdatedBlock uint64
}

// Clone returns a deep copy of the state, used by the simulator to snapshot
// a pool before a speculative mutation.
func (s State) Clone() State {
	return State{
		Reserve0:         new(uint256.Int).Set(s.Reserve0),
		Reserve1:         new(uint256.Int).Set(s.Reserve1),
		LastUpdatedBlock: s.LastUpdatedBlock,
	}
}

// Pool is the immutable identity plus current mutable State of a V2-style edge.
type Pool struct {
	ID       domain.PoolID
	Address  common.Address
	Exchange domain.Exchange
	Token0   domain.TokenID
	Token1   domain.TokenID
	FeeBps   uint32
	State    State
}

// reserves resolves (reserveIn, reserveOut) for the requested direction.
func reserves(p Pool, tokenIn, tokenOut domain.TokenID) (in, out *uint256.Int, err error) {
	switch {
	case tokenIn == p.Token0 && tokenOut == p.Token1:
		return p.State.Reserve0, p.State.Reserve1, nil
	case tokenIn == p.Token1 && tokenOut == p.Token0:
		return p.State.Reserve1, p.State.Reserve0, nil
	default:
		return nil, nil, fmt.Errorf("%w: pool %d does not hold %d -> %d", ErrTokenMismatch, p.ID, tokenIn, tokenOut)
	}
}

// otherToken returns the token on the far side of the pool from tokenIn.
func otherToken(p Pool, tokenIn domain.TokenID) domain.TokenID {
	if tokenIn == p.Token0 {
		return p.Token1
	}
	return p.Token0
}

// Quote computes the exact-in swap output per §4.2 of the specification:
//
//	amountInWithFee = amountIn * (10_000 - feeBps)
//	amountOut = (amountInWithFee * reserveOut) / (reserveIn*10_000 + amountInWithFee)
//
// and returns the resulting pool state. It never mutates p; the caller
// applies the returned state explicitly (see graph.Graph.Apply).
func Quote(p Pool, tokenIn domain.TokenID, amountIn *uint256.Int) (amountOut *uint256.Int, next State, err error) {
	tokenOut := otherToken(p, tokenIn)
	reserveIn, reserveOut, err := reserves(p, tokenIn, tokenOut)
	if err != nil {
		return nil, State{}, err
	}

	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, State{}, ErrUnroutable
	}

	if amountIn.IsZero() {
		return new(uint256.Int), p.State.Clone(), nil
	}

	feeMultiplier := new(uint256.Int).Sub(basisPointDivisor, uint256.NewInt(uint64(p.FeeBps)))
	amountInWithFee := new(uint256.Int).Mul(amountIn, feeMultiplier)

	numerator := new(uint256.Int).Mul(reserveOut, amountInWithFee)
	denominator := new(uint256.Int).Mul(reserveIn, basisPointDivisor)
	denominator.Add(denominator, amountInWithFee)

	out := new(uint256.Int).Div(numerator, denominator)

	if out.Cmp(reserveOut) >= 0 {
		return nil, State{}, ErrUnroutable
	}

	newReserveIn := new(uint256.Int).Add(reserveIn, amountIn)
	newReserveOut := new(uint256.Int).Sub(reserveOut, out)

	next = p.State.Clone()
	if tokenIn == p.Token0 {
		next.Reserve0, next.Reserve1 = newReserveIn, newReserveOut
	} else {
		next.Reserve1, next.Reserve0 = newReserveIn, newReserveOut
	}

	return out, next, nil
}
