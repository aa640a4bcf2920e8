// Package domain holds the identifiers shared by every layer of the engine:
// tokens, exchanges, and pool indices. It exists so the pool-math packages
// and the graph package can agree on identity without importing each other.
package domain

import "fmt"

// TokenID is the dense integer identifier for a token, 1:1 with the executor
// contract's own token table. The reference universe assigns 0..=5.
type TokenID uint8

const (
	USDC TokenID = iota
	WETH
	WBTC
	ARB
	USDT
	DAI
)

// TwoHopSentinel marks token2 in a dispatch payload as "no third hop".
const TwoHopSentinel TokenID = 0xFF

// Exchange tags the DEX family a pool belongs to.
type Exchange uint8

const (
	UniswapV3 Exchange = iota
	Camelot
	Sushi
	Chronos
)

func (e Exchange) String() string {
	switch e {
	case UniswapV3:
		return "uniswap-v3"
	case Camelot:
		return "camelot"
	case Sushi:
		return "sushi"
	case Chronos:
		return "chronos"
	default:
		return fmt.Sprintf("exchange(%d)", uint8(e))
	}
}

// IsV2Style reports whether the exchange uses the constant-product model.
// UniswapV3 is the only concentrated-liquidity family in the universe.
func (e Exchange) IsV2Style() bool {
	return e != UniswapV3
}

// PoolID is the canonical, stable index of a pool in the Graph's pool slice.
type PoolID uint32

// NoPool is the sentinel PoolID (the largest uint32) for "no pool found".
const NoPool PoolID = 1<<32 - 1
