package graph

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulcrum-dex/fulcrum/domain"
	v2pool "github.com/fulcrum-dex/fulcrum/pools/v2"
)

func u256(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testPools() []Pool {
	return []Pool{
		{
			Address:  common.HexToAddress("0x1"),
			Exchange: domain.Sushi,
			Token0:   domain.USDC,
			Token1:   domain.WETH,
			Kind:     KindV2,
			V2:       v2pool.State{Reserve0: u256("100000000"), Reserve1: u256("50000000000000000000")},
		},
		{
			Address:  common.HexToAddress("0x2"),
			Exchange: domain.Sushi,
			Token0:   domain.WETH,
			Token1:   domain.ARB,
			Kind:     KindV2,
			V2:       v2pool.State{Reserve0: u256("50000000000000000000"), Reserve1: u256("200000000000000000000000")},
		},
		{
			// zero liquidity: excluded from the graph entirely.
			Address:  common.HexToAddress("0x3"),
			Exchange: domain.Sushi,
			Token0:   domain.USDC,
			Token1:   domain.ARB,
			Kind:     KindV2,
			V2:       v2pool.State{Reserve0: uint256.NewInt(0), Reserve1: uint256.NewInt(0)},
		},
	}
}

func TestNew_AssignsStableIDsAndSkipsZeroLiquidity(t *testing.T) {
	g, err := New(testPools(), []domain.TokenID{domain.USDC, domain.WETH})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len(), "pool at index 2 has zero reserves and must be excluded")
	assert.Equal(t, 3, g.PoolCount(), "index space stays dense even past the skipped pool")

	id, ok := g.FindPool(common.HexToAddress("0x1"))
	require.True(t, ok)
	assert.EqualValues(t, 0, id)

	id2, ok := g.FindPool(common.HexToAddress("0x2"))
	require.True(t, ok)
	assert.EqualValues(t, 1, id2)

	_, ok = g.FindPool(common.HexToAddress("0x3"))
	assert.False(t, ok)
}

func TestNew_DuplicateAddressFails(t *testing.T) {
	pools := testPools()
	pools[1].Address = pools[0].Address
	_, err := New(pools, nil)
	assert.Error(t, err)
}

func TestAdjacency(t *testing.T) {
	g, err := New(testPools(), nil)
	require.NoError(t, err)

	touchingWETH := g.PoolsTouching(domain.WETH)
	assert.ElementsMatch(t, []domain.PoolID{0, 1}, touchingWETH)

	pair := g.PoolsForPair(domain.USDC, domain.WETH)
	assert.Equal(t, []domain.PoolID{0}, pair)

	assert.Empty(t, g.PoolsForPair(domain.USDC, domain.ARB))
}

func TestBaseTokens(t *testing.T) {
	g, err := New(testPools(), []domain.TokenID{domain.USDC, domain.WETH})
	require.NoError(t, err)

	assert.True(t, g.IsBaseToken(domain.USDC))
	assert.True(t, g.IsBaseToken(domain.WETH))
	assert.False(t, g.IsBaseToken(domain.ARB))
	assert.ElementsMatch(t, []domain.TokenID{domain.USDC, domain.WETH}, g.BaseTokens())
}

func TestQuote_DispatchesByKind(t *testing.T) {
	g, err := New(testPools(), nil)
	require.NoError(t, err)

	out, delta, err := g.Quote(0, domain.USDC, u256("1000000"))
	require.NoError(t, err)
	assert.Equal(t, "493579017198530649", out.String())
	assert.Equal(t, KindV2, delta.Kind)
}

func TestQuote_UnknownPool(t *testing.T) {
	g, err := New(testPools(), nil)
	require.NoError(t, err)
	_, _, err = g.Quote(domain.PoolID(999), domain.USDC, u256("1"))
	assert.Error(t, err)
}

// TestSnapshotApplyRevert_RoundTrip exercises the invariant that a pool's
// state is byte-identical after Apply followed by Revert of the prior
// Snapshot: the core correctness property the simulator depends on.
func TestSnapshotApplyRevert_RoundTrip(t *testing.T) {
	g, err := New(testPools(), nil)
	require.NoError(t, err)

	before, ok := g.Pool(0)
	require.True(t, ok)
	snapshot := g.Snapshot(0)

	_, delta, err := g.Quote(0, domain.USDC, u256("1000000"))
	require.NoError(t, err)
	g.Apply(0, delta)

	afterApply, ok := g.Pool(0)
	require.True(t, ok)
	assert.NotEqual(t, before.V2.Reserve0.String(), afterApply.V2.Reserve0.String())

	g.Revert(0, snapshot)

	afterRevert, ok := g.Pool(0)
	require.True(t, ok)
	assert.Equal(t, before.V2.Reserve0.String(), afterRevert.V2.Reserve0.String())
	assert.Equal(t, before.V2.Reserve1.String(), afterRevert.V2.Reserve1.String())
}

func TestOtherToken(t *testing.T) {
	g, err := New(testPools(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.WETH, g.OtherToken(0, domain.USDC))
	assert.Equal(t, domain.USDC, g.OtherToken(0, domain.WETH))
}
