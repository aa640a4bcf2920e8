package simulator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/graph"
	v2pool "github.com/fulcrum-dex/fulcrum/pools/v2"
)

func u256(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New([]graph.Pool{
		{
			Address:  common.HexToAddress("0x1"),
			Exchange: domain.Sushi,
			Token0:   domain.USDC,
			Token1:   domain.WETH,
			Kind:     graph.KindV2,
			V2:       v2pool.State{Reserve0: u256("100000000"), Reserve1: u256("50000000000000000000")},
		},
	}, []domain.TokenID{domain.USDC, domain.WETH})
	require.NoError(t, err)
	return g
}

type stubSearcher struct {
	called    bool
	hotTokens []domain.TokenID
	opp       *Opportunity
	err       error
}

func (s *stubSearcher) Search(g *graph.Graph, hotTokens []domain.TokenID) (*Opportunity, error) {
	s.called = true
	s.hotTokens = hotTokens
	return s.opp, s.err
}

func TestSimulate_UnknownPoolIsSilentDrop(t *testing.T) {
	g := testGraph(t)
	searcher := &stubSearcher{}

	outcome, err := Simulate(g, PendingSwap{
		PoolAddress: common.HexToAddress("0xdead"),
		TokenIn:     domain.USDC,
		AmountIn:    u256("1"),
	}, searcher)

	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.False(t, searcher.called)
}

func TestSimulate_UnroutableSwapIsSilentDrop(t *testing.T) {
	g := testGraph(t)
	searcher := &stubSearcher{}

	outcome, err := Simulate(g, PendingSwap{
		PoolAddress: common.HexToAddress("0x1"),
		TokenIn:     domain.ARB, // not one of the pool's two tokens
		AmountIn:    u256("1"),
	}, searcher)

	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	assert.False(t, searcher.called)
}

// TestSimulate_RestoresGraphState is the specification's core isolation
// invariant (§4.5, scenario 5): after Simulate returns, every pool's state
// must be byte-identical to what it was before the speculative swap, search
// included.
func TestSimulate_RestoresGraphState(t *testing.T) {
	g := testGraph(t)
	before, ok := g.Pool(0)
	require.True(t, ok)

	searcher := &stubSearcher{opp: &Opportunity{
		Cycle:    graph.Cycle{},
		AmountIn: u256("1"),
		Profit:   u256("1"),
	}}

	outcome, err := Simulate(g, PendingSwap{
		PoolAddress: common.HexToAddress("0x1"),
		TokenIn:     domain.USDC,
		AmountIn:    u256("1000000"),
	}, searcher)

	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	require.NotNil(t, outcome.Opportunity)
	assert.True(t, searcher.called)
	assert.ElementsMatch(t, []domain.TokenID{domain.USDC, domain.WETH}, searcher.hotTokens)

	after, ok := g.Pool(0)
	require.True(t, ok)
	assert.Equal(t, before.V2.Reserve0.String(), after.V2.Reserve0.String())
	assert.Equal(t, before.V2.Reserve1.String(), after.V2.Reserve1.String())
}

// TestSimulate_SoftSearchErrorStillDispatchesOpportunity covers the
// deadline-exceeded case (§7): a Searcher that returns both a non-nil
// Opportunity and an error (its best-so-far candidate when the wall-clock
// budget ran out) must still have that opportunity surfaced, not discarded
// as a hard failure.
func TestSimulate_SoftSearchErrorStillDispatchesOpportunity(t *testing.T) {
	g := testGraph(t)

	searcher := &stubSearcher{
		opp: &Opportunity{Cycle: graph.Cycle{}, AmountIn: u256("1"), Profit: u256("1")},
		err: assert.AnError,
	}

	outcome, err := Simulate(g, PendingSwap{
		PoolAddress: common.HexToAddress("0x1"),
		TokenIn:     domain.USDC,
		AmountIn:    u256("1000000"),
	}, searcher)

	assert.Error(t, err)
	assert.True(t, outcome.Applied)
	require.NotNil(t, outcome.Opportunity)
	assert.Equal(t, "1", outcome.Opportunity.Profit.String())
}

func TestSimulate_SearchErrorPropagatesAndStillReverts(t *testing.T) {
	g := testGraph(t)
	before, ok := g.Pool(0)
	require.True(t, ok)

	searcher := &stubSearcher{err: assert.AnError}

	_, err := Simulate(g, PendingSwap{
		PoolAddress: common.HexToAddress("0x1"),
		TokenIn:     domain.USDC,
		AmountIn:    u256("1000000"),
	}, searcher)

	assert.Error(t, err)

	after, ok := g.Pool(0)
	require.True(t, ok)
	assert.Equal(t, before.V2.Reserve0.String(), after.V2.Reserve0.String())
}
