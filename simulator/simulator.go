// Package simulator applies a single pending swap to the graph, invokes the
// arbitrage search against the tokens it touched, and unconditionally
// restores the graph to its pre-swap state before returning. It is the only
// writer of graph.Pool state while a pending-tx event is in flight (§4.5).
//
// Grounded on the teacher's protocols/uniswapv2/calculator.SimulateSwap
// (quote-then-apply-then-return-new-state) pattern, lifted one level up to
// operate on the whole Graph rather than a single Pool, and closed over a
// Searcher collaborator instead of being called directly by a grapher.
package simulator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/graph"
)

// PendingSwap is the decoded, pre-confirmation transaction delivered by the
// sequencer feed collaborator (§6): a single exact-in swap against one pool.
type PendingSwap struct {
	PoolAddress common.Address
	TokenIn     domain.TokenID
	AmountIn    *uint256.Int
	BlockHint   uint64
}

// Searcher is the collaborator invoked once the speculative swap has been
// applied, with the set of tokens whose price just moved. It is satisfied
// by *search.Search.
type Searcher interface {
	Search(g *graph.Graph, hotTokens []domain.TokenID) (*Opportunity, error)
}

// Opportunity is a profitable cycle found by a Searcher, ready for dispatch.
type Opportunity struct {
	Cycle    graph.Cycle
	AmountIn *uint256.Int
	Profit   *uint256.Int
}

// Outcome is the result of simulating one pending swap.
type Outcome struct {
	// Applied is false when the pool wasn't in the universe or the swap
	// itself was Unroutable (no search was performed), and also when the
	// search returned an error without an opportunity.
	Applied     bool
	Opportunity *Opportunity
}

// Simulate is the single entry point described in §4.5:
//  1. resolve the pool; drop silently if unknown
//  2. snapshot its state
//  3. apply the swap
//  4. invoke the searcher over the affected tokens
//  5. unconditionally restore the snapshot
func Simulate(g *graph.Graph, swap PendingSwap, searcher Searcher) (Outcome, error) {
	id, ok := g.FindPool(swap.PoolAddress)
	if !ok {
		return Outcome{}, nil
	}

	snapshot := g.Snapshot(id)

	amountOut, delta, err := g.Quote(id, swap.TokenIn, swap.AmountIn)
	if err != nil {
		// Unroutable (or any pool-math error): the pending swap itself
		// cannot execute against current state, so there is nothing new
		// to search for. This is an expected, silent drop (§7).
		return Outcome{}, nil
	}
	_ = amountOut

	g.Apply(id, delta)
	defer g.Revert(id, snapshot)

	tokenOut := g.OtherToken(id, swap.TokenIn)
	hotTokens := []domain.TokenID{swap.TokenIn, tokenOut}

	opp, err := searcher.Search(g, hotTokens)
	if err != nil {
		// A Searcher may return a soft error (e.g. search.ErrDeadlineExceeded)
		// alongside a non-nil Opportunity: the grid evaluation ran out of
		// wall-clock budget but still found the best-so-far candidate, which
		// must still be dispatched (§7). Only a nil opportunity here means
		// there is genuinely nothing to report.
		if opp == nil {
			return Outcome{}, fmt.Errorf("simulator: search failed: %w", err)
		}
		return Outcome{Applied: true, Opportunity: opp}, err
	}

	return Outcome{Applied: true, Opportunity: opp}, nil
}
