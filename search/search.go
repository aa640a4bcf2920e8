// Package search enumerates 2- and 3-hop arbitrage cycles touching the
// tokens a pending swap just moved, evaluates each at a fixed grid of input
// amounts, and returns the single most profitable cycle above the
// configured threshold. If the wall-clock budget runs out first, it returns
// the best candidate found so far (or nothing) alongside
// ErrDeadlineExceeded. This is the King-of-the-Hill search strategy the teacher's
// chains/base/grapher.Graph documents (the repo's own notes: "FindArbitrageCycles
// uses the king-of-the-hill algorithm... because a single chosen cycle
// invalidates the others, so what's the point" of enumerating all paths),
// adapted here to the engine's fixed 2/3-hop shape and microsecond budget.
package search

import (
	"errors"
	"time"

	"github.com/holiman/uint256"

	"github.com/fulcrum-dex/fulcrum/bitset"
	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/graph"
	"github.com/fulcrum-dex/fulcrum/simulator"
)

// ErrDeadlineExceeded is a soft error: the caller should still dispatch
// whatever the returned Opportunity (if non-nil) holds.
var ErrDeadlineExceeded = errors.New("search: deadline exceeded")

// Config configures one Search instance. It is built once at startup and
// reused across every pending-tx event; none of its fields are mutated
// after construction, so a single instance is safe to share across the
// worker's event loop (there is only ever one worker, so this needs no
// further synchronization).
type Config struct {
	// BaseTokens anchors 3-cycles; must be a subset of the graph's
	// configured base tokens (USDC, WETH in the reference universe).
	BaseTokens []domain.TokenID

	// Grid is the fixed set of candidate input amounts, in base-token
	// units, evaluated for every candidate cycle (§4.6). The engine does
	// not solve for the profit-maximizing input analytically; it samples
	// this grid and takes the best.
	Grid []*uint256.Int

	// MinProfitThreshold is the minimum profit, in base-token units,
	// required before an opportunity is reported at all.
	MinProfitThreshold *uint256.Int

	// Deadline bounds the wall-clock cost of a single Search call. When it
	// elapses mid-grid, the best candidate found so far (if positive) is
	// returned alongside ErrDeadlineExceeded.
	Deadline time.Duration
}

// Search evaluates the fixed 2-/3-hop candidate cycles that touch hotTokens
// and returns the single best, tie-broken per §4.6: highest absolute
// profit; on an exact tie, the cheaper-to-execute cycle (2-hop over 3-hop,
// V2 over V3 within a hop).
type Search struct {
	cfg Config
	// touched is a reusable scratch bitset marking which pools have already
	// been evaluated in the current call, so widely-shared pairs are never
	// rescanned — the propagation scheme referenced in §1/§2 of the spec.
	touched bitset.BitSet
}

// New constructs a Search over a graph with the given pool count, sized so
// the scratch bitset never needs to grow on the hot path.
func New(cfg Config, poolCount int) *Search {
	return &Search{
		cfg:     cfg,
		touched: bitset.NewBitSet(uint64(poolCount)),
	}
}

type candidate struct {
	cycle  graph.Cycle
	amount *uint256.Int
	profit *uint256.Int
}

// better reports whether c is strictly preferred over best under the
// tie-break rules of §4.6: higher absolute profit wins; on an exact tie,
// the lower-gas-proxy cycle wins (fewer hops, then fewer V3 hops within
// the same hop count, since a V3 swap is materially more expensive to
// execute on-chain than a V2 swap).
func better(g *graph.Graph, c, best candidate) bool {
	if best.cycle.Hops == nil {
		return true
	}
	cmp := c.profit.Cmp(best.profit)
	if cmp != 0 {
		return cmp > 0
	}
	if len(c.cycle.Hops) != len(best.cycle.Hops) {
		return len(c.cycle.Hops) < len(best.cycle.Hops) // 2-hop preferred over 3-hop
	}
	return gasWeight(g, c.cycle) < gasWeight(g, best.cycle)
}

// gasWeight counts V3 hops in the cycle; fewer V3 hops is cheaper gas.
func gasWeight(g *graph.Graph, c graph.Cycle) int {
	weight := 0
	for _, hop := range c.Hops {
		if p, ok := g.Pool(hop.Pool); ok && p.Kind == graph.KindV3 {
			weight++
		}
	}
	return weight
}

// Search implements simulator.Searcher.
func (s *Search) Search(g *graph.Graph, hotTokens []domain.TokenID) (*simulator.Opportunity, error) {
	deadline := time.Now().Add(s.cfg.Deadline)
	s.touched.Clear()

	var best candidate

	softDeadlineHit := false

	evaluate := func(cycle graph.Cycle) {
		if time.Now().After(deadline) {
			softDeadlineHit = true
			return
		}
		for _, amount := range s.cfg.Grid {
			out, ok := simulateCycle(g, cycle, amount)
			if !ok {
				continue
			}
			if out.Cmp(amount) <= 0 {
				continue // non-profitable at this grid point
			}
			profit := new(uint256.Int).Sub(out, amount)
			cand := candidate{cycle: cycle, amount: amount, profit: profit}
			if better(g, cand, best) {
				best = cand
			}
		}
	}

	for _, hot := range hotTokens {
		if softDeadlineHit {
			break
		}
		for _, p1 := range g.PoolsTouching(hot) {
			if softDeadlineHit {
				break
			}
			if s.touched.IsSet(uint64(p1)) {
				continue
			}
			other := g.OtherToken(p1, hot)
			for _, p2 := range g.PoolsForPair(hot, other) {
				if p2 == p1 {
					continue
				}
				evaluate(graph.Cycle{Hops: []graph.Hop{
					{Pool: p1, TokenIn: hot, TokenOut: other},
					{Pool: p2, TokenIn: other, TokenOut: hot},
				}})
			}
			s.touched.Set(uint64(p1))
		}
	}

	if !softDeadlineHit {
		s.search3Hop(g, hotTokens, evaluate)
	}

	if best.cycle.Hops == nil {
		if softDeadlineHit {
			return nil, ErrDeadlineExceeded
		}
		return nil, nil
	}

	if best.profit.Cmp(s.cfg.MinProfitThreshold) <= 0 {
		if softDeadlineHit {
			return nil, ErrDeadlineExceeded
		}
		return nil, nil
	}

	opp := &simulator.Opportunity{Cycle: best.cycle, AmountIn: best.amount, Profit: best.profit}
	if softDeadlineHit {
		return opp, ErrDeadlineExceeded
	}
	return opp, nil
}

// search3Hop enumerates B -> P1 -> X -> P2 -> Y -> P3 -> B cycles anchored
// on a configured base token, requiring at least one hop to touch a hot
// token (otherwise nothing about the graph changed since it was last
// evaluated).
func (s *Search) search3Hop(g *graph.Graph, hotTokens []domain.TokenID, evaluate func(graph.Cycle)) {
	hot := make(map[domain.PoolID]bool)
	for _, t := range hotTokens {
		for _, p := range g.PoolsTouching(t) {
			hot[p] = true
		}
	}

	for _, base := range s.cfg.BaseTokens {
		for _, p1 := range g.PoolsTouching(base) {
			x := g.OtherToken(p1, base)
			if x == base {
				continue
			}
			for _, p2 := range g.PoolsTouching(x) {
				if p2 == p1 {
					continue
				}
				y := g.OtherToken(p2, x)
				if y == base || y == x {
					continue
				}
				for _, p3 := range g.PoolsForPair(y, base) {
					if p3 == p1 || p3 == p2 {
						continue
					}
					if !hot[p1] && !hot[p2] && !hot[p3] {
						continue
					}
					evaluate(graph.Cycle{Hops: []graph.Hop{
						{Pool: p1, TokenIn: base, TokenOut: x},
						{Pool: p2, TokenIn: x, TokenOut: y},
						{Pool: p3, TokenIn: y, TokenOut: base},
					}})
				}
			}
		}
	}
}

// simulateCycle walks a cycle's hops against the graph's current (already
// speculatively-mutated) state without touching it, chaining each hop's
// output into the next hop's input.
func simulateCycle(g *graph.Graph, cycle graph.Cycle, amountIn *uint256.Int) (*uint256.Int, bool) {
	amount := amountIn
	for _, hop := range cycle.Hops {
		out, _, err := g.Quote(hop.Pool, hop.TokenIn, amount)
		if err != nil {
			return nil, false
		}
		amount = out
	}
	return amount, true
}
