// Package graph owns the in-memory price graph: a fixed, token-indexed
// adjacency of pools built once at startup and subsequently mutated only by
// the simulator (speculative, reverted) and the refresher (bulk,
// authoritative). It is the Graph and Pool data model of §3/§4.4 of the
// specification, grounded on the teacher's chains/base/grapher.Graph
// (pre-computed lookup maps over a stable pool slice) and chains/types.go's
// TokenPoolGraph interface, generalized from the teacher's per-protocol
// indexer inputs down to the engine's own two-variant Pool.
package graph

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/fulcrum-dex/fulcrum/domain"
	v2pool "github.com/fulcrum-dex/fulcrum/pools/v2"
	v3pool "github.com/fulcrum-dex/fulcrum/pools/v3"
)

// Kind discriminates which pool model a Pool's State belongs to. This is
// the "sum-typed pool state" called for in design note 9.1: a tagged
// variant dispatched by a switch, never a virtual call, on the hot path.
type Kind uint8

const (
	KindV2 Kind = iota
	KindV3
)

// Pool is the Graph's edge: identity fields common to both pool models plus
// exactly one of V2/V3, selected by Kind.
type Pool struct {
	ID       domain.PoolID
	Address  common.Address
	Exchange domain.Exchange
	Token0   domain.TokenID // always the lower-address token, by convention
	Token1   domain.TokenID
	Kind     Kind
	V2       v2pool.State
	V3       v3pool.State
}

// State is a kind-tagged snapshot of a pool's mutable half, used both as the
// result of a Quote (the delta to Apply) and as the Snapshot a Simulator
// restores on Revert.
type State struct {
	Kind Kind
	V2   v2pool.State
	V3   v3pool.State
}

func stateOf(p Pool) State {
	switch p.Kind {
	case KindV2:
		return State{Kind: KindV2, V2: p.V2.Clone()}
	default:
		return State{Kind: KindV3, V3: p.V3.Clone()}
	}
}

// Hop is one leg of a Cycle: swap tokenIn for tokenOut through pool.
type Hop struct {
	Pool     domain.PoolID
	TokenIn  domain.TokenID
	TokenOut domain.TokenID
}

// Cycle is an ordered sequence of 2 or 3 hops that starts and ends at the
// same token, per §3 of the specification.
type Cycle struct {
	Hops []Hop
}

// BaseToken is the token the cycle starts and ends at.
func (c Cycle) BaseToken() domain.TokenID {
	return c.Hops[0].TokenIn
}

type pairKey struct {
	a, b domain.TokenID
}

func makePairKey(a, b domain.TokenID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Graph is the engine's single, authoritative price graph. It is owned
// single-threadedly by the orchestrator's worker: no field is ever touched
// concurrently, so none of the lookups or mutators below take a lock.
type Graph struct {
	pools      []Pool
	byAddress  map[common.Address]domain.PoolID
	byToken    map[domain.TokenID]mapset.Set[domain.PoolID]
	byPair     map[pairKey]mapset.Set[domain.PoolID]
	baseTokens map[domain.TokenID]bool
	// activeCount excludes the zero-value placeholders New leaves behind at
	// the index of any pool filtered out for zero liquidity, so pools with
	// the largest index still keep their stable PoolID.
	activeCount int
}

// New builds a Graph from a fixed pool universe. Pools are assigned stable
// PoolIDs equal to their index in the input slice; ID fields on the input
// Pools are overwritten to match.
func New(pools []Pool, baseTokens []domain.TokenID) (*Graph, error) {
	g := &Graph{
		pools:      make([]Pool, len(pools)),
		byAddress:  make(map[common.Address]domain.PoolID, len(pools)),
		byToken:    make(map[domain.TokenID]mapset.Set[domain.PoolID]),
		byPair:     make(map[pairKey]mapset.Set[domain.PoolID]),
		baseTokens: make(map[domain.TokenID]bool, len(baseTokens)),
	}

	for _, t := range baseTokens {
		g.baseTokens[t] = true
	}

	for i, p := range pools {
		id := domain.PoolID(i)
		p.ID = id

		switch p.Kind {
		case KindV2:
			if p.V2.Reserve0 == nil || p.V2.Reserve1 == nil || p.V2.Reserve0.Sign() <= 0 || p.V2.Reserve1.Sign() <= 0 {
				continue // zero-liquidity pools are excluded from the graph entirely
			}
		case KindV3:
			if p.V3.Liquidity == nil || p.V3.Liquidity.IsZero() || !p.V3.Valid() {
				continue
			}
		}

		if _, exists := g.byAddress[p.Address]; exists {
			return nil, fmt.Errorf("graph: duplicate pool address %s", p.Address)
		}

		g.pools[id] = p
		g.byAddress[p.Address] = id
		g.activeCount++

		for _, tok := range []domain.TokenID{p.Token0, p.Token1} {
			set, ok := g.byToken[tok]
			if !ok {
				set = mapset.NewThreadUnsafeSet[domain.PoolID]()
				g.byToken[tok] = set
			}
			set.Add(id)
		}

		key := makePairKey(p.Token0, p.Token1)
		set, ok := g.byPair[key]
		if !ok {
			set = mapset.NewThreadUnsafeSet[domain.PoolID]()
			g.byPair[key] = set
		}
		set.Add(id)
	}

	return g, nil
}

// FindPool resolves a pool by its on-chain address in O(1).
func (g *Graph) FindPool(addr common.Address) (domain.PoolID, bool) {
	id, ok := g.byAddress[addr]
	return id, ok
}

// Pool returns the current state of a pool by id.
func (g *Graph) Pool(id domain.PoolID) (Pool, bool) {
	if int(id) < 0 || int(id) >= len(g.pools) {
		return Pool{}, false
	}
	return g.pools[id], true
}

// PoolsForPair returns every pool (across exchanges) that trades the
// unordered pair (a, b).
func (g *Graph) PoolsForPair(a, b domain.TokenID) []domain.PoolID {
	set, ok := g.byPair[makePairKey(a, b)]
	if !ok {
		return nil
	}
	return set.ToSlice()
}

// PoolsTouching returns every pool with tok as one of its two legs.
func (g *Graph) PoolsTouching(tok domain.TokenID) []domain.PoolID {
	set, ok := g.byToken[tok]
	if !ok {
		return nil
	}
	return set.ToSlice()
}

// IsBaseToken reports whether tok is a configured cycle-anchoring token
// (USDC or WETH in the reference universe).
func (g *Graph) IsBaseToken(tok domain.TokenID) bool {
	return g.baseTokens[tok]
}

// BaseTokens returns the configured anchor tokens.
func (g *Graph) BaseTokens() []domain.TokenID {
	out := make([]domain.TokenID, 0, len(g.baseTokens))
	for t := range g.baseTokens {
		out = append(out, t)
	}
	return out
}

// Quote computes the output of an exact-in swap against pool id without
// mutating the graph. It dispatches on Kind rather than on any interface,
// per design note 9.1.
func (g *Graph) Quote(id domain.PoolID, tokenIn domain.TokenID, amountIn *uint256.Int) (amountOut *uint256.Int, delta State, err error) {
	p, ok := g.Pool(id)
	if !ok {
		return nil, State{}, fmt.Errorf("graph: unknown pool %d", id)
	}

	switch p.Kind {
	case KindV2:
		v2p := v2pool.Pool{ID: p.ID, Address: p.Address, Exchange: p.Exchange, Token0: p.Token0, Token1: p.Token1, FeeBps: feeBpsOf(p), State: p.V2}
		out, next, err := v2pool.Quote(v2p, tokenIn, amountIn)
		if err != nil {
			return nil, State{}, err
		}
		return out, State{Kind: KindV2, V2: next}, nil
	default:
		v3p := v3pool.Pool{ID: p.ID, Address: p.Address, Exchange: p.Exchange, Token0: p.Token0, Token1: p.Token1, State: p.V3}
		out, next, err := v3pool.Quote(v3p, tokenIn, amountIn)
		if err != nil {
			return nil, State{}, err
		}
		return out, State{Kind: KindV3, V3: next}, nil
	}
}

func feeBpsOf(p Pool) uint32 {
	fee, err := v2pool.FeeBps(p.Exchange)
	if err != nil {
		return 0
	}
	return fee
}

// Snapshot captures a pool's current mutable state, for later Revert.
func (g *Graph) Snapshot(id domain.PoolID) State {
	p := g.pools[id]
	return stateOf(p)
}

// Apply overwrites a pool's mutable state with delta. Used both by the
// Simulator (speculative) and by the Refresher, which applies each decoded
// pool state through it (see refresher.Refresher).
func (g *Graph) Apply(id domain.PoolID, delta State) {
	p := &g.pools[id]
	switch delta.Kind {
	case KindV2:
		p.V2 = delta.V2
	case KindV3:
		p.V3 = delta.V3
	}
}

// Revert restores a pool's mutable state from a prior Snapshot. It is
// byte-for-byte identical to Apply; the distinct name documents intent at
// call sites (§4.5: the simulator must leave the graph byte-identical to
// its pre-swap state on exit).
func (g *Graph) Revert(id domain.PoolID, snapshot State) {
	g.Apply(id, snapshot)
}

// OtherToken returns the token on the far side of pool id from tokenIn.
func (g *Graph) OtherToken(id domain.PoolID, tokenIn domain.TokenID) domain.TokenID {
	p := g.pools[id]
	if tokenIn == p.Token0 {
		return p.Token1
	}
	return p.Token0
}

// Len reports how many pools are active in the graph, excluding any
// filtered out for zero liquidity at construction time.
func (g *Graph) Len() int {
	return g.activeCount
}

// PoolCount reports the size of the dense PoolID index space, i.e. how
// large a bitset.BitSet must be to address every pool by id — including
// indices New filtered out, since their PoolID slots are never reused.
func (g *Graph) PoolCount() int {
	return len(g.pools)
}
