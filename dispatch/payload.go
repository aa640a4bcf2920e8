// Package dispatch packs a chosen arbitrage cycle into the compact 128-bit
// payload the on-chain executor contract expects (§4.8). The calldata for
// the executor's swap/flashSwap entry points is built by the executor
// package. There is no teacher precedent for payload packing in this pack
// (the teacher only ever reads chain state, never writes to it); this
// package is new and uses only encoding/binary.
package dispatch

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/graph"
)

// ErrInvalidPayload is returned when a payload fails to decode into a
// well-formed 2- or 3-hop shape.
var ErrInvalidPayload = errors.New("dispatch: invalid payload")

// Payload mirrors the bit layout in §4.8. For a 2-hop cycle Exchange2 and
// Fee2 are zero and Token2 carries the 0xFF sentinel.
type Payload struct {
	Exchange [3]domain.Exchange
	Token    [3]domain.TokenID
	Fee      [3]uint16
}

// exchangeID maps the engine's Exchange enum onto the executor's own ids,
// which happen to already coincide (§4.8), but are kept as an explicit
// table rather than a type-cast so the two can diverge safely later.
var exchangeID = map[domain.Exchange]uint8{
	domain.UniswapV3: 0,
	domain.Camelot:   1,
	domain.Sushi:     2,
	domain.Chronos:   3,
}

var idToExchange = map[uint8]domain.Exchange{
	0: domain.UniswapV3,
	1: domain.Camelot,
	2: domain.Sushi,
	3: domain.Chronos,
}

// Encode packs Payload into the little-endian 128-bit layout from §4.8,
// returned as the low 16 bytes of a uint128 (bytes[0] is bit 0).
func Encode(p Payload) ([16]byte, error) {
	var out [16]byte

	for i := 0; i < 3; i++ {
		id, ok := exchangeID[p.Exchange[i]]
		if !ok && i < 2 {
			return out, fmt.Errorf("%w: unknown exchange %v at hop %d", ErrInvalidPayload, p.Exchange[i], i)
		}
		out[i] = id
	}

	out[3] = uint8(p.Token[0])
	out[4] = uint8(p.Token[1])
	out[5] = uint8(p.Token[2])

	binary.LittleEndian.PutUint16(out[6:8], p.Fee[0])
	binary.LittleEndian.PutUint16(out[8:10], p.Fee[1])
	binary.LittleEndian.PutUint16(out[10:12], p.Fee[2])
	// bytes [12:16] are the reserved field and stay zero.

	return out, nil
}

// Decode is the inverse of Encode; decode(encode(p)) == p is a required
// invariant (§8).
func Decode(raw [16]byte) (Payload, error) {
	var p Payload

	for i := 0; i < 3; i++ {
		ex, ok := idToExchange[raw[i]]
		if !ok {
			return Payload{}, fmt.Errorf("%w: unknown exchange id %d at hop %d", ErrInvalidPayload, raw[i], i)
		}
		p.Exchange[i] = ex
	}

	p.Token[0] = domain.TokenID(raw[3])
	p.Token[1] = domain.TokenID(raw[4])
	p.Token[2] = domain.TokenID(raw[5])

	p.Fee[0] = binary.LittleEndian.Uint16(raw[6:8])
	p.Fee[1] = binary.LittleEndian.Uint16(raw[8:10])
	p.Fee[2] = binary.LittleEndian.Uint16(raw[10:12])

	return p, nil
}

// IsTwoHop reports whether the payload encodes a 2-hop cycle (token2 ==
// the 0xFF sentinel).
func (p Payload) IsTwoHop() bool {
	return p.Token[2] == domain.TwoHopSentinel
}

// Validate checks internal consistency: a 2-hop payload's third exchange
// and fee must be zero, and a 3-hop payload's token2 must not collide with
// the sentinel.
func (p Payload) Validate() error {
	if p.IsTwoHop() {
		if p.Exchange[2] != domain.UniswapV3 || p.Fee[2] != 0 {
			return fmt.Errorf("%w: 2-hop payload must zero hop 2's exchange/fee", ErrInvalidPayload)
		}
		return nil
	}
	if p.Token[2] == domain.TwoHopSentinel {
		return fmt.Errorf("%w: 3-hop payload cannot reuse the 2-hop sentinel", ErrInvalidPayload)
	}
	return nil
}

// FromCycle builds a dispatch Payload from a chosen arbitrage cycle, using
// the graph to resolve each hop's exchange and fee tier.
func FromCycle(g *graph.Graph, cycle graph.Cycle) (Payload, error) {
	if len(cycle.Hops) != 2 && len(cycle.Hops) != 3 {
		return Payload{}, fmt.Errorf("%w: cycle must have 2 or 3 hops, got %d", ErrInvalidPayload, len(cycle.Hops))
	}

	var p Payload
	p.Token[2] = domain.TwoHopSentinel

	for i, hop := range cycle.Hops {
		pool, ok := g.Pool(hop.Pool)
		if !ok {
			return Payload{}, fmt.Errorf("%w: pool %d not found", ErrInvalidPayload, hop.Pool)
		}
		p.Exchange[i] = pool.Exchange
		p.Token[i] = hop.TokenIn
		p.Fee[i] = feeOf(pool)
	}

	return p, p.Validate()
}

func feeOf(p graph.Pool) uint16 {
	if p.Kind == graph.KindV3 {
		return uint16(p.V3.Fee)
	}
	return uint16(0) // V2-style fee tiers are implicit on-chain, not carried in the payload
}
