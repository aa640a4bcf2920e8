package dispatch

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/graph"
	v2pool "github.com/fulcrum-dex/fulcrum/pools/v2"
	v3pool "github.com/fulcrum-dex/fulcrum/pools/v3"
)

func u256(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

// TestDecode_ConcreteScenario reproduces the specification's worked
// 2-hop payload example byte-for-byte: exchanges [Camelot, Camelot,
// UniswapV3(zeroed)], tokens [WETH, WBTC, sentinel], fees [500, 500, 0].
func TestDecode_ConcreteScenario(t *testing.T) {
	raw := [16]byte{0x01, 0x01, 0x00, 0x01, 0x02, 0xFF, 0xF4, 0x01, 0xF4, 0x01, 0x00, 0x00}

	p, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, [3]domain.Exchange{domain.Camelot, domain.Camelot, domain.UniswapV3}, p.Exchange)
	assert.Equal(t, [3]domain.TokenID{domain.WETH, domain.WBTC, domain.TwoHopSentinel}, p.Token)
	assert.Equal(t, [3]uint16{500, 500, 0}, p.Fee)
	assert.True(t, p.IsTwoHop())
	assert.NoError(t, p.Validate())
}

// TestRoundTrip_DecodeEncode is the invariant required by §8: decoding
// then re-encoding a well-formed payload reproduces the original bytes.
func TestRoundTrip_DecodeEncode(t *testing.T) {
	raw := [16]byte{0x01, 0x01, 0x00, 0x01, 0x02, 0xFF, 0xF4, 0x01, 0xF4, 0x01, 0x00, 0x00}

	p, err := Decode(raw)
	require.NoError(t, err)

	got, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

// TestRoundTrip_EncodeDecode_ThreeHop reproduces the specification's
// concrete scenario 4: encoding {exchanges=[0,0,3], tokens=[0,1,2],
// fees=[500,500,100]} into a u128 and decoding it back must reproduce
// every field exactly.
func TestRoundTrip_EncodeDecode_ThreeHop(t *testing.T) {
	p := Payload{
		Exchange: [3]domain.Exchange{domain.UniswapV3, domain.UniswapV3, domain.Chronos},
		Token:    [3]domain.TokenID{domain.USDC, domain.WETH, domain.WBTC},
		Fee:      [3]uint16{500, 500, 100},
	}

	raw, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.False(t, got.IsTwoHop())
}

func TestDecode_UnknownExchangeID(t *testing.T) {
	var raw [16]byte
	raw[0] = 0xAA // not a valid exchange id
	_, err := Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestValidate_TwoHopMustZeroThirdHop(t *testing.T) {
	p := Payload{
		Exchange: [3]domain.Exchange{domain.Sushi, domain.Chronos, domain.Camelot},
		Token:    [3]domain.TokenID{domain.USDC, domain.WETH, domain.TwoHopSentinel},
	}
	assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
}

func TestValidate_ThreeHopCannotReuseSentinel(t *testing.T) {
	p := Payload{
		Exchange: [3]domain.Exchange{domain.Sushi, domain.Chronos, domain.Camelot},
		Token:    [3]domain.TokenID{domain.USDC, domain.WETH, domain.TwoHopSentinel},
		Fee:      [3]uint16{0, 0, 1},
	}
	assert.ErrorIs(t, p.Validate(), ErrInvalidPayload)
}

func testCycleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New([]graph.Pool{
		{
			Address:  common.HexToAddress("0x1"),
			Exchange: domain.Sushi,
			Token0:   domain.USDC,
			Token1:   domain.WETH,
			Kind:     graph.KindV2,
			V2:       v2pool.State{Reserve0: u256("1000000000000"), Reserve1: u256("500000000000000000000")},
		},
		{
			Address:  common.HexToAddress("0x2"),
			Exchange: domain.UniswapV3,
			Token0:   domain.WETH,
			Token1:   domain.USDC,
			Kind:     graph.KindV3,
			V3: v3pool.State{
				SqrtPriceX96: u256("2910392625228200618462908431436"),
				Liquidity:    u256("3055895843484221589591460"),
				Fee:          500,
			},
		},
	}, nil)
	require.NoError(t, err)
	return g
}

func TestFromCycle_TwoHop(t *testing.T) {
	g := testCycleGraph(t)
	cycle := graph.Cycle{Hops: []graph.Hop{
		{Pool: 0, TokenIn: domain.USDC, TokenOut: domain.WETH},
		{Pool: 1, TokenIn: domain.WETH, TokenOut: domain.USDC},
	}}

	p, err := FromCycle(g, cycle)
	require.NoError(t, err)
	assert.Equal(t, domain.Sushi, p.Exchange[0])
	assert.Equal(t, domain.UniswapV3, p.Exchange[1])
	assert.Equal(t, domain.USDC, p.Token[0])
	assert.Equal(t, domain.WETH, p.Token[1])
	assert.Equal(t, domain.TwoHopSentinel, p.Token[2])
	assert.EqualValues(t, 500, p.Fee[1])
	assert.True(t, p.IsTwoHop())
}

func TestFromCycle_RejectsWrongHopCount(t *testing.T) {
	g := testCycleGraph(t)
	cycle := graph.Cycle{Hops: []graph.Hop{{Pool: 0, TokenIn: domain.USDC, TokenOut: domain.WETH}}}
	_, err := FromCycle(g, cycle)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestFromCycle_UnknownPool(t *testing.T) {
	g := testCycleGraph(t)
	cycle := graph.Cycle{Hops: []graph.Hop{
		{Pool: 0, TokenIn: domain.USDC, TokenOut: domain.WETH},
		{Pool: 99, TokenIn: domain.WETH, TokenOut: domain.USDC},
	}}
	_, err := FromCycle(g, cycle)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
