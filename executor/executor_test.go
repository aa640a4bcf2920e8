package executor

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulcrum-dex/fulcrum/dispatch"
	"github.com/fulcrum-dex/fulcrum/domain"
)

func testPayload() dispatch.Payload {
	return dispatch.Payload{
		Exchange: [3]domain.Exchange{domain.Sushi, domain.UniswapV3, domain.UniswapV3},
		Token:    [3]domain.TokenID{domain.USDC, domain.WETH, domain.TwoHopSentinel},
		Fee:      [3]uint16{0, 500, 0},
	}
}

func TestBuild_SelectsSwapWhenWalletCoversAmount(t *testing.T) {
	addr := common.HexToAddress("0xexecutor")
	amountIn := uint256.NewInt(1_000_000)
	walletBalance := uint256.NewInt(2_000_000)

	call, err := Build(addr, testPayload(), amountIn, walletBalance)
	require.NoError(t, err)
	assert.Equal(t, addr, call.To)
	require.True(t, len(call.Data) >= 4)
	assert.Equal(t, []byte(swapSelector), call.Data[:4])
}

func TestBuild_SelectsFlashSwapWhenWalletInsufficient(t *testing.T) {
	addr := common.HexToAddress("0xexecutor")
	amountIn := uint256.NewInt(1_000_000)
	walletBalance := uint256.NewInt(0)

	call, err := Build(addr, testPayload(), amountIn, walletBalance)
	require.NoError(t, err)
	assert.Equal(t, []byte(flashSwapSelector), call.Data[:4])
}

func TestBuild_InvalidPayloadFails(t *testing.T) {
	addr := common.HexToAddress("0xexecutor")
	bad := dispatch.Payload{
		Exchange: [3]domain.Exchange{domain.Exchange(200), domain.UniswapV3, domain.UniswapV3},
	}
	_, err := Build(addr, bad, uint256.NewInt(1), uint256.NewInt(1))
	assert.Error(t, err)
}

// TestBuild_PackedPayloadWordPreservesLittleEndianLayout guards the
// byte-order boundary between dispatch.Encode's little-endian layout and
// the ABI's big-endian uint128 word: the second word of the packed call
// data (amountIn is the first) must equal the payload's 16 little-endian
// bytes, byte-reversed, left-padded to 32 bytes.
func TestBuild_PackedPayloadWordPreservesLittleEndianLayout(t *testing.T) {
	addr := common.HexToAddress("0xexecutor")
	payload := testPayload()

	raw, err := dispatch.Encode(payload)
	require.NoError(t, err)

	call, err := Build(addr, payload, uint256.NewInt(1), uint256.NewInt(1))
	require.NoError(t, err)

	word := call.Data[36:68]
	for i := 0; i < 16; i++ {
		assert.Equal(t, raw[i], word[31-i], "byte %d mismatched after endian conversion", i)
	}
	for i := 0; i < 16; i++ {
		assert.Zero(t, word[i], "packed payload word must be left-padded with zeros")
	}
}

func TestBuild_CalldataLengthMatchesTwoWords(t *testing.T) {
	addr := common.HexToAddress("0xexecutor")
	call, err := Build(addr, testPayload(), uint256.NewInt(1), uint256.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, 4+32*2, len(call.Data))
}
