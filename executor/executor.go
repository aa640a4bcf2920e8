// Package executor builds the calldata for the on-chain executor
// contract's two entry points — swap (capital already held) and flashSwap
// (capital borrowed for the duration of the call) — and chooses between
// them based on the wallet's available balance of the cycle's base token.
// The executor contract's own body, tx signing, and gas estimation are all
// named out of scope in §1; this package stops at "produce calldata for an
// external signer to send".
//
// There is no teacher precedent for building outbound calldata (the
// teacher pack only ever reads chain state), so this is grounded directly
// on go-ethereum's accounts/abi package, which the teacher already
// depends on transitively through its common/rpc usage.
package executor

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/fulcrum-dex/fulcrum/dispatch"
)

var (
	swapSelector      = crypto.Keccak256([]byte("swap(uint128,uint128)"))[:4]
	flashSwapSelector = crypto.Keccak256([]byte("flashSwap(uint128,uint128)"))[:4]
)

// swapArgs matches the executor contract's exact two-argument signature
// (§6): amountIn followed by the packed dispatch payload, both uint128.
var swapArgs = func() abi.Arguments {
	uint128Type, err := abi.NewType("uint128", "", nil)
	if err != nil {
		panic(fmt.Sprintf("executor: building uint128 abi type: %v", err))
	}
	return abi.Arguments{{Type: uint128Type}, {Type: uint128Type}}
}()

// Call is ready-to-sign calldata aimed at the configured executor contract
// address; everything past this point (nonce, gas, signature) belongs to
// the external signer collaborator.
type Call struct {
	To   common.Address
	Data []byte
}

// Build chooses swap vs. flashSwap by comparing the cycle's required input
// against the wallet's idle balance of the cycle's base token (§6's
// capital-sufficiency rule: flashSwap only when the wallet cannot cover
// amountIn outright), then ABI-encodes the call.
func Build(executorAddr common.Address, payload dispatch.Payload, amountIn, walletBalance *uint256.Int) (Call, error) {
	packed16, err := dispatch.Encode(payload)
	if err != nil {
		return Call{}, fmt.Errorf("executor: encoding dispatch payload: %w", err)
	}
	// dispatch.Encode lays packed16 out little-endian (byte 0 is bit 0), but
	// uint256.SetBytes expects big-endian input, so the byte order is
	// reversed before it becomes the uint128 the ABI call actually carries.
	var beBytes [16]byte
	for i, b := range packed16 {
		beBytes[15-i] = b
	}
	packed := new(uint256.Int).SetBytes(beBytes[:])

	selector := swapSelector
	if walletBalance.Cmp(amountIn) < 0 {
		selector = flashSwapSelector
	}

	args, err := swapArgs.Pack(amountIn.ToBig(), packed.ToBig())
	if err != nil {
		return Call{}, fmt.Errorf("executor: packing call arguments: %w", err)
	}

	data := make([]byte, 0, len(selector)+len(args))
	data = append(data, selector...)
	data = append(data, args...)

	return Call{To: executorAddr, Data: data}, nil
}
