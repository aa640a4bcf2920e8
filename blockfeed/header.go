package blockfeed

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// rawHeader is the subset of an eth_subscribe("newHeads") notification this
// engine actually reads; go-ethereum's own full Header type carries many
// fields (state root, bloom filter, extra data) this engine never touches.
type rawHeader struct {
	Number hexutil.Uint64 `json:"number"`
	Hash   hexutil.Bytes  `json:"hash"`
}

func (r rawHeader) toHeader() (Header, error) {
	if len(r.Hash) != 32 {
		return Header{}, fmt.Errorf("blockfeed: header hash has %d bytes, want 32", len(r.Hash))
	}
	var h Header
	h.Number = uint64(r.Number)
	copy(h.Hash[:], r.Hash)
	return h, nil
}
