// Package bitset is a small fixed-size bitset used on the hot path to mark
// which PoolIDs have already been scanned during a single arbitrage search,
// so the same pair is never rescanned within one pending-tx event (the
// pool-change propagation scheme referenced in §1 of the specification).
// Adapted from the teacher repo's own bitset package (same core algorithm,
// with a Count method added), which the search package now reuses instead of the adjacency-marking ad hoc
// maps the teacher's grapher used.
package bitset

import "fmt"

// BitSet is a flat, word-packed bitset over dense uint64 indices.
type BitSet []uint64

// NewBitSet allocates a BitSet large enough to hold indices [0, length).
func NewBitSet(length uint64) BitSet {
	words := (length + 63) / 64
	return make(BitSet, words)
}

// IsSet reports whether index is set.
func (b BitSet) IsSet(index uint64) bool {
	word, bit := index/64, index%64
	return (b[word] & (1 << bit)) != 0
}

// Set marks index as present.
func (b BitSet) Set(index uint64) {
	word, bit := index/64, index%64
	b[word] |= 1 << bit
}

// Unset clears index.
func (b BitSet) Unset(index uint64) {
	word, bit := index/64, index%64
	b[word] &^= 1 << bit
}

// Clear resets every bit to zero, for reuse across search calls without a
// fresh allocation.
func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

// SetFrom overwrites b's bits with o's. Both must be the same length.
func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitset: size mismatch, got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}

// Count returns the number of set bits.
func (b BitSet) Count() int {
	n := 0
	for _, word := range b {
		for word != 0 {
			word &= word - 1
			n++
		}
	}
	return n
}
