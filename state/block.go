package state

import (
	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/codec"
	"github.com/zfxlabs/subzero/hash"
)

// Block is a totally-ordered batch of accepted cells, chained to its
// predecessor and tagged with the VRF output that seeded this height's
// sortition round.
type Block struct {
	Predecessor *hash.Hash
	Height      uint64
	VRFOut      hash.Hash
	Cells       []cell.Cell
}

// Hash returns the content hash of the block, computed over its canonical
// CBOR encoding - the block's identity used for storage keys and for hail's
// conflict-set vertices.
func (b Block) Hash() hash.Hash {
	encoded, err := codec.Marshal(b)
	if err != nil {
		panic("state: canonical block encode failed: " + err.Error())
	}
	return hash.Sum(encoded)
}

// cborUnmarshal decodes a cell's opaque output data, e.g. into a
// cell.StakeState.
func cborUnmarshal(data []byte, v interface{}) error {
	return codec.Unmarshal(data, v)
}
