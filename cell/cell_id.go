package cell

import (
	"github.com/zfxlabs/subzero/hash"
)

// CellId uniquely identifies one output of a cell: blake3(cellHash || index).
// It is the hyperarc vertex identifier used throughout the conflict graph.
type CellId = hash.Hash

// CellIdFromOutput derives the CellId of the i'th output produced by a cell
// whose hash is cellHash.
func CellIdFromOutput(cellHash hash.Hash, i uint8) CellId {
	return hash.Sum(cellHash[:], []byte{i})
}
