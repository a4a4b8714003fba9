package cell

import (
	"github.com/zfxlabs/subzero/codec"
	"github.com/zfxlabs/subzero/hash"
)

// wireCell is the canonical on-wire shape of a Cell, kept separate from Cell
// itself so that Hash is never accidentally computed over a mutated or
// differently-field-ordered struct.
type wireCell struct {
	Inputs  Inputs
	Outputs Outputs
}

// Cell is the atomic unit of state transition: it consumes zero or more
// previously produced outputs (Inputs) and produces one or more new ones
// (Outputs).
type Cell struct {
	inputs  Inputs
	outputs Outputs
}

// NewCell builds a Cell from its inputs and (to-be-sorted) outputs.
func NewCell(inputs Inputs, outputs []Output) Cell {
	return Cell{inputs: inputs, outputs: NewOutputs(outputs)}
}

func (c Cell) Inputs() Inputs   { return c.inputs }
func (c Cell) Outputs() Outputs { return c.outputs }

// Hash returns the content hash of the cell: blake3 over its canonical CBOR
// encoding. This is the identity used everywhere a cell is referenced -
// block storage keys, CellId derivation, dependency graph vertices.
func (c Cell) Hash() hash.Hash {
	encoded, err := c.MarshalBinary()
	if err != nil {
		// Cell and its fields are exhaustively cbor-encodable; a failure here
		// indicates a programming error, not a runtime condition to recover from.
		panic("cell: canonical encode failed: " + err.Error())
	}
	return hash.Sum(encoded)
}

// Sum totals the capacity carried by the cell's outputs.
func (c Cell) Sum() Capacity {
	return c.outputs.Sum()
}

// MarshalBinary encodes c for persistent storage (store package) using the
// same canonical form Hash is derived from.
func (c Cell) MarshalBinary() ([]byte, error) {
	return codec.Marshal(wireCell{Inputs: c.inputs, Outputs: c.outputs})
}

// UnmarshalBinary decodes data produced by MarshalBinary into c.
func (c *Cell) UnmarshalBinary(data []byte) error {
	var w wireCell
	if err := codec.Unmarshal(data, &w); err != nil {
		return err
	}
	c.inputs = w.Inputs
	c.outputs = w.Outputs
	return nil
}
