package cell

import "github.com/zfxlabs/subzero/hash"

// Capacity is the size, in abstract units, carried by a cell output.
type Capacity = uint64

// PublicKeyHash identifies the owner of an output: an ed25519 public key's
// raw bytes, stored hash-sized rather than digested. Matches the size
// coincidence (32 bytes either way) and lets an owner's address double as
// its NodeID without an extra hash step.
type PublicKeyHash = hash.Hash

// Output is a single produced value: an amount of Capacity, tagged with a
// Kind and opaque Kind-specific Data, locked to an owner.
type Output struct {
	Capacity Capacity
	Kind     Kind
	Data     []byte
	Lock     PublicKeyHash
}

// Verify checks that an output transitions correctly given the outputs it
// consumed of the same Kind. Coinbase and Stake outputs may not consume
// outputs of their own kind (they only ever originate capacity or lock it);
// Transfer outputs carry no additional constraint.
func (o Output) Verify(consumedOfSameKind []Output) error {
	switch o.Kind {
	case Coinbase:
		if len(consumedOfSameKind) != 0 {
			return ErrInvalidCoinbase
		}
		return nil
	case Transfer:
		return nil
	case Stake:
		if len(consumedOfSameKind) != 0 {
			return ErrInvalidStake
		}
		return nil
	default:
		return ErrInvalidCoinbase
	}
}

// OutputIndex references a specific Output by the hash of the cell that
// produced it and its position within that cell's Outputs.
type OutputIndex struct {
	CellHash hash.Hash
	Index    uint8
}

// CellId derives the CellId addressed by this OutputIndex.
func (oi OutputIndex) CellId() CellId {
	return CellIdFromOutput(oi.CellHash, oi.Index)
}

// Outputs is a cell's list of produced outputs, always kept sorted so that
// two cells built from the same logical outputs hash identically regardless
// of construction order.
type Outputs []Output

// NewOutputs returns a copy of outs sorted into canonical order.
func NewOutputs(outs []Output) Outputs {
	sorted := make(Outputs, len(outs))
	copy(sorted, outs)
	sortOutputs(sorted)
	return sorted
}

// Sum totals the capacity carried by every output.
func (o Outputs) Sum() Capacity {
	var total Capacity
	for _, out := range o {
		total += out.Capacity
	}
	return total
}

func sortOutputs(outs Outputs) {
	// insertion sort is adequate: block cells carry a handful of outputs.
	for i := 1; i < len(outs); i++ {
		for j := i; j > 0 && outputLess(outs[j], outs[j-1]); j-- {
			outs[j], outs[j-1] = outs[j-1], outs[j]
		}
	}
}

func outputLess(a, b Output) bool {
	if a.Capacity != b.Capacity {
		return a.Capacity < b.Capacity
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Lock.Less(b.Lock)
}
