package cell

import (
	"sort"

	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/set"
)

// CellIds joins every CellId produced or consumed by a single cell into one
// composite key, so that the whole cell can be addressed in the live-cell
// map by the set of ids it produced.
type CellIds struct {
	set.Set[CellId]
}

// EmptyCellIds returns a CellIds with no members.
func EmptyCellIds() CellIds {
	return CellIds{set.New[CellId](0)}
}

// NewCellIds wraps an existing set of ids.
func NewCellIds(ids set.Set[CellId]) CellIds {
	return CellIds{ids}
}

// CellIdsFromInputs collects the CellId referenced by each input.
func CellIdsFromInputs(inputs []Input) CellIds {
	ids := set.New[CellId](len(inputs))
	for _, in := range inputs {
		ids.Add(in.CellId())
	}
	return CellIds{ids}
}

// CellIdsFromOutputs derives the CellId of every output produced by a cell
// with the given hash.
func CellIdsFromOutputs(cellHash hash.Hash, outputs []Output) CellIds {
	ids := set.New[CellId](len(outputs))
	for i := range outputs {
		ids.Add(CellIdFromOutput(cellHash, uint8(i)))
	}
	return CellIds{ids}
}

// Intersects reports whether c and other share any member.
func (c CellIds) Intersects(other CellIds) bool {
	return c.Set.Overlaps(other.Set)
}

// Intersect returns the members present in both c and other.
func (c CellIds) Intersect(other CellIds) CellIds {
	return CellIds{c.Set.Intersect(other.Set)}
}

// Difference returns the members present in c but not in other.
func (c CellIds) Difference(other CellIds) CellIds {
	out := set.New[CellId](c.Len())
	for id := range c.Set {
		if !other.Contains(id) {
			out.Add(id)
		}
	}
	return CellIds{out}
}

// Equals reports whether c and other contain exactly the same members.
func (c CellIds) Equals(other CellIds) bool {
	return c.Set.Equals(other.Set)
}

// Key returns a canonical, order-independent string suitable for use as a
// map key (Go maps cannot key on a set directly).
func (c CellIds) Key() string {
	list := c.Set.List()
	sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
	var b []byte
	for _, id := range list {
		b = append(b, id[:]...)
	}
	return string(b)
}
