package state

import (
	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/committee"
	"github.com/zfxlabs/subzero/graph"
)

type liveEntry struct {
	ids cell.CellIds
	c   cell.Cell
}

// State is the ledger's live snapshot at a given height.
type State struct {
	Height                uint64
	TotalSpendingCapacity uint64
	TotalStakingCapacity  uint64
	Validators            []committee.Validator

	liveCells map[string]liveEntry
	index     map[cell.CellId]string // cell id -> key of the liveCells entry holding it
}

// New returns the empty (pre-genesis) state.
func New() *State {
	return &State{
		liveCells: map[string]liveEntry{},
		index:     map[cell.CellId]string{},
	}
}

// Clone returns a deep-enough copy of s suitable for speculative Apply.
func (s *State) Clone() *State {
	clone := &State{
		Height:                s.Height,
		TotalSpendingCapacity: s.TotalSpendingCapacity,
		TotalStakingCapacity:  s.TotalStakingCapacity,
		Validators:            append([]committee.Validator(nil), s.Validators...),
		liveCells:             make(map[string]liveEntry, len(s.liveCells)),
		index:                 make(map[cell.CellId]string, len(s.index)),
	}
	for k, v := range s.liveCells {
		clone.liveCells[k] = v
	}
	for k, v := range s.index {
		clone.index[k] = v
	}
	return clone
}

// Apply replays a block's cells (ordered by intra-block dependency) against
// s, returning the resulting State. s itself is left untouched.
func (s *State) Apply(block Block) (*State, error) {
	next := s.Clone()

	dg := graph.NewDependencyGraph()
	for _, c := range block.Cells {
		if err := dg.Insert(c); err != nil {
			return nil, err
		}
	}
	ordered, err := dg.TopologicalCells(block.Cells)
	if err != nil {
		return nil, err
	}

	for _, c := range ordered {
		if err := next.applyCell(c, block.Height); err != nil {
			return nil, err
		}
	}
	next.Height = block.Height
	return next, nil
}

func (s *State) applyCell(c cell.Cell, height uint64) error {
	inputIds := cell.CellIdsFromInputs(c.Inputs())

	consumedIds := cell.EmptyCellIds()
	var consumedOutputs []cell.Output
	var consumedCapacity uint64

	touched := map[string]struct{}{}
	for id := range inputIds.Set {
		if key, ok := s.index[id]; ok {
			touched[key] = struct{}{}
		}
	}
	for key := range touched {
		entry := s.liveCells[key]
		intersection := inputIds.Intersect(entry.ids)
		if intersection.Len() == 0 {
			continue
		}
		for id := range intersection.Set {
			consumedIds.Add(id)
		}
		for i, out := range entry.c.Outputs() {
			thisID := cell.CellIdFromOutput(entry.c.Hash(), uint8(i))
			if intersection.Contains(thisID) {
				consumedOutputs = append(consumedOutputs, out)
				consumedCapacity += out.Capacity
			}
		}
	}

	if !consumedIds.Equals(inputIds) {
		return ErrUndefinedCellIds
	}

	// Verify each produced output against the consumed outputs of the same kind.
	for _, out := range c.Outputs() {
		var sameKind []cell.Output
		for _, co := range consumedOutputs {
			if co.Kind == out.Kind {
				sameKind = append(sameKind, co)
			}
		}
		if err := out.Verify(sameKind); err != nil {
			return err
		}
	}

	s.removeIntersection(consumedIds)

	var coinbaseCapacity, producedStakingCapacity, producedCapacity uint64
	for _, out := range c.Outputs() {
		switch out.Kind {
		case cell.Coinbase:
			if height != 0 {
				return ErrExceedsCapacity
			}
			coinbaseCapacity += out.Capacity
		case cell.Stake:
			var st cell.StakeState
			if err := cborUnmarshal(out.Data, &st); err != nil {
				return err
			}
			s.Validators = append(s.Validators, committee.Validator{ID: st.NodeID, Stake: out.Capacity})
			producedStakingCapacity += out.Capacity
		default:
			producedCapacity += out.Capacity
		}
	}

	producedIds := cell.CellIdsFromOutputs(c.Hash(), c.Outputs())
	key := producedIds.Key()
	if _, exists := s.liveCells[key]; exists {
		return ErrExistingCellIds
	}
	s.liveCells[key] = liveEntry{ids: producedIds, c: c}
	for id := range producedIds.Set {
		s.index[id] = key
	}

	switch {
	case consumedCapacity >= producedCapacity+producedStakingCapacity && consumedCapacity > 0 && coinbaseCapacity == 0:
		s.TotalSpendingCapacity -= consumedCapacity
		s.TotalSpendingCapacity += producedCapacity
		s.TotalStakingCapacity += producedStakingCapacity
	case height == 0 && coinbaseCapacity > 0 && producedCapacity == 0 && producedStakingCapacity == 0:
		s.TotalSpendingCapacity += coinbaseCapacity
	default:
		return ErrExceedsCapacity
	}

	return nil
}

// removeIntersection strips consumedIds out of whichever live entries
// contain them, splitting each touched entry down to its remaining ids (the
// entry's underlying cell is retained so the remaining ids can still
// resolve their outputs).
func (s *State) removeIntersection(consumedIds cell.CellIds) {
	touched := map[string]struct{}{}
	for id := range consumedIds.Set {
		if key, ok := s.index[id]; ok {
			touched[key] = struct{}{}
		}
	}
	for key := range touched {
		entry := s.liveCells[key]
		intersection := consumedIds.Intersect(entry.ids)
		if intersection.Len() == 0 {
			continue
		}
		delete(s.liveCells, key)
		for id := range entry.ids.Set {
			delete(s.index, id)
		}

		remaining := entry.ids.Difference(intersection)
		if remaining.Len() == 0 {
			continue
		}
		newKey := remaining.Key()
		s.liveCells[newKey] = liveEntry{ids: remaining, c: entry.c}
		for id := range remaining.Set {
			s.index[id] = newKey
		}
	}
}
