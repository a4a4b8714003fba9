package graph

import (
	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
)

// OutputStatus is the lifecycle state of a single spendable output vertex.
type OutputStatus uint8

const (
	Pending OutputStatus = iota
	Accepted
	Rejected
)

type vertexData struct {
	spenders map[hash.Hash]struct{}
	status   OutputStatus
}

// ConflictGraph is the hypergraph of spendable outputs (vertices) and the
// cells that spend them (hyperarcs): every cell hash has its own
// ConflictSet tracking which other cells compete for at least one of the
// same input outputs.
type ConflictGraph struct {
	vertices       map[cell.CellId]*vertexData
	cells          map[hash.Hash]cell.Cell
	cs             map[hash.Hash]*ConflictSet[hash.Hash]
	insertionOrder []hash.Hash
}

// NewConflictGraph seeds the graph with the accepted genesis output ids.
func NewConflictGraph(genesis cell.CellIds) *ConflictGraph {
	vertices := make(map[cell.CellId]*vertexData, genesis.Len())
	for id := range genesis.Set {
		vertices[id] = &vertexData{spenders: map[hash.Hash]struct{}{}, status: Accepted}
	}
	return &ConflictGraph{
		vertices: vertices,
		cells:    map[hash.Hash]cell.Cell{},
		cs:       map[hash.Hash]*ConflictSet[hash.Hash]{},
	}
}

// InsertCell adds a cell as a new hyperarc, wiring it into the conflict sets
// of every cell it shares a consumed input with. The new cell inherits the
// preference/last/confidence of the first (by insertion order) cell it
// conflicts with, mirroring every other entrant into an existing contest.
func (g *ConflictGraph) InsertCell(c cell.Cell) error {
	cellHash := c.Hash()
	if _, exists := g.cells[cellHash]; exists {
		return ErrDuplicateCell
	}
	g.cells[cellHash] = c

	consumed := cell.CellIdsFromInputs(c.Inputs())
	produced := cell.CellIdsFromOutputs(cellHash, c.Outputs())

	conflicts := map[hash.Hash]struct{}{}
	for id := range consumed.Set {
		data, ok := g.vertices[id]
		if !ok {
			return ErrUndefinedCell
		}
		for spender := range data.spenders {
			conflicts[spender] = struct{}{}
		}
		data.spenders[cellHash] = struct{}{}
	}

	for id := range produced.Set {
		g.vertices[id] = &vertexData{spenders: map[hash.Hash]struct{}{}, status: Pending}
	}

	g.insertionOrder = append(g.insertionOrder, cellHash)

	ownSet := NewConflictSet(cellHash)
	for conflictHash := range conflicts {
		other := g.cs[conflictHash]
		other.Conflicts.Add(cellHash)
		ownSet.Conflicts.Add(conflictHash)
	}

	if len(conflicts) > 0 {
		// The first conflicting cell by insertion order anchors this set's
		// starting preference, so every newcomer defers to the incumbent.
		for _, h := range g.insertionOrder {
			if _, ok := conflicts[h]; ok {
				first := g.cs[h]
				ownSet.Pref = first.Pref
				ownSet.Last = first.Last
				ownSet.Cnt = first.Cnt
				break
			}
		}
	}
	g.cs[cellHash] = ownSet

	return nil
}

// AcceptCell marks a cell's produced outputs Accepted and removes every
// other cell that conflicted with it, returning the hashes removed so the
// caller (sleet) can drop them from its own bookkeeping.
func (g *ConflictGraph) AcceptCell(c cell.Cell) ([]hash.Hash, error) {
	cellHash := c.Hash()

	produced := cell.CellIdsFromOutputs(cellHash, c.Outputs())
	for id := range produced.Set {
		g.vertices[id].status = Accepted
	}

	conflictSet, ok := g.cs[cellHash]
	if !ok {
		return nil, ErrUndefinedCell
	}
	conflicts := conflictSet.Conflicts.List()

	var removed []hash.Hash
	for _, conflictHash := range conflicts {
		if conflictHash == cellHash {
			continue
		}
		if err := g.RemoveCell(conflictHash); err != nil {
			return nil, err
		}
		removed = append(removed, conflictHash)
	}

	// The accepted cell becomes a fresh singleton, retaining its confidence.
	newSet := NewConflictSet(cellHash)
	newSet.Cnt = conflictSet.Cnt
	g.cs[cellHash] = newSet

	return removed, nil
}

// RemoveCell drops a rejected cell from the graph: its produced outputs are
// marked Rejected, it is struck from every other conflict set that
// referenced it, and its own bookkeeping is deleted.
func (g *ConflictGraph) RemoveCell(cellHash hash.Hash) error {
	conflictSet, ok := g.cs[cellHash]
	if !ok {
		return ErrUndefinedCell
	}

	if err := g.removeFromVertices(cellHash); err != nil {
		return err
	}

	for conflictingHash := range conflictSet.Conflicts {
		if conflictingHash == cellHash {
			continue
		}
		if other, ok := g.cs[conflictingHash]; ok {
			other.Remove(cellHash)
		}
	}

	delete(g.cells, cellHash)
	delete(g.cs, cellHash)

	filtered := g.insertionOrder[:0]
	for _, h := range g.insertionOrder {
		if h != cellHash {
			filtered = append(filtered, h)
		}
	}
	g.insertionOrder = filtered

	return nil
}

func (g *ConflictGraph) removeFromVertices(cellHash hash.Hash) error {
	c, ok := g.cells[cellHash]
	if !ok {
		return ErrUndefinedCell
	}

	produced := cell.CellIdsFromOutputs(cellHash, c.Outputs())
	consumed := cell.CellIdsFromInputs(c.Inputs())

	for id := range produced.Set {
		g.vertices[id].status = Rejected
	}
	for id := range consumed.Set {
		if data, ok := g.vertices[id]; ok {
			delete(data.spenders, cellHash)
		}
	}
	return nil
}

// ConflictingCells returns the conflict set tracking cellHash.
func (g *ConflictGraph) ConflictingCells(cellHash hash.Hash) (*ConflictSet[hash.Hash], bool) {
	cs, ok := g.cs[cellHash]
	return cs, ok
}

func (g *ConflictGraph) IsSingleton(cellHash hash.Hash) (bool, error) {
	cs, ok := g.cs[cellHash]
	if !ok {
		return false, ErrUndefinedCellHash
	}
	return cs.IsSingleton(), nil
}

func (g *ConflictGraph) GetPreferred(cellHash hash.Hash) (hash.Hash, error) {
	cs, ok := g.cs[cellHash]
	if !ok {
		return hash.Hash{}, ErrUndefinedCellHash
	}
	return cs.Pref, nil
}

func (g *ConflictGraph) IsPreferred(cellHash hash.Hash) (bool, error) {
	cs, ok := g.cs[cellHash]
	if !ok {
		return false, ErrUndefinedCellHash
	}
	return cs.IsPreferred(cellHash), nil
}

func (g *ConflictGraph) GetConfidence(cellHash hash.Hash) (uint8, error) {
	cs, ok := g.cs[cellHash]
	if !ok {
		return 0, ErrUndefinedCellHash
	}
	return cs.Cnt, nil
}

// UpdateConflictSet applies one round's vote outcome to cellHash's conflict
// set: if it won this round's preference comparison (d1 > d2), it becomes
// the set's preference; if it was the set's last-queried cell its streak
// counter increments (capped at beta2), otherwise it becomes the new
// last-queried cell and the counter is left unchanged.
func (g *ConflictGraph) UpdateConflictSet(cellHash hash.Hash, d1, d2 uint8, beta2 uint8) error {
	if len(g.cs) == 0 {
		return ErrEmptyConflictGraph
	}
	cs, ok := g.cs[cellHash]
	if !ok {
		return ErrUndefinedCellHash
	}
	if d1 > d2 {
		cs.Pref = cellHash
	}
	if cellHash != cs.Last {
		cs.Last = cellHash
	} else if cs.Cnt < beta2 {
		cs.Cnt++
	}
	return nil
}

// ResetCount zeroes cellHash's confidence streak, used when it loses a query
// round outright.
func (g *ConflictGraph) ResetCount(cellHash hash.Hash) error {
	if len(g.cs) == 0 {
		return ErrEmptyConflictGraph
	}
	cs, ok := g.cs[cellHash]
	if !ok {
		return ErrUndefinedCellHash
	}
	cs.Cnt = 0
	return nil
}

// Len returns the number of cells currently tracked.
func (g *ConflictGraph) Len() int { return len(g.cs) }
