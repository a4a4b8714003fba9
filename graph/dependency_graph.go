package graph

import "github.com/zfxlabs/subzero/cell"

// DependencyGraph orders a block's cells by their intra-block dependencies:
// an adjacency list from each cell's produced output ids to the input ids it
// consumed, walked with Kahn's algorithm starting from the roots: cells whose
// produced ids no other inserted cell consumes.
type DependencyGraph struct {
	// edges maps the key of a cell's produced CellIds to the CellIds it consumed.
	edges map[string]edge
	roots []cell.CellIds
}

type edge struct {
	produced cell.CellIds
	consumed cell.CellIds
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: map[string]edge{}}
}

// Insert adds c as a vertex, keyed by the CellIds of its outputs, pointing
// at the CellIds of the inputs it consumes.
func (d *DependencyGraph) Insert(c cell.Cell) error {
	produced := cell.CellIdsFromOutputs(c.Hash(), c.Outputs())
	consumed := cell.CellIdsFromInputs(c.Inputs())

	key := produced.Key()
	if _, exists := d.edges[key]; exists {
		return cell.ErrDuplicateCell
	}
	d.edges[key] = edge{produced: produced, consumed: consumed}

	// Any existing root that this cell consumes from is no longer a root.
	var roots []cell.CellIds
	for _, r := range d.roots {
		if !consumed.Intersects(r) {
			roots = append(roots, r)
		}
	}
	d.roots = roots

	// If nothing already inserted references this cell's produced ids, it
	// is (for now) a root: no later-inserted consumer has appeared yet.
	referenced := false
	for _, e := range d.edges {
		if produced.Intersects(e.consumed) {
			referenced = true
			break
		}
	}
	if !referenced {
		d.roots = append(d.roots, produced)
	}

	return nil
}

func hasInboundEdges(edges map[string]edge, produced cell.CellIds) bool {
	for _, e := range edges {
		if produced.Intersects(e.consumed) {
			return true
		}
	}
	return false
}

// Topological returns the produced-CellIds of every inserted cell in
// dependency order: a cell's consumed inputs always appear before it.
func (d *DependencyGraph) Topological() ([]cell.CellIds, error) {
	var sorted []cell.CellIds
	roots := append([]cell.CellIds(nil), d.roots...)
	edges := make(map[string]edge, len(d.edges))
	for k, v := range d.edges {
		edges[k] = v
	}

	for len(roots) > 0 {
		root := roots[len(roots)-1]
		roots = roots[:len(roots)-1]
		sorted = append([]cell.CellIds{root}, sorted...)

		e, ok := edges[root.Key()]
		if !ok {
			return nil, cell.ErrUndefinedCell
		}
		removedEdges := e.consumed
		e.consumed = cell.EmptyCellIds()
		edges[root.Key()] = e

		for _, other := range edges {
			if other.produced.Intersects(removedEdges) {
				if !hasInboundEdges(edges, other.produced) {
					roots = append(roots, other.produced)
				}
			}
		}
	}

	return sorted, nil
}

// TopologicalCells returns cells (drawn from cells) in the dependency order
// produced by Topological.
func (d *DependencyGraph) TopologicalCells(cells []cell.Cell) ([]cell.Cell, error) {
	order, err := d.Topological()
	if err != nil {
		return nil, err
	}
	sorted := make([]cell.Cell, 0, len(cells))
	for _, ids := range order {
		for _, c := range cells {
			produced := cell.CellIdsFromOutputs(c.Hash(), c.Outputs())
			if produced.Equals(ids) {
				sorted = append(sorted, c)
				break
			}
		}
	}
	return sorted, nil
}
