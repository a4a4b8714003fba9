// Package dag implements the directed acyclic graph shared by sleet (over
// cell hashes) and hail (over block hashes): vertices carry edges pointing
// at their chosen parents, with an inverted adjacency list kept alongside
// for leaf/descendant queries.
package dag

import "errors"

var (
	ErrVertexExists    = errors.New("dag: vertex already exists")
	ErrUndefinedVertex = errors.New("dag: vertex not found")
)

// DAG is a generic parent-pointing DAG over any comparable vertex id.
type DAG[V comparable] struct {
	g     map[V][]V  // vertex -> its parent edges
	inv   map[V][]V  // vertex -> vertices that point at it
	chits map[V]bool // vertex -> whether it has won a query round
}

// New returns an empty DAG.
func New[V comparable]() *DAG[V] {
	return &DAG[V]{g: map[V][]V{}, inv: map[V][]V{}, chits: map[V]bool{}}
}

// InsertVx adds vx with the given parent edges, recording the inverse edges
// as it goes. Every edge must already be present in the graph.
func (d *DAG[V]) InsertVx(vx V, edges []V) error {
	if _, exists := d.g[vx]; exists {
		return ErrVertexExists
	}
	if _, ok := d.inv[vx]; !ok {
		d.inv[vx] = nil
	}
	for _, parent := range edges {
		if _, ok := d.inv[parent]; !ok {
			return ErrUndefinedVertex
		}
		d.inv[parent] = append(d.inv[parent], vx)
	}
	d.g[vx] = append([]V(nil), edges...)
	return nil
}

// Get returns vx's parent edges.
func (d *DAG[V]) Get(vx V) ([]V, bool) {
	edges, ok := d.g[vx]
	return edges, ok
}

// IsEmpty reports whether the DAG has no vertices.
func (d *DAG[V]) IsEmpty() bool { return len(d.g) == 0 }

// Len returns the number of vertices.
func (d *DAG[V]) Len() int { return len(d.g) }

// BFS performs a breadth-first traversal over parent edges starting at vx.
func (d *DAG[V]) BFS(vx V) []V {
	return d.traverse(vx, true)
}

// DFS performs a depth-first traversal over parent edges starting at vx.
func (d *DAG[V]) DFS(vx V) []V {
	return d.traverse(vx, false)
}

func (d *DAG[V]) traverse(vx V, breadthFirst bool) []V {
	visited := map[V]bool{vx: true}
	queue := []V{vx}
	var result []V
	for len(queue) > 0 {
		var elt V
		if breadthFirst {
			elt, queue = queue[0], queue[1:]
		} else {
			elt, queue = queue[len(queue)-1], queue[:len(queue)-1]
		}
		result = append(result, elt)
		for _, edge := range d.g[elt] {
			if !visited[edge] {
				visited[edge] = true
				queue = append(queue, edge)
			}
		}
	}
	return result
}

// Leaves returns every vertex with no inbound edges (nothing else points at
// it as a parent) - the DAG's tips.
func (d *DAG[V]) Leaves() []V {
	var leaves []V
	for vx, children := range d.inv {
		if len(children) == 0 {
			leaves = append(leaves, vx)
		}
	}
	return leaves
}

// Invert returns a new DAG with every edge reversed: it is used to walk the
// graph in child-direction (e.g. to find a vertex's descendants) without
// mutating the original.
func (d *DAG[V]) Invert() *DAG[V] {
	inverted := &DAG[V]{g: map[V][]V{}, inv: map[V][]V{}, chits: d.chits}
	for vx, edges := range d.inv {
		inverted.g[vx] = append([]V(nil), edges...)
	}
	for vx, edges := range d.g {
		inverted.inv[vx] = append([]V(nil), edges...)
	}
	return inverted
}

// SetChit records the outcome of a query round for vx: true if it won its
// round, false otherwise. A vertex that has never been queried carries the
// zero value, false.
func (d *DAG[V]) SetChit(vx V, chit bool) {
	d.chits[vx] = chit
}

// Chit returns vx's current chit.
func (d *DAG[V]) Chit(vx V) bool {
	return d.chits[vx]
}

// Conviction is the sum of chits reachable by walking inverted (child)
// edges from vx, including vx itself: how much of the graph built on top
// of vx has itself won a query round.
func (d *DAG[V]) Conviction(vx V) int {
	visited := map[V]bool{vx: true}
	queue := []V{vx}
	count := 0
	for len(queue) > 0 {
		elt := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if d.chits[elt] {
			count++
		}
		for _, child := range d.inv[elt] {
			if !visited[child] {
				visited[child] = true
				queue = append(queue, child)
			}
		}
	}
	return count
}
