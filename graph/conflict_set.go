// Package graph provides the two graph structures shared by sleet and hail:
// ConflictSet/ConflictGraph, the hypergraph of conflicting cells (or blocks)
// that the Snowball-family decision procedure runs over, and
// DependencyGraph, the Kahn's-algorithm topological sort used to order a
// block's cells before applying them to state.
package graph

import "github.com/zfxlabs/subzero/set"

// ConflictSet tracks every hyperarc competing for the same vertex, plus the
// Snowball bookkeeping (preference, last-queried, confidence) needed to
// decide among them. It is generic over the hashable identity of whatever is
// conflicting - sleet keys it on cell hash, hail on block hash.
type ConflictSet[H comparable] struct {
	Conflicts set.Set[H]
	Pref      H
	Last      H
	Cnt       uint8
}

// NewConflictSet starts a singleton conflict set containing only id,
// preferred and last-queried as itself.
func NewConflictSet[H comparable](id H) *ConflictSet[H] {
	return &ConflictSet[H]{
		Conflicts: set.Of(id),
		Pref:      id,
		Last:      id,
	}
}

// IsPreferred reports whether id is this set's preference.
func (cs *ConflictSet[H]) IsPreferred(id H) bool { return cs.Pref == id }

// IsSingleton reports whether id is the only member left in the set.
func (cs *ConflictSet[H]) IsSingleton() bool { return cs.Conflicts.Len() == 1 }

// Remove drops elt from the conflict set, reassigning Pref/Last to some
// remaining member if either pointed at it. Pref's confidence resets to 0
// since it just lost its incumbent challenger context.
func (cs *ConflictSet[H]) Remove(elt H) {
	if cs.Conflicts.Len() <= 1 {
		return
	}
	cs.Conflicts.Remove(elt)

	next := elt
	for id := range cs.Conflicts {
		if id != elt {
			next = id
			break
		}
	}
	if cs.Pref == elt {
		cs.Pref = next
		cs.Cnt = 0
	}
	if cs.Last == elt {
		cs.Last = next
	}
}
