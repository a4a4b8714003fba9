// Package sleet implements cell (transaction) consensus: a Snowball-family
// conflict graph layered over a DAG of cells, deciding which of any set of
// double-spending cells is preferred and, eventually, accepted as final.
package sleet

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/committee"
	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/dag"
	"github.com/zfxlabs/subzero/graph"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/log"
	"github.com/zfxlabs/subzero/sampler"
)

// CellStatus is a cell's position in the acceptance lifecycle: every cell
// starts Queried, then becomes either Accepted (finalized) or Rejected
// (lost to a conflicting cell), at which point every cell built on top of
// it is marked Removed.
type CellStatus uint8

const (
	StatusQueried CellStatus = iota
	StatusAccepted
	StatusRejected
	StatusRemoved
)

// Engine is the cell-consensus mempool: the set of all known cells,
// arranged as a DAG of parent-edges, with a conflict graph tracking which
// cells compete to spend the same outputs. All exported methods are
// guarded by an internal mutex and behave as a single-goroutine actor.
type Engine struct {
	mu sync.Mutex

	cg       *graph.ConflictGraph
	dag      *dag.DAG[hash.Hash]
	cells    map[hash.Hash]cell.Cell
	statuses map[hash.Hash]CellStatus
	accepted []cell.Cell

	validators []committee.Validator
	totalStake uint64

	params config.Parameters
	rng    *rand.Rand
	log    log.Logger
}

// NewEngine starts an Engine whose conflict graph is seeded with the live
// (spendable) cell ids of genesis.
func NewEngine(genesis cell.CellIds, params config.Parameters, rng *rand.Rand, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NoOp()
	}
	return &Engine{
		cg:       graph.NewConflictGraph(genesis),
		dag:      dag.New[hash.Hash](),
		cells:    map[hash.Hash]cell.Cell{},
		statuses: map[hash.Hash]CellStatus{},
		params:   params,
		rng:      rng,
		log:      logger,
	}
}

// isCoinbase reports whether c mints capacity out of nothing rather than
// spending prior outputs - such cells bypass mempool consensus entirely.
func isCoinbase(c cell.Cell) bool {
	return len(c.Inputs()) == 0
}

// Insert registers a cell under its chosen parent edges, wiring it into the
// conflict graph and the DAG. Callers are expected to have already picked
// parents via SelectParents.
func (e *Engine) Insert(c cell.Cell, parents []hash.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, known := e.dag.Get(c.Hash()); known {
		return ErrKnownCell
	}
	return e.insertLocked(c, parents)
}

func (e *Engine) insertLocked(c cell.Cell, parents []hash.Hash) error {
	cellHash := c.Hash()
	if err := e.cg.InsertCell(c); err != nil {
		return err
	}
	if err := e.dag.InsertVx(cellHash, parents); err != nil {
		return err
	}
	e.cells[cellHash] = c
	e.statuses[cellHash] = StatusQueried
	return nil
}

// IsStronglyPreferred reports whether every ancestor of cellHash (including
// itself) is the preference of its own conflict set.
func (e *Engine) IsStronglyPreferred(cellHash hash.Hash) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isStronglyPreferredLocked(cellHash)
}

func (e *Engine) isStronglyPreferredLocked(cellHash hash.Hash) (bool, error) {
	for _, ancestor := range e.dag.DFS(cellHash) {
		preferred, err := e.cg.IsPreferred(ancestor)
		if err != nil {
			return false, err
		}
		if !preferred {
			return false, nil
		}
	}
	return true, nil
}

// SelectParents starts at the DAG's leaves and walks each one depth-first,
// collecting strongly preferred cells until p have been accumulated.
func (e *Engine) SelectParents(p int) ([]hash.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectParentsLocked(p)
}

func (e *Engine) selectParentsLocked(p int) ([]hash.Hash, error) {
	if e.dag.IsEmpty() {
		return nil, nil
	}
	var parents []hash.Hash
	for _, leaf := range e.dag.Leaves() {
		for _, elt := range e.dag.DFS(leaf) {
			preferred, err := e.isStronglyPreferredLocked(elt)
			if err != nil {
				return nil, err
			}
			if !preferred {
				continue
			}
			parents = append(parents, elt)
			if len(parents) >= p {
				break
			}
		}
	}
	return parents, nil
}

// UpdateAncestralPreference walks every ancestor of cellHash, comparing its
// conviction (the chits of it and every cell built on top of it) against the conflict set's
// current preference and folding the outcome into that set's bookkeeping.
func (e *Engine) UpdateAncestralPreference(cellHash hash.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	beta2 := clampUint8(e.params.Beta2)
	for _, ancestor := range e.dag.DFS(cellHash) {
		pref, err := e.cg.GetPreferred(ancestor)
		if err != nil {
			return err
		}
		d1 := clampUint8(e.dag.Conviction(ancestor))
		d2 := clampUint8(e.dag.Conviction(pref))
		if err := e.cg.UpdateConflictSet(ancestor, d1, d2, beta2); err != nil {
			return err
		}
	}
	return nil
}

// IsAcceptedCell checks finality for cellHash alone: either it is the only
// member left in its conflict set and has crossed beta1 confidence, or it
// has crossed the higher beta2 threshold regardless of singleton status.
func (e *Engine) IsAcceptedCell(cellHash hash.Hash) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isAcceptedCellLocked(cellHash)
}

func (e *Engine) isAcceptedCellLocked(cellHash hash.Hash) (bool, error) {
	switch e.statuses[cellHash] {
	case StatusRejected, StatusRemoved:
		return false, nil
	case StatusAccepted:
		return true, nil
	}

	singleton, err := e.cg.IsSingleton(cellHash)
	if err != nil {
		return false, err
	}
	confidence, err := e.cg.GetConfidence(cellHash)
	if err != nil {
		return false, err
	}
	if singleton && confidence >= clampUint8(e.params.Beta1) {
		return true, nil
	}
	return confidence >= clampUint8(e.params.Beta2), nil
}

// IsAccepted reports whether cellHash is final - which additionally
// requires every one of its DAG parents to already be final, since a cell
// cannot outpace its own ancestry.
func (e *Engine) IsAccepted(cellHash hash.Hash) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	parents, ok := e.dag.Get(cellHash)
	if !ok {
		return false, ErrUnknownCell
	}
	for _, parent := range parents {
		accepted, err := e.isAcceptedCellLocked(parent)
		if err != nil {
			return false, err
		}
		if !accepted {
			return false, nil
		}
	}
	return e.isAcceptedCellLocked(cellHash)
}

// GetAcceptedFrontier returns every DAG leaf that has itself reached
// finality.
func (e *Engine) GetAcceptedFrontier() ([]hash.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dag.IsEmpty() {
		return nil, nil
	}
	var frontier []hash.Hash
	for _, leaf := range e.dag.Leaves() {
		parents, ok := e.dag.Get(leaf)
		if !ok {
			continue
		}
		allParentsAccepted := true
		for _, parent := range parents {
			accepted, err := e.isAcceptedCellLocked(parent)
			if err != nil {
				return nil, err
			}
			if !accepted {
				allParentsAccepted = false
				break
			}
		}
		if !allParentsAccepted {
			continue
		}
		accepted, err := e.isAcceptedCellLocked(leaf)
		if err != nil {
			return nil, err
		}
		if accepted {
			frontier = append(frontier, leaf)
		}
	}
	return frontier, nil
}

// Sample draws a weighted sample of validators covering at least weight
// (as a fraction of total stake), shuffling the validator set first so
// repeated calls do not always favour the same members.
func (e *Engine) Sample(weight float64) ([]hash.NodeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return weightedSample(weight, e.validators, e.totalStake, e.rng)
}

func weightedSample(weight float64, validators []committee.Validator, totalStake uint64, rng *rand.Rand) ([]hash.NodeID, error) {
	candidates := make([]sampler.Weighted, len(validators))
	for i, v := range validators {
		candidates[i] = sampler.Weighted{ID: v.ID, Weight: committee.WeightOf(v.Stake, totalStake)}
	}
	sample, err := sampler.Sample(weight, candidates, rng)
	if err != nil {
		return nil, ErrInsufficientWeight
	}
	return sample, nil
}

// LiveCommittee refreshes the validator set consulted by Sample, called
// whenever alpha hands down newly finalized stake state.
func (e *Engine) LiveCommittee(validators []committee.Validator, totalStake uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.validators = append([]committee.Validator(nil), validators...)
	e.totalStake = totalStake
	e.log.Info("sleet received live committee", zap.Int("validators", len(validators)), zap.Uint64("total_stake", totalStake))
}

// ReceiveCell inserts a non-coinbase cell if it is not already known,
// selecting its parents and folding it into ancestral preference. Coinbase
// cells never enter the mempool: ReceiveCell ignores them and returns nil.
func (e *Engine) ReceiveCell(c cell.Cell) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isCoinbase(c) {
		return nil
	}
	cellHash := c.Hash()
	if _, known := e.dag.Get(cellHash); known {
		return nil
	}
	e.log.Info("sleet: received new cell", zap.Stringer("hash", cellHash))
	parents, err := e.selectParentsLocked(e.params.NParents)
	if err != nil {
		return err
	}
	if err := e.insertLocked(c, parents); err != nil {
		return err
	}
	return e.updateAncestralPreferenceLocked(cellHash)
}

func (e *Engine) updateAncestralPreferenceLocked(cellHash hash.Hash) error {
	beta2 := clampUint8(e.params.Beta2)
	for _, ancestor := range e.dag.DFS(cellHash) {
		pref, err := e.cg.GetPreferred(ancestor)
		if err != nil {
			return err
		}
		d1 := clampUint8(e.dag.Conviction(ancestor))
		d2 := clampUint8(e.dag.Conviction(pref))
		if err := e.cg.UpdateConflictSet(ancestor, d1, d2, beta2); err != nil {
			return err
		}
	}
	return nil
}

// QueryCell answers a consensus query about c: insert it if unknown, then
// report whether it is currently strongly preferred. Unlike ReceiveCell,
// callers of QueryCell are expected to be network validators responding to
// a peer's poll.
func (e *Engine) QueryCell(c cell.Cell) (hash.Hash, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cellHash := c.Hash()
	if isCoinbase(c) {
		return cellHash, false, nil
	}
	if _, known := e.dag.Get(cellHash); !known {
		parents, err := e.selectParentsLocked(e.params.NParents)
		if err != nil {
			return cellHash, false, err
		}
		if err := e.insertLocked(c, parents); err != nil {
			return cellHash, false, err
		}
	}
	outcome, err := e.isStronglyPreferredLocked(cellHash)
	return cellHash, outcome, err
}

// RecordQueryOutcome folds one completed query round's result into
// cellHash's standing: its chit is set according to won; a won round
// recomputes ancestral preference against the (now chit-weighted)
// conviction of every ancestor, while a lost round resets cellHash's
// confidence streak. Once cellHash crosses its finality threshold and
// every one of its DAG parents is itself accepted, the cell is accepted.
func (e *Engine) RecordQueryOutcome(cellHash hash.Hash, won bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, known := e.cells[cellHash]; !known {
		return false, ErrUnknownCell
	}
	e.dag.SetChit(cellHash, won)
	if won {
		if err := e.updateAncestralPreferenceLocked(cellHash); err != nil {
			return false, err
		}
	} else if err := e.cg.ResetCount(cellHash); err != nil {
		return false, err
	}

	if e.statuses[cellHash] != StatusQueried {
		return e.statuses[cellHash] == StatusAccepted, nil
	}
	accepted, err := e.isAcceptedCellLocked(cellHash)
	if err != nil || !accepted {
		return false, err
	}
	parents, _ := e.dag.Get(cellHash)
	for _, parent := range parents {
		if ok, err := e.isAcceptedCellLocked(parent); err != nil || !ok {
			return false, err
		}
	}
	if err := e.acceptCellLocked(cellHash); err != nil {
		return false, err
	}
	return true, nil
}

// acceptCellLocked finalizes cellHash: its produced outputs become
// Accepted in the conflict graph, every cell that conflicted with it is
// rejected, and every cell built on top of a rejected cell is marked
// Removed, since it can never be accepted once its parent is gone.
func (e *Engine) acceptCellLocked(cellHash hash.Hash) error {
	c, ok := e.cells[cellHash]
	if !ok {
		return ErrUnknownCell
	}
	removed, err := e.cg.AcceptCell(c)
	if err != nil {
		return err
	}
	e.statuses[cellHash] = StatusAccepted
	e.accepted = append(e.accepted, c)
	e.log.Info("sleet: cell accepted", zap.Stringer("hash", cellHash))

	for _, conflictHash := range removed {
		e.rejectAndRemoveDescendantsLocked(conflictHash)
	}
	return nil
}

// rejectAndRemoveDescendantsLocked marks rejectedHash Rejected and every
// cell built on top of it (reachable via child edges) Removed, per the
// invariant that a rejected cell's descendants can never themselves become
// final.
func (e *Engine) rejectAndRemoveDescendantsLocked(rejectedHash hash.Hash) {
	e.statuses[rejectedHash] = StatusRejected
	e.log.Info("sleet: cell rejected", zap.Stringer("hash", rejectedHash))

	for _, descendant := range e.dag.Invert().DFS(rejectedHash) {
		if descendant == rejectedHash {
			continue
		}
		if e.statuses[descendant] == StatusAccepted {
			continue
		}
		e.statuses[descendant] = StatusRemoved
	}
}

// Status returns cellHash's current lifecycle status.
func (e *Engine) Status(cellHash hash.Hash) (CellStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.statuses[cellHash]
	return s, ok
}

// DrainAccepted returns every cell accepted since the last call and clears
// the queue, so a caller (alpha) can gather cells for the next proposed
// block without double-counting them. A cell queued here can be superseded
// later - its conflicting sibling winning a later Beta2 confidence race and
// rejecting it in turn - so entries are filtered against current status
// rather than returned unconditionally.
func (e *Engine) DrainAccepted() []cell.Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	queued := e.accepted
	e.accepted = nil
	live := make([]cell.Cell, 0, len(queued))
	for _, c := range queued {
		if e.statuses[c.Hash()] == StatusAccepted {
			live = append(live, c)
		}
	}
	return live
}

// GetCell returns a previously inserted cell by hash.
func (e *Engine) GetCell(cellHash hash.Hash) (cell.Cell, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cells[cellHash]
	return c, ok
}

// Ancestors returns every cell reachable by walking parent edges from
// cellHash (cellHash itself excluded), answering a peer's GetTxAncestors.
func (e *Engine) Ancestors(cellHash hash.Hash) ([]cell.Cell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.dag.Get(cellHash); !ok {
		return nil, ErrUnknownCell
	}
	var ancestors []cell.Cell
	for _, ancestorHash := range e.dag.DFS(cellHash) {
		if ancestorHash == cellHash {
			continue
		}
		if c, ok := e.cells[ancestorHash]; ok {
			ancestors = append(ancestors, c)
		}
	}
	return ancestors, nil
}

func clampUint8(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
