// Package hail implements block consensus: Snowball over a DAG of blocks
// keyed by height, with block-production slots assigned by VRF-threshold
// sortition over staked capacity.
package hail

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
	"github.com/zfxlabs/subzero/state"
)

// Engine is the block-consensus actor: a DAG of blocks (by hash), a
// conflict map keyed by height, and the current producer-slot assignment.
// All exported methods are guarded by an internal mutex.
type Engine struct {
	mu sync.Mutex

	selfID hash.NodeID

	dag    *dag.DAG[hash.Hash]
	blocks map[hash.Hash]state.Block

	conflicts map[uint64]*graph.ConflictSet[hash.Hash]

	lastAccepted hash.Hash
	lastHeight   uint64

	producedHeights map[uint64]bool
	validVRFs       map[hash.Hash]bool
	hasOwnSlot      bool
	ownSlotHeight   uint64
	ownSlotVRF      hash.Hash

	validators []committee.Validator
	totalStake uint64

	params config.Parameters
	rng    *rand.Rand
	log    log.Logger
}

// NewEngine starts an Engine seeded with the most recent frontier - the
// last set of blocks yet to become final, e.g. recovered at bootstrap. It
// samples from a fixed-seed (1) source; use NewEngineWithRand to supply one.
func NewEngine(frontier []state.Block, selfID hash.NodeID, params config.Parameters, logger log.Logger) (*Engine, error) {
	return NewEngineWithRand(frontier, selfID, params, rand.New(rand.NewSource(1)), logger)
}

// NewEngineWithRand is NewEngine with an explicit sampling source, used by
// callers (cmd/node's wiring) that share one process-wide rng across every
// engine. A nil rng falls back to the same fixed-seed source as NewEngine.
func NewEngineWithRand(frontier []state.Block, selfID hash.NodeID, params config.Parameters, rng *rand.Rand, logger log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.NoOp()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	e := &Engine{
		selfID:          selfID,
		dag:             dag.New[hash.Hash](),
		blocks:          map[hash.Hash]state.Block{},
		conflicts:       map[uint64]*graph.ConflictSet[hash.Hash]{},
		producedHeights: map[uint64]bool{},
		params:          params,
		rng:             rng,
		log:             logger,
	}
	for _, b := range frontier {
		if err := e.insertBlockLocked(b); err != nil {
			return nil, err
		}
		if b.Height >= e.lastHeight {
			e.lastHeight = b.Height
			e.lastAccepted = b.Hash()
		}
	}
	return e, nil
}

// LastAccepted returns the last block hash and height this engine has
// confirmed final.
func (e *Engine) LastAccepted() (hash.Hash, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccepted, e.lastHeight
}

// InsertBlock records a locally produced or peer-received block: it is
// added to the DAG keyed by its declared predecessor, and wired into the
// conflict map at its height. A block whose VRF output is not a member of
// the current producer set is rejected, once a producer set has been
// established.
func (e *Engine) InsertBlock(b state.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertBlockLocked(b)
}

func (e *Engine) insertBlockLocked(b state.Block) error {
	blockHash := b.Hash()
	if _, known := e.dag.Get(blockHash); known {
		return nil
	}
	if len(e.validVRFs) > 0 && !e.validVRFs[b.VRFOut] {
		return ErrInvalidVRF
	}

	var parents []hash.Hash
	if b.Predecessor != nil {
		parents = []hash.Hash{*b.Predecessor}
	}
	if err := e.dag.InsertVx(blockHash, parents); err != nil {
		return err
	}
	e.blocks[blockHash] = b
	e.insertHeightConflict(b.Height, blockHash)
	return nil
}

// insertHeightConflict folds blockHash into its height's conflict set,
// deterministically preferring the numerically lowest hash seen so far
// while the set's confidence has not yet crossed beta1 - this resolves
// concurrent proposals at the same height without a query round.
func (e *Engine) insertHeightConflict(height uint64, blockHash hash.Hash) {
	cs, ok := e.conflicts[height]
	if !ok {
		e.conflicts[height] = graph.NewConflictSet(blockHash)
		return
	}
	cs.Conflicts.Add(blockHash)
	beta1 := clampUint8(e.params.Beta1)
	if cs.Cnt < beta1 && blockHash.Less(cs.Pref) {
		e.log.Info("block supersedes preferred", zap.Stringer("block", blockHash), zap.Stringer("previous", cs.Pref))
		cs.Pref = blockHash
		cs.Cnt = 0
	}
}

// SelectParent returns the preferred block hash in height's conflict set -
// the parent a new proposal at height+1 should build on.
func (e *Engine) SelectParent(height uint64) (hash.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.conflicts[height]
	if !ok {
		return hash.Hash{}, ErrUnknownHeight
	}
	return cs.Pref, nil
}

// LiveCommittee refreshes the validator set and runs sortition over it for
// the given VRF seed, reporting whether this node holds a production slot
// for the next height. It also becomes the set of VRF outputs InsertBlock
// will accept for that height.
func (e *Engine) LiveCommittee(nextHeight uint64, validators []committee.Validator, totalStake uint64, vrfSeed hash.Hash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.validators = append([]committee.Validator(nil), validators...)
	e.totalStake = totalStake

	expectedSize := committee.ExpectedCommitteeSize(len(validators)) + e.params.SortitionConstant
	e.log.Info("hail received live committee", zap.Uint64("height", nextHeight), zap.Float64("expected_size", expectedSize))

	valid := map[hash.Hash]bool{}
	e.hasOwnSlot = false
	for _, v := range validators {
		vrfHash := committee.VRFHash(v.ID, vrfSeed)
		w := committee.Select(v.Stake, totalStake, expectedSize, vrfHash)
		if w == 0 {
			continue
		}
		valid[vrfHash] = true
		if v.ID == e.selfID {
			e.hasOwnSlot = true
			e.ownSlotHeight = nextHeight
			e.ownSlotVRF = vrfHash
		}
	}
	e.validVRFs = valid
	if e.hasOwnSlot {
		e.log.Info("this node is a block producer", zap.Uint64("height", nextHeight))
	}
	return e.hasOwnSlot
}

// ProposeBlock builds a new block atop the last accepted block, carrying
// cells, if this node holds a production slot for the next height and has
// not already proposed one. A node proposes at most once per height.
func (e *Engine) ProposeBlock(cells []cell.Cell) (state.Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasOwnSlot {
		return state.Block{}, ErrNoProducerSlot
	}
	height := e.lastHeight + 1
	if height != e.ownSlotHeight {
		return state.Block{}, ErrNoProducerSlot
	}
	if e.producedHeights[height] {
		return state.Block{}, ErrAlreadyProposed
	}

	pred := e.lastAccepted
	block := state.Block{
		Predecessor: &pred,
		Height:      height,
		VRFOut:      e.ownSlotVRF,
		Cells:       cells,
	}
	e.producedHeights[height] = true
	return block, nil
}

// RecordQueryOutcome folds one completed query round's result into
// blockHash's standing: if votes clear the alpha threshold for sampleSize,
// its chit is set and every ancestor's conviction is recomputed against its
// height's current preference.
func (e *Engine) RecordQueryOutcome(blockHash hash.Hash, votes, sampleSize int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.blocks[blockHash]; !ok {
		return false, ErrUnknownBlock
	}
	won := votes > e.params.AlphaThresholdOf(sampleSize)
	e.dag.SetChit(blockHash, won)
	if won {
		e.updateAncestorsLocked(blockHash)
	}
	return won, nil
}

func (e *Engine) updateAncestorsLocked(blockHash hash.Hash) {
	beta1 := clampUint8(e.params.Beta1)
	for _, ancestor := range e.dag.DFS(blockHash) {
		b, ok := e.blocks[ancestor]
		if !ok {
			continue
		}
		cs, ok := e.conflicts[b.Height]
		if !ok {
			continue
		}
		d1 := clampUint8(e.dag.Conviction(ancestor))
		d2 := clampUint8(e.dag.Conviction(cs.Pref))
		if d1 > d2 {
			cs.Pref = ancestor
		}
		if ancestor != cs.Last {
			cs.Last = ancestor
		} else if cs.Cnt < beta1 {
			cs.Cnt++
		}
	}
}

// IsAcceptedBlock reports whether blockHash is final: the only member left
// in its height's conflict set, with confidence at or above beta1.
func (e *Engine) IsAcceptedBlock(blockHash hash.Hash) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.blocks[blockHash]
	if !ok {
		return false, ErrUnknownBlock
	}
	cs, ok := e.conflicts[b.Height]
	if !ok {
		return false, ErrUnknownHeight
	}
	beta1 := clampUint8(e.params.Beta1)
	return cs.IsSingleton() && cs.Cnt >= beta1, nil
}

// Accept marks blockHash as the new last-accepted block, provided it has
// indeed reached finality.
func (e *Engine) Accept(blockHash hash.Hash) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.blocks[blockHash]
	if !ok {
		return ErrUnknownBlock
	}
	cs, ok := e.conflicts[b.Height]
	if !ok {
		return ErrUnknownHeight
	}
	beta1 := clampUint8(e.params.Beta1)
	if !(cs.IsSingleton() && cs.Cnt >= beta1) {
		return nil
	}
	e.lastAccepted = blockHash
	e.lastHeight = b.Height
	e.log.Info("block accepted", zap.Stringer("hash", blockHash), zap.Uint64("height", b.Height))
	return nil
}

// Sample draws a weighted sample of validators covering at least weight (as
// a fraction of total stake), mirroring sleet.Engine.Sample: the query
// committee for a block vote is drawn the same way as for a cell vote.
func (e *Engine) Sample(weight float64) ([]hash.NodeID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	candidates := make([]sampler.Weighted, len(e.validators))
	for i, v := range e.validators {
		candidates[i] = sampler.Weighted{ID: v.ID, Weight: committee.WeightOf(v.Stake, e.totalStake)}
	}
	sample, err := sampler.Sample(weight, candidates, e.rng)
	if err != nil {
		return nil, ErrInsufficientWeight
	}
	return sample, nil
}

// AnswerQuery responds to a peer's QueryBlock: b is inserted if unknown,
// then the outcome reports whether b is currently the preferred block at
// its height.
func (e *Engine) AnswerQuery(b state.Block) (hash.Hash, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	blockHash := b.Hash()
	if _, known := e.dag.Get(blockHash); !known {
		if err := e.insertBlockLocked(b); err != nil {
			return blockHash, false, err
		}
	}
	cs, ok := e.conflicts[b.Height]
	if !ok {
		return blockHash, false, nil
	}
	return blockHash, cs.Pref == blockHash, nil
}

// GetBlock returns a previously inserted block by hash.
func (e *Engine) GetBlock(blockHash hash.Hash) (state.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.blocks[blockHash]
	return b, ok
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
