// Package alpha is the chain driver: it ties ice, sleet and hail together,
// bootstraps or restores the genesis block, applies accepted blocks to
// State, and keeps every engine's validator committee current.
package alpha

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/committee"
	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/hail"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/log"
	"github.com/zfxlabs/subzero/sleet"
	"github.com/zfxlabs/subzero/state"
)

// maxQueryRounds bounds how many Snowball query rounds SubmitCell/
// ProduceBlock will run before giving up on finalizing a single vertex,
// guarding against a committee that never reaches quorum.
const maxQueryRounds = 256

// Store is alpha's persistence seam: durable storage for blocks, satisfied
// by the pebble-backed store.Store that cmd/node passes in.
// A nil Store is valid - genesis is then rebuilt fresh on every startup.
type Store interface {
	// LoadGenesis returns a previously persisted genesis block, if any.
	LoadGenesis() (state.Block, bool, error)
	// PutBlock durably records b.
	PutBlock(b state.Block) error
}

// PeerClient is alpha's network seam: LiveNetwork's last-accepted-block
// poll, plus the query rounds SubmitCell and ProduceBlock drive against the
// committee. A failed or timed-out query reports ok=false, which must not
// count as a vote either way.
type PeerClient interface {
	QueryLastAccepted(peer hash.NodeID, addr string) (last hash.Hash, ok bool)
	// QueryTx asks peer whether it prefers c, answering sleet's QueryCell.
	QueryTx(peer hash.NodeID, addr string, c cell.Cell) (outcome bool, ok bool)
	// QueryBlock asks peer whether it prefers b, answering hail's AnswerQuery.
	QueryBlock(peer hash.NodeID, addr string, b state.Block) (outcome bool, ok bool)
}

// Engine is the chain-driver actor: the current State, the last accepted
// block, and handles to the engines whose committees it keeps in sync.
// All exported methods are guarded by an internal mutex.
type Engine struct {
	mu sync.Mutex

	selfID hash.NodeID

	sleet *sleet.Engine
	hail  *hail.Engine

	store Store

	state        *state.State
	lastBlock    state.Block
	lastAccepted hash.Hash

	params config.Parameters
	log    log.Logger
}

// NewEngine wires an Engine to the already-constructed sleet and hail
// engines it must keep informed of committee changes. Call Bootstrap before
// using any other method.
func NewEngine(selfID hash.NodeID, sleetEngine *sleet.Engine, hailEngine *hail.Engine, store Store, params config.Parameters, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NoOp()
	}
	return &Engine{
		selfID: selfID,
		sleet:  sleetEngine,
		hail:   hailEngine,
		store:  store,
		params: params,
		log:    logger,
	}
}

// Bootstrap loads a previously persisted genesis block or synthesizes a
// fresh one from stakers, applies it to an empty State, and - if it was
// freshly synthesized - persists it.
func (e *Engine) Bootstrap(stakers []InitialStaker) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	genesis, existed, err := e.loadOrBuildGenesisLocked(stakers)
	if err != nil {
		return err
	}
	next, err := state.New().Apply(genesis)
	if err != nil {
		return err
	}
	e.state = next
	e.lastBlock = genesis
	e.lastAccepted = genesis.Hash()

	if !existed && e.store != nil {
		if err := e.store.PutBlock(genesis); err != nil {
			return err
		}
	}
	e.log.Info("genesis applied", zap.Stringer("hash", e.lastAccepted), zap.Bool("restored", existed))
	return nil
}

func (e *Engine) loadOrBuildGenesisLocked(stakers []InitialStaker) (state.Block, bool, error) {
	if e.store != nil {
		if b, ok, err := e.store.LoadGenesis(); err != nil {
			return state.Block{}, false, err
		} else if ok {
			return b, true, nil
		}
	}
	genesis, err := BuildGenesis(stakers, e.params.MinStakeDuration)
	return genesis, false, err
}

// LiveNetwork polls peers for their last accepted block hash; once at least
// AlphaThreshold of them agree with this node's own last-accepted hash, the
// current committee is forwarded to sleet and hail. It reports whether
// quorum was reached - a false result means the chain requires
// bootstrapping from a peer, which this engine does not yet implement.
func (e *Engine) LiveNetwork(peers map[hash.NodeID]string, client PeerClient) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return false, ErrNotBootstrapped
	}
	if len(peers) == 0 {
		return false, nil
	}

	agree := 0
	for id, addr := range peers {
		last, ok := client.QueryLastAccepted(id, addr)
		if !ok {
			continue
		}
		if last == e.lastAccepted {
			agree++
		}
	}

	if agree < e.params.AlphaThreshold() {
		e.log.Warn("chain requires bootstrapping", zap.Stringer("last_accepted", e.lastAccepted), zap.Int("agree", agree))
		return false, nil
	}

	e.propagateCommitteeLocked()
	return true, nil
}

// AcceptedBlock applies a block finalized by hail to State, persists it,
// and re-issues the (possibly changed) committee to sleet and hail. Blocks
// must arrive in ascending height; anything else is rejected rather than
// silently reordered.
func (e *Engine) AcceptedBlock(b state.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return ErrNotBootstrapped
	}
	if b.Height != e.state.Height+1 {
		return ErrOutOfOrderBlock
	}

	next, err := e.state.Apply(b)
	if err != nil {
		return err
	}
	e.state = next
	e.lastBlock = b
	e.lastAccepted = b.Hash()

	if e.store != nil {
		if err := e.store.PutBlock(b); err != nil {
			return err
		}
	}

	e.log.Info("accepted block applied", zap.Stringer("hash", e.lastAccepted), zap.Uint64("height", b.Height))
	e.propagateCommitteeLocked()
	return nil
}

// propagateCommitteeLocked hands the current validator set down to sleet
// (for weighted sampling) and hail (for the next height's sortition round,
// seeded by the last accepted block's VRF output).
func (e *Engine) propagateCommitteeLocked() {
	validators := append([]committee.Validator(nil), e.state.Validators...)
	totalStake := e.state.TotalStakingCapacity

	if e.sleet != nil {
		e.sleet.LiveCommittee(validators, totalStake)
	}
	if e.hail != nil {
		nextHeight := e.state.Height + 1
		e.hail.LiveCommittee(nextHeight, validators, totalStake, e.lastBlock.VRFOut)
	}
}

// SubmitCell is the client-submit path: it hands c to sleet, then drives
// repeated query rounds against peers until c leaves the Queried status
// (accepted, rejected, or removed as a side effect of a conflicting
// accept) or maxQueryRounds is exhausted. A duplicate submission returns
// the zero hash rather than an error, matching spec.md's "stable null ack".
func (e *Engine) SubmitCell(c cell.Cell, peers map[hash.NodeID]string, client PeerClient) (hash.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sleet == nil {
		return hash.Hash{}, ErrNotBootstrapped
	}
	cellHash := c.Hash()
	if _, known := e.sleet.GetCell(cellHash); known {
		return hash.Hash{}, nil
	}
	if err := e.sleet.ReceiveCell(c); err != nil {
		return hash.Hash{}, err
	}
	if _, ok := e.sleet.GetCell(cellHash); !ok {
		// Coinbase cells are accepted by ReceiveCell without ever entering
		// the DAG; there is nothing further to query.
		return cellHash, nil
	}
	if err := e.driveCellQueryRoundsLocked(cellHash, peers, client); err != nil {
		return hash.Hash{}, err
	}
	return cellHash, nil
}

// driveCellQueryRoundsLocked samples the committee and queries it about
// cellHash, round after round, until sleet reports cellHash has left the
// Queried status or the round budget is exhausted.
func (e *Engine) driveCellQueryRoundsLocked(cellHash hash.Hash, peers map[hash.NodeID]string, client PeerClient) error {
	alphaWeight := float64(e.params.AlphaNum) / float64(e.params.AlphaDen)
	for round := 0; round < maxQueryRounds; round++ {
		status, known := e.sleet.Status(cellHash)
		if !known || status != sleet.StatusQueried {
			return nil
		}
		c, ok := e.sleet.GetCell(cellHash)
		if !ok {
			return nil
		}
		sample, err := e.sleet.Sample(alphaWeight)
		if err != nil {
			return err
		}
		votes, responded := e.tallyCellVotesLocked(c, sample, peers, client)
		if responded == 0 {
			continue
		}
		won := votes > e.params.AlphaThresholdOf(responded)
		if _, err := e.sleet.RecordQueryOutcome(cellHash, won); err != nil {
			return err
		}
	}
	e.log.Warn("cell query rounds exhausted without finalizing", zap.Stringer("hash", cellHash))
	return nil
}

// tallyCellVotesLocked dials every sampled peer (treating selfID as an
// automatic true vote) and counts outcomes; peers that do not answer in
// time are simply excluded from both votes and responded, per spec.md's
// "query send failures do not count toward the threshold".
func (e *Engine) tallyCellVotesLocked(c cell.Cell, sample []hash.NodeID, peers map[hash.NodeID]string, client PeerClient) (votes, responded int) {
	for _, id := range sample {
		if id == e.selfID {
			votes++
			responded++
			continue
		}
		addr, ok := peers[id]
		if !ok {
			continue
		}
		outcome, ok := client.QueryTx(id, addr, c)
		if !ok {
			continue
		}
		responded++
		if outcome {
			votes++
		}
	}
	return votes, responded
}

// ProduceBlock is the acceptance-to-block-production loop: it drains
// sleet's finalized cells, proposes a block if this node currently holds a
// producer slot, drives query rounds on that block against peers, and -
// once hail reports it final - applies it via AcceptedBlock. It returns
// the zero hash and no error when this node holds no producer slot or has
// nothing new to propose.
func (e *Engine) ProduceBlock(peers map[hash.NodeID]string, client PeerClient) (hash.Hash, error) {
	e.mu.Lock()
	if e.hail == nil || e.sleet == nil {
		e.mu.Unlock()
		return hash.Hash{}, ErrNotBootstrapped
	}
	cells := e.sleet.DrainAccepted()
	if len(cells) == 0 {
		e.mu.Unlock()
		return hash.Hash{}, nil
	}
	block, err := e.hail.ProposeBlock(cells)
	if err != nil {
		e.mu.Unlock()
		if errors.Is(err, hail.ErrNoProducerSlot) || errors.Is(err, hail.ErrAlreadyProposed) {
			return hash.Hash{}, nil
		}
		return hash.Hash{}, err
	}
	if err := e.hail.InsertBlock(block); err != nil {
		e.mu.Unlock()
		return hash.Hash{}, err
	}
	if err := e.driveBlockQueryRoundsLocked(block, peers, client); err != nil {
		e.mu.Unlock()
		return hash.Hash{}, err
	}
	blockHash := block.Hash()
	if err := e.hail.Accept(blockHash); err != nil {
		e.mu.Unlock()
		return hash.Hash{}, err
	}
	e.mu.Unlock()

	accepted, err := e.hail.IsAcceptedBlock(blockHash)
	if err != nil {
		return hash.Hash{}, err
	}
	if !accepted {
		return hash.Hash{}, nil
	}
	if err := e.AcceptedBlock(block); err != nil {
		return hash.Hash{}, err
	}
	return blockHash, nil
}

// driveBlockQueryRoundsLocked samples the committee and queries it about b,
// round after round, until hail reports b accepted or the round budget is
// exhausted.
func (e *Engine) driveBlockQueryRoundsLocked(b state.Block, peers map[hash.NodeID]string, client PeerClient) error {
	blockHash := b.Hash()
	alphaWeight := float64(e.params.AlphaNum) / float64(e.params.AlphaDen)
	for round := 0; round < maxQueryRounds; round++ {
		accepted, err := e.hail.IsAcceptedBlock(blockHash)
		if err != nil {
			return err
		}
		if accepted {
			return nil
		}
		sample, err := e.hail.Sample(alphaWeight)
		if err != nil {
			return err
		}
		votes, responded := e.tallyBlockVotesLocked(b, sample, peers, client)
		if responded == 0 {
			continue
		}
		if _, err := e.hail.RecordQueryOutcome(blockHash, votes, responded); err != nil {
			return err
		}
	}
	e.log.Warn("block query rounds exhausted without finalizing", zap.Stringer("hash", blockHash))
	return nil
}

// tallyBlockVotesLocked mirrors tallyCellVotesLocked for block queries.
func (e *Engine) tallyBlockVotesLocked(b state.Block, sample []hash.NodeID, peers map[hash.NodeID]string, client PeerClient) (votes, responded int) {
	for _, id := range sample {
		if id == e.selfID {
			votes++
			responded++
			continue
		}
		addr, ok := peers[id]
		if !ok {
			continue
		}
		outcome, ok := client.QueryBlock(id, addr, b)
		if !ok {
			continue
		}
		responded++
		if outcome {
			votes++
		}
	}
	return votes, responded
}

// LastAccepted returns the last accepted block's hash and height.
func (e *Engine) LastAccepted() (hash.Hash, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return hash.Hash{}, 0
	}
	return e.lastAccepted, e.state.Height
}

// State returns a snapshot of the current ledger state, safe for the
// caller to inspect without racing further Apply calls.
func (e *Engine) State() (*state.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNotBootstrapped
	}
	return e.state.Clone(), nil
}
