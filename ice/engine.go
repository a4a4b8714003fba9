package ice

import (
	"math"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/zfxlabs/subzero/committee"
	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/log"
)

// Ack is the response to a Ping: the responder's own id plus its answer to
// every query it was asked.
type Ack struct {
	ID       hash.NodeID
	Outcomes []Outcome
}

// Switch reports a transition in the engine's own bootstrap status.
type Switch struct {
	Flipped      bool
	Bootstrapped bool
}

// Engine is the liveness-detection actor: one instance per node, holding a
// Reservoir of per-peer decisions. All exported methods are safe for
// concurrent use and behave as if run on a single goroutine (guarded by an
// internal mutex), matching this module's single-actor-per-engine
// convention.
type Engine struct {
	mu sync.Mutex

	id   hash.NodeID
	addr string

	reservoir    *Reservoir
	bootstrapped bool

	log log.Logger
}

// NewEngine returns an Engine for the local peer (id, addr), tuned by
// params.
func NewEngine(id hash.NodeID, addr string, params config.Parameters, rng *rand.Rand, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NoOp()
	}
	return &Engine{
		id:        id,
		addr:      addr,
		reservoir: NewReservoir(params.K, params.Beta1, params.AlphaThreshold(), rng),
		log:       logger,
	}
}

// processQuery answers a single incoming Query against the local reservoir.
func (e *Engine) processQuery(q Query) Outcome {
	if q.PeerID == e.id {
		return Outcome{PeerID: q.PeerID, Choice: Live}
	}
	if d, ok := e.reservoir.GetDecision(q.PeerID); ok {
		return Outcome{PeerID: q.PeerID, Choice: d.Choice}
	}
	// No prior decision: record the peer as Live with zero conviction, and
	// echo the asker's belief back.
	e.reservoir.Insert(q.PeerID, q.Addr, Live, 0)
	return Outcome{PeerID: q.PeerID, Choice: q.Choice}
}

// Ping answers every query carried in a peer's ping.
func (e *Engine) Ping(fromID hash.NodeID, queries []Query) Ack {
	e.mu.Lock()
	defer e.mu.Unlock()

	outcomes := make([]Outcome, 0, len(queries))
	for _, q := range queries {
		e.log.Debug("received query", zap.Stringer("from", fromID), zap.Stringer("peer", q.PeerID))
		outcomes = append(outcomes, e.processQuery(q))
	}
	return Ack{ID: e.id, Outcomes: outcomes}
}

// Bootstrap seeds the reservoir with an initial peer set, all considered
// Live with zero conviction.
func (e *Engine) Bootstrap(peers map[hash.NodeID]string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, addr := range peers {
		e.reservoir.Insert(id, addr, Live, 0)
	}
	e.log.Info("bootstrapped reservoir", zap.Int("peers", len(peers)))
}

// SampleQueries registers (id, addr) in the reservoir if unseen, then draws
// up to K peers from the reservoir to query.
func (e *Engine) SampleQueries(id hash.NodeID, addr string) []Query {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reservoir.InsertNew(id, addr, Live, 0)

	if e.reservoir.Len() == 0 {
		e.log.Warn("reservoir uninitialized")
		return nil
	}
	sample := e.reservoir.Sample()
	queries := make([]Query, 0, len(sample))
	for _, d := range sample {
		queries = append(queries, Query{PeerID: d.ID, Choice: d.Choice, Addr: d.Addr})
	}
	return queries
}

// PingSuccess folds a peer's Ack into the reservoir and reports whether the
// engine's own bootstrap status flipped as a result.
func (e *Engine) PingSuccess(ack Ack) Switch {
	e.mu.Lock()
	defer e.mu.Unlock()

	bootstrapped := e.reservoir.Fill(ack.ID, ack.Outcomes)
	if bootstrapped == e.bootstrapped {
		return Switch{Flipped: false, Bootstrapped: e.bootstrapped}
	}
	e.bootstrapped = bootstrapped
	return Switch{Flipped: true, Bootstrapped: bootstrapped}
}

// PingFailure marks (id, addr) Faulty after a failed ping, returning true
// if this caused the engine to fall out of bootstrapped status.
func (e *Engine) PingFailure(id hash.NodeID, addr string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	stillBootstrapped := e.reservoir.UpdateChoice(id, addr, Faulty)
	if !stillBootstrapped && e.bootstrapped {
		e.bootstrapped = false
		return true
	}
	return false
}

// GetLivePeers returns every peer currently confirmed Live.
func (e *Engine) GetLivePeers() map[hash.NodeID]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reservoir.GetLivePeers()
}

// Bootstrapped reports the engine's current bootstrap status.
func (e *Engine) Bootstrapped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bootstrapped
}

// ProducerSlot is the outcome of sortition for a single validator at a
// given height: whether, and with what weight, it was selected to produce.
type ProducerSlot struct {
	ID     hash.NodeID
	Weight uint64
}

// LiveCommittee runs sortition over the current validator set for the
// given height's VRF output, reporting each validator's producer weight.
// Weight > 0 means that validator is a block producer for this height.
func (e *Engine) LiveCommittee(vrfOut hash.Hash, validators []committee.Validator, totalStake uint64) []ProducerSlot {
	e.mu.Lock()
	defer e.mu.Unlock()

	expectedSize := math.Ceil(math.Sqrt(float64(len(validators))))
	e.log.Info("received live committee", zap.Float64("expected_size", expectedSize))

	slots := make([]ProducerSlot, 0, len(validators))
	for _, v := range validators {
		vrfHash := committee.VRFHash(v.ID, vrfOut)
		w := committee.Select(v.Stake, totalStake, expectedSize, vrfHash)
		if v.ID == e.id {
			if w > 0 {
				e.log.Info("this node is a block producer")
			} else {
				e.log.Info("this node is not a block producer")
			}
		}
		slots = append(slots, ProducerSlot{ID: v.ID, Weight: w})
	}
	return slots
}
