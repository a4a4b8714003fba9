package ice

import (
	"math/rand"

	"github.com/zfxlabs/subzero/hash"
)

type decision struct {
	addr       string
	choice     Choice
	conviction int
}

// Decision is the externally visible snapshot of a peer's current liveness
// status.
type Decision struct {
	ID         hash.NodeID
	Addr       string
	Choice     Choice
	Conviction int
}

// Reservoir holds one liveness decision per known peer, plus the in-flight
// quorums collecting votes toward each of those decisions.
type Reservoir struct {
	k     int
	beta1 int
	alpha int
	rng   *rand.Rand

	decisions     map[hash.NodeID]decision
	quorums       map[hash.NodeID]*Quorum
	randomQueue   []hash.NodeID
	nBootstrapped int
}

// NewReservoir returns an empty reservoir tuned to k (sample size), beta1
// (conviction threshold) and alphaThreshold (quorum threshold).
func NewReservoir(k, beta1, alphaThreshold int, rng *rand.Rand) *Reservoir {
	return &Reservoir{
		k:         k,
		beta1:     beta1,
		alpha:     alphaThreshold,
		rng:       rng,
		decisions: map[hash.NodeID]decision{},
		quorums:   map[hash.NodeID]*Quorum{},
	}
}

// Len reports the number of recorded decisions.
func (r *Reservoir) Len() int { return len(r.decisions) }

// GetDecision returns the current decision for id, if any.
func (r *Reservoir) GetDecision(id hash.NodeID) (Decision, bool) {
	d, ok := r.decisions[id]
	if !ok {
		return Decision{}, false
	}
	return Decision{ID: id, Addr: d.addr, Choice: d.choice, Conviction: d.conviction}, true
}

// GetDecisions returns every recorded decision.
func (r *Reservoir) GetDecisions() map[hash.NodeID]Decision {
	out := make(map[hash.NodeID]Decision, len(r.decisions))
	for id, d := range r.decisions {
		out[id] = Decision{ID: id, Addr: d.addr, Choice: d.choice, Conviction: d.conviction}
	}
	return out
}

// GetLiveEndpoint returns id's address if it is confirmed Live (conviction
// has crossed beta1).
func (r *Reservoir) GetLiveEndpoint(id hash.NodeID) (string, bool) {
	d, ok := r.decisions[id]
	if !ok || d.choice != Live || d.conviction < r.beta1 {
		return "", false
	}
	return d.addr, true
}

// GetLivePeers returns every peer confirmed Live.
func (r *Reservoir) GetLivePeers() map[hash.NodeID]string {
	out := map[hash.NodeID]string{}
	for id, d := range r.decisions {
		if d.choice == Live && d.conviction >= r.beta1 {
			out[id] = d.addr
		}
	}
	return out
}

// Insert records (or overwrites) a decision for peerID.
func (r *Reservoir) Insert(peerID hash.NodeID, addr string, choice Choice, conviction int) {
	r.decisions[peerID] = decision{addr: addr, choice: choice, conviction: conviction}
}

// InsertNew records a decision for peerID only if none already exists.
func (r *Reservoir) InsertNew(peerID hash.NodeID, addr string, choice Choice, conviction int) {
	if _, exists := r.decisions[peerID]; !exists {
		r.decisions[peerID] = decision{addr: addr, choice: choice, conviction: conviction}
	}
}

// SetChoice overwrites peerID's choice, resetting conviction to 0.
func (r *Reservoir) SetChoice(peerID hash.NodeID, choice Choice) {
	if d, ok := r.decisions[peerID]; ok {
		d.choice = choice
		d.conviction = 0
		r.decisions[peerID] = d
	}
}

// UpdateChoice sets a new choice for peerID (resetting conviction if it
// actually changed), and reports whether the reservoir has a bootstrap
// quorum (k peers decided).
func (r *Reservoir) UpdateChoice(peerID hash.NodeID, addr string, choice Choice) bool {
	if d, ok := r.decisions[peerID]; ok {
		if d.choice != choice {
			d.choice = choice
			d.conviction = 0
			r.decisions[peerID] = d
		}
	}
	return r.nBootstrapped >= r.k
}

// permute rebuilds the random query queue from every decision whose
// conviction has not yet crossed beta1, shuffling it. Returns false if there
// was nothing to queue.
func (r *Reservoir) permute() bool {
	var queue []hash.NodeID
	for id, d := range r.decisions {
		if d.conviction >= r.beta1 {
			continue
		}
		queue = append(queue, id)
	}
	if len(queue) == 0 {
		return false
	}
	r.rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	r.randomQueue = queue
	return true
}

// Sample draws up to k peers to query, refilling the random queue from the
// decision set as needed. Sampling happens over every recorded decision
// (not just Live ones), since querying only-Live peers would never surface
// a recovering Faulty peer.
func (r *Reservoir) Sample() []Decision {
	if len(r.decisions) == 0 {
		return nil
	}
	var sample []Decision
	for len(sample) < r.k {
		if len(r.randomQueue) == 0 {
			if !r.permute() {
				break
			}
			continue
		}
		id := r.randomQueue[len(r.randomQueue)-1]
		r.randomQueue = r.randomQueue[:len(r.randomQueue)-1]
		d, ok := r.decisions[id]
		if !ok {
			continue
		}
		sample = append(sample, Decision{ID: id, Addr: d.addr, Choice: d.choice, Conviction: d.conviction})
	}
	return sample
}

// resetFaultyDecision reverts a Faulty peer back to Live with zero
// conviction, used when a previously unresponsive peer answers again.
func (r *Reservoir) resetFaultyDecision(id hash.NodeID) {
	d, ok := r.decisions[id]
	if !ok || d.choice != Faulty {
		return
	}
	d.choice = Live
	d.conviction = 0
	r.decisions[id] = d
}

func (r *Reservoir) resetConviction(id hash.NodeID) {
	if d, ok := r.decisions[id]; ok {
		d.conviction = 0
		r.decisions[id] = d
	}
}

// processQuorum folds responder's vote about peerID into peerID's
// in-flight quorum, creating one if none exists yet.
func (r *Reservoir) processQuorum(responder, peerID hash.NodeID, choice Choice) *Quorum {
	q, exists := r.quorums[peerID]
	if !exists {
		q = NewQuorum()
		r.quorums[peerID] = q
	}
	if q.Contains(responder) {
		return q
	}
	q.Insert(responder, choice)
	return q
}

// processDecision finalizes peerID's quorum if it has decided, advancing or
// resetting its conviction, and reports the reservoir's bootstrap status.
func (r *Reservoir) processDecision(peerID hash.NodeID, q *Quorum) bool {
	defer delete(r.quorums, peerID)

	choice, decided := q.Decide(r.alpha)
	if !decided {
		r.resetConviction(peerID)
		return false
	}

	d, ok := r.decisions[peerID]
	if ok {
		if d.choice != choice {
			d.choice = choice
			d.conviction = 0
		} else {
			d.conviction++
			if d.choice == Faulty && d.conviction >= r.beta1 {
				r.nBootstrapped--
			} else if d.choice == Live && d.conviction >= r.beta1 {
				r.nBootstrapped++
			}
		}
		r.decisions[peerID] = d
	}
	return r.nBootstrapped >= r.k
}

// processOutcome folds one query outcome, reported by responder, into the
// quorum for the peer the outcome concerns, deciding it once k responses
// have accumulated.
func (r *Reservoir) processOutcome(responder hash.NodeID, outcome Outcome) {
	q := r.processQuorum(responder, outcome.PeerID, outcome.Choice)
	if q.Len() >= r.k {
		r.processDecision(outcome.PeerID, q)
	}
}

// Fill processes every outcome reported by responder's ack, first
// reintegrating responder itself if it had been marked Faulty. Returns the
// reservoir's bootstrap status.
func (r *Reservoir) Fill(responder hash.NodeID, outcomes []Outcome) bool {
	r.resetFaultyDecision(responder)
	for _, o := range outcomes {
		r.processOutcome(responder, o)
	}
	return r.nBootstrapped >= r.k
}
