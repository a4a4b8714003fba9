package ice

import "github.com/zfxlabs/subzero/hash"

// Quorum accumulates one Choice per responding peer for a single consensus
// instance (the instance being some other peer's liveness), until it can be
// decided against the configured alpha threshold.
type Quorum struct {
	choices map[hash.NodeID]Choice
}

// NewQuorum returns an empty quorum.
func NewQuorum() *Quorum {
	return &Quorum{choices: map[hash.NodeID]Choice{}}
}

// Len reports how many responders have contributed a choice.
func (q *Quorum) Len() int { return len(q.choices) }

// Contains reports whether responder has already contributed to q.
func (q *Quorum) Contains(responder hash.NodeID) bool {
	_, ok := q.choices[responder]
	return ok
}

// Insert records responder's choice, overwriting any prior entry.
func (q *Quorum) Insert(responder hash.NodeID, choice Choice) {
	q.choices[responder] = choice
}

// Decide returns the choice with more than the alpha threshold of votes,
// or ok=false if neither Live nor Faulty has crossed it yet.
func (q *Quorum) Decide(alphaThreshold int) (choice Choice, ok bool) {
	var nLive, nFaulty int
	for _, c := range q.choices {
		switch c {
		case Live:
			nLive++
		case Faulty:
			nFaulty++
		}
	}
	if nLive > alphaThreshold {
		return Live, true
	}
	if nFaulty > alphaThreshold {
		return Faulty, true
	}
	return Live, false
}
