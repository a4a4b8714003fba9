// Package sampler implements the weighted sampling used by every
// Snowball-family engine to draw a query committee whose combined stake
// weight reaches a requested threshold.
package sampler

import (
	"errors"
	"math/rand"

	"github.com/zfxlabs/subzero/hash"
)

// ErrInsufficientWeight is returned when the candidate pool cannot reach the
// requested weight threshold even by including every member.
var ErrInsufficientWeight = errors.New("sampler: insufficient weight")

// Weighted pairs a node with its normalized weight (fraction of total stake,
// in [0, 1]).
type Weighted struct {
	ID     hash.NodeID
	Weight float64
}

// Sample draws members at random (shuffle, then walk in order) until their
// accumulated Weight reaches threshold, returning the ids chosen. It returns
// ErrInsufficientWeight if the whole candidate pool sums to less than
// threshold. Sampling without replacement mirrors the source's
// `weighted_sample`: a shuffled walk rather than a cumulative-distribution
// draw, since validators are rarely numerous enough for that to matter and
// the simpler walk is what the source does.
func Sample(threshold float64, candidates []Weighted, rng *rand.Rand) ([]hash.NodeID, error) {
	shuffled := make([]Weighted, len(candidates))
	copy(shuffled, candidates)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var sample []hash.NodeID
	var acc float64
	for _, c := range shuffled {
		if acc >= threshold {
			break
		}
		sample = append(sample, c.ID)
		acc += c.Weight
	}
	if acc < threshold {
		return nil, ErrInsufficientWeight
	}
	return sample, nil
}
