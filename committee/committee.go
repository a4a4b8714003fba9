// Package committee computes validator weights and runs the VRF-threshold
// sortition used by ice (liveness sampling) and hail (block-producer
// selection) to turn a validator's raw stake into a usable probability.
package committee

import (
	"math"

	"github.com/zfxlabs/subzero/hash"
)

// Validator is one entry of the live validator set: an id and its staked
// capacity.
type Validator struct {
	ID    hash.NodeID
	Stake uint64
}

// WeightOf converts a validator's raw stake into its fraction of total
// staked capacity. It mirrors the source's `util::percent_of`.
func WeightOf(stake, totalStake uint64) float64 {
	if totalStake == 0 {
		return 0
	}
	return float64(stake) / float64(totalStake)
}

// ExpectedCommitteeSize is the target query-committee size for a validator
// set of n members: sqrt(n), rounded up, matching the source's
// `(validators.len() as f64).sqrt().ceil()` used by both ice and hail when
// sizing their LiveCommittee sortition.
func ExpectedCommitteeSize(n int) float64 {
	size := math.Ceil(math.Sqrt(float64(n)))
	if size < 1 {
		size = 1
	}
	return size
}
