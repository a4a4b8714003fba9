package committee

import (
	"encoding/binary"
	"math"

	"github.com/zfxlabs/subzero/hash"
)

// VRFHash derives the per-validator sortition entropy for a given
// liveness/block-production round: blake3(id || vrfOut).
func VRFHash(id hash.NodeID, vrfOut hash.Hash) hash.Hash {
	return hash.Sum(id[:], vrfOut[:])
}

// Select runs VRF-threshold sortition: given a validator's stake, the
// network's totalStake and the expected committee size for this round, it
// deterministically decides - from vrfHash alone - how many sub-credentials
// (if any) the validator wins. A result of 0 means the validator was not
// selected this round; the caller (ice, hail) only needs to know whether the
// result is > 0 to know it was.
//
// The probability a validator with fraction-of-stake p = stake/totalStake
// wins is p scaled by expectedSize, capped at 1: this recovers the intended
// E[selected] == expectedSize across the whole validator set. vrfHash is
// treated as a uniform draw over [0, 1) by reading its first 8 bytes as a
// big-endian fraction of 2^64.
func Select(stake, totalStake uint64, expectedSize float64, vrfHash hash.Hash) uint64 {
	if totalStake == 0 || stake == 0 || expectedSize <= 0 {
		return 0
	}
	p := expectedSize * WeightOf(stake, totalStake)
	if p > 1 {
		p = 1
	}
	draw := uniformFromHash(vrfHash)
	if draw >= p {
		return 0
	}
	won := uint64(math.Ceil(p))
	if won < 1 {
		won = 1
	}
	return won
}

func uniformFromHash(h hash.Hash) float64 {
	n := binary.BigEndian.Uint64(h[:8])
	return float64(n) / float64(math.MaxUint64)
}
