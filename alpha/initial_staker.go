package alpha

import (
	"crypto/ed25519"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
)

// InitialStaker describes one genesis allocation: a deterministic keypair
// seed plus how much of its coinbase allocation is immediately locked into
// a stake. Every node bootstrapping from genesis must agree on the same
// ordered list of stakers, or they will derive different genesis hashes.
type InitialStaker struct {
	Seed             [ed25519.SeedSize]byte
	TotalAllocation  cell.Capacity
	StakedAllocation cell.Capacity
	StakingStart     uint64
}

// PrivateKey derives the staker's ed25519 key from its seed.
func (s InitialStaker) PrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(s.Seed[:])
}

// PublicKeyHash is the staker's address: its raw public key bytes copied
// into a hash-sized slot (matching the rest of this module's convention of
// using the public key itself, not a digest of it, as the lock value).
func (s InitialStaker) PublicKeyHash() cell.PublicKeyHash {
	pub := s.PrivateKey().Public().(ed25519.PublicKey)
	var pkh cell.PublicKeyHash
	copy(pkh[:], pub)
	return pkh
}

// NodeID is the staker's validator identity, shared with its PublicKeyHash.
func (s InitialStaker) NodeID() hash.NodeID {
	return hash.NodeID(s.PublicKeyHash())
}

// DefaultInitialStakers returns the three hardcoded genesis stakers used
// unless a deployment supplies its own list: each allocated 2000 capacity,
// half of it immediately staked so the remainder can be transferred.
func DefaultInitialStakers() []InitialStaker {
	stakers := make([]InitialStaker, 3)
	for i := range stakers {
		var seed [ed25519.SeedSize]byte
		seed[0] = byte(i + 1)
		stakers[i] = InitialStaker{
			Seed:             seed,
			TotalAllocation:  2000,
			StakedAllocation: 1000,
			StakingStart:     0,
		}
	}
	return stakers
}
