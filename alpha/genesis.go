package alpha

import (
	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/state"
)

// genesisVRFOut is the fixed, pre-agreed VRF output seeding the first
// sortition round after genesis - every node must derive the same value
// without having produced a real block yet.
var genesisVRFOut = hash.Sum([]byte("subzero genesis vrf seed"))

// BuildGenesis constructs the height-0 block: one coinbase cell minting the
// total allocation to every staker, followed by one stake cell per staker
// spending out of that single coinbase. Aggregating all allocations into
// one coinbase cell, rather than one per staker, keeps the conflict graph's
// genesis frontier to a single vertex.
func BuildGenesis(stakers []InitialStaker, minStakeDuration uint64) (state.Block, error) {
	if len(stakers) == 0 {
		return state.Block{}, ErrNoInitialStakers
	}

	allocations := make([]cell.Allocation, len(stakers))
	for i, s := range stakers {
		allocations[i] = cell.Allocation{Recipient: s.PublicKeyHash(), Capacity: s.TotalAllocation}
	}
	coinbase := cell.NewCoinbaseOperation(allocations).Cell()

	cells := make([]cell.Cell, 0, len(stakers)+1)
	cells = append(cells, coinbase)

	for _, s := range stakers {
		pkh := s.PublicKeyHash()
		op := cell.NewStakeOperation(coinbase, s.NodeID(), pkh, s.StakedAllocation, s.StakingStart, s.StakingStart+minStakeDuration)
		stakeCell, err := op.Stake(s.PrivateKey(), minStakeDuration)
		if err != nil {
			return state.Block{}, err
		}
		cells = append(cells, stakeCell)
	}

	return state.Block{
		Predecessor: nil,
		Height:      0,
		VRFOut:      genesisVRFOut,
		Cells:       cells,
	}, nil
}

// GenesisCellIds collects the CellId of every output produced by genesis's
// cells, suitable for seeding sleet's conflict graph before a single
// transfer has been submitted. sleet.NewEngine must be constructed with this
// set (or the equivalent for a restored genesis) - otherwise it rejects the
// first cell anyone submits spending a genesis staker's own residue as
// ErrUndefinedCell, since its conflict graph only recognizes vertices it was
// seeded with.
func GenesisCellIds(genesis state.Block) cell.CellIds {
	ids := cell.EmptyCellIds()
	for _, c := range genesis.Cells {
		ids.Union(cell.CellIdsFromOutputs(c.Hash(), c.Outputs()).Set)
	}
	return ids
}
