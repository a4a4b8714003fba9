package state_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/state"
)

func genesisKeys(t *testing.T, n int) []ed25519.PrivateKey {
	t.Helper()
	keys := make([]ed25519.PrivateKey, n)
	for i := 0; i < n; i++ {
		seed := make([]byte, ed25519.SeedSize)
		seed[0] = byte(i + 1)
		keys[i] = ed25519.NewKeyFromSeed(seed)
	}
	return keys
}

func pkhOfKey(priv ed25519.PrivateKey) cell.PublicKeyHash {
	pub := priv.Public().(ed25519.PublicKey)
	var h [32]byte
	copy(h[:], pub)
	return h
}

// buildGenesis allocates 2000 to each of three stakers via a single coinbase
// cell, then has each staker lock 1000 of it into a stake cell, mirroring
// the Rust source's build_genesis two-step shape (one coinbase, N stakes).
func buildGenesis(t *testing.T) state.Block {
	t.Helper()
	keys := genesisKeys(t, 3)

	var allocations []cell.Allocation
	for _, k := range keys {
		allocations = append(allocations, cell.Allocation{Recipient: pkhOfKey(k), Capacity: 2000})
	}
	coinbase := cell.NewCoinbaseOperation(allocations).Cell()

	var cells []cell.Cell
	cells = append(cells, coinbase)

	for i, k := range keys {
		pkh := pkhOfKey(k)
		nodeID := hash.NodeID(pkh)
		op := cell.NewStakeOperation(coinbase, nodeID, pkh, 1000, 0, 1_000_000)
		stakeCell, err := op.Stake(k, 0)
		require.NoErrorf(t, err, "staker %d", i)
		cells = append(cells, stakeCell)
	}

	return state.Block{
		Predecessor: nil,
		Height:      0,
		VRFOut:      hash.Hash{},
		Cells:       cells,
	}
}

func TestApplyGenesis(t *testing.T) {
	genesis := buildGenesis(t)

	s := state.New()
	next, err := s.Apply(genesis)
	require.NoError(t, err)

	// Each of the 3 stakers is allocated 2000 by the coinbase cell and locks
	// 1000 of it into a stake; the unstaked 1000 comes back as a 997 change
	// output once the fee of 3 is set aside. So spending settles at
	// 3*(2000-2000+997) = 2991 and staking at 3*1000 = 3000.
	assert.Equal(t, uint64(0), next.Height)
	assert.Equal(t, uint64(2991), next.TotalSpendingCapacity)
	assert.Equal(t, uint64(3000), next.TotalStakingCapacity)
	assert.Len(t, next.Validators, 3)
}

func TestApplyRejectsUnknownInputs(t *testing.T) {
	keys := genesisKeys(t, 1)
	pkh := pkhOfKey(keys[0])

	phantom := cell.NewCoinbaseOperation([]cell.Allocation{{Recipient: pkh, Capacity: 500}}).Cell()
	xfer := cell.NewTransferOperation(phantom, pkh, pkh, 400)
	tx, err := xfer.Transfer(keys[0])
	require.NoError(t, err)

	s := state.New()
	_, err = s.Apply(state.Block{Height: 0, Cells: []cell.Cell{tx}})
	assert.ErrorIs(t, err, state.ErrUndefinedCellIds)
}
