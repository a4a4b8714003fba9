package graph_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/graph"
)

func key(t *testing.T, i int) ed25519.PrivateKey {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = byte(i + 1)
	return ed25519.NewKeyFromSeed(seed)
}

func pkhOf(priv ed25519.PrivateKey) cell.PublicKeyHash {
	pub := priv.Public().(ed25519.PublicKey)
	var h [32]byte
	copy(h[:], pub)
	return h
}

func TestDependencyGraphOrdersByDependency(t *testing.T) {
	priv1 := key(t, 0)
	pkh1 := pkhOf(priv1)

	genesis := cell.NewCoinbaseOperation([]cell.Allocation{{Recipient: pkh1, Capacity: 1000}, {Recipient: pkh1, Capacity: 1000}}).Cell()

	tx1, err := cell.NewTransferOperation(genesis, pkh1, pkh1, 1000).Transfer(priv1)
	require.NoError(t, err)
	tx2, err := cell.NewTransferOperation(tx1, pkh1, pkh1, 900).Transfer(priv1)
	require.NoError(t, err)
	tx3, err := cell.NewTransferOperation(tx1, pkh1, pkh1, 800).Transfer(priv1)
	require.NoError(t, err)

	g := graph.NewDependencyGraph()
	// insert in a shuffled order
	require.NoError(t, g.Insert(tx3))
	require.NoError(t, g.Insert(genesis))
	require.NoError(t, g.Insert(tx1))
	require.NoError(t, g.Insert(tx2))

	ordered, err := g.TopologicalCells([]cell.Cell{genesis, tx1, tx2, tx3})
	require.NoError(t, err)
	require.Len(t, ordered, 4)

	pos := map[[32]byte]int{}
	for i, c := range ordered {
		pos[c.Hash()] = i
	}
	require.Less(t, pos[genesis.Hash()], pos[tx1.Hash()])
	require.Less(t, pos[tx1.Hash()], pos[tx2.Hash()])
	require.Less(t, pos[tx1.Hash()], pos[tx3.Hash()])
}
