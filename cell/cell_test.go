package cell_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
)

func testKeys(t *testing.T) (priv1, priv2 ed25519.PrivateKey, pkh1, pkh2 cell.PublicKeyHash) {
	t.Helper()
	seed1 := make([]byte, ed25519.SeedSize)
	seed2 := make([]byte, ed25519.SeedSize)
	seed1[0], seed2[0] = 0x01, 0x02
	priv1 = ed25519.NewKeyFromSeed(seed1)
	priv2 = ed25519.NewKeyFromSeed(seed2)
	pub1 := priv1.Public().(ed25519.PublicKey)
	pub2 := priv2.Public().(ed25519.PublicKey)
	var h1, h2 [32]byte
	copy(h1[:], pub1)
	copy(h2[:], pub2)
	return priv1, priv2, h1, h2
}

func genCoinbase(pkh cell.PublicKeyHash, amount cell.Capacity) cell.Cell {
	op := cell.NewCoinbaseOperation([]cell.Allocation{{Recipient: pkh, Capacity: amount}})
	return op.Cell()
}

func TestCellIdsFromOutputsMatchInputs(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)

	op := cell.NewCoinbaseOperation([]cell.Allocation{
		{Recipient: pkh1, Capacity: 1000},
		{Recipient: pkh1, Capacity: 1000},
	})
	genesis := op.Cell()
	genesisOutputIds := cell.CellIdsFromOutputs(genesis.Hash(), genesis.Outputs())

	xfer := cell.NewTransferOperation(genesis, pkh2, pkh1, 1100)
	tx, err := xfer.Transfer(priv1)
	require.NoError(t, err)

	txInputIds := cell.CellIdsFromInputs(tx.Inputs())
	assert.True(t, genesisOutputIds.Equals(txInputIds))
}

func TestHashIsStableUnderReconstruction(t *testing.T) {
	_, _, pkh1, _ := testKeys(t)
	c1 := genCoinbase(pkh1, 500)
	c2 := cell.NewCell(c1.Inputs(), c1.Outputs())
	assert.Equal(t, c1.Hash(), c2.Hash())
}
