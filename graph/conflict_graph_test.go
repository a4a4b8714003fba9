package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/graph"
)

func TestConflictGraphPrefersFirstNonConflicting(t *testing.T) {
	priv1 := key(t, 0)
	priv2 := key(t, 1)
	pkh1 := pkhOf(priv1)
	pkh2 := pkhOf(priv2)

	genesis := cell.NewCoinbaseOperation([]cell.Allocation{
		{Recipient: pkh1, Capacity: 1000},
		{Recipient: pkh2, Capacity: 1000},
	}).Cell()

	genesisIds := cell.CellIdsFromOutputs(genesis.Hash(), genesis.Outputs())
	g := graph.NewConflictGraph(genesisIds)

	in0 := cell.NewInput(priv1, genesis.Hash(), 0)
	tx := cell.NewCell(cell.Inputs{in0}, []cell.Output{cell.TransferOutput(pkh2, 10)})
	require.NoError(t, g.InsertCell(tx))

	cs, ok := g.ConflictingCells(tx.Hash())
	require.True(t, ok)
	assert.Equal(t, tx.Hash(), cs.Pref)
	singleton, err := g.IsSingleton(tx.Hash())
	require.NoError(t, err)
	assert.True(t, singleton)

	// A second cell spending the same input conflicts and defers to tx's preference.
	tx2 := cell.NewCell(cell.Inputs{in0}, []cell.Output{cell.TransferOutput(pkh2, 20)})
	require.NoError(t, g.InsertCell(tx2))

	cs2, ok := g.ConflictingCells(tx2.Hash())
	require.True(t, ok)
	assert.Equal(t, tx.Hash(), cs2.Pref)
	singleton, err = g.IsSingleton(tx.Hash())
	require.NoError(t, err)
	assert.False(t, singleton)
}

func TestAcceptCellRemovesConflicts(t *testing.T) {
	priv1 := key(t, 0)
	pkh1 := pkhOf(priv1)

	genesis := cell.NewCoinbaseOperation([]cell.Allocation{{Recipient: pkh1, Capacity: 1000}}).Cell()
	genesisIds := cell.CellIdsFromOutputs(genesis.Hash(), genesis.Outputs())
	g := graph.NewConflictGraph(genesisIds)

	in0 := cell.NewInput(priv1, genesis.Hash(), 0)
	txA := cell.NewCell(cell.Inputs{in0}, []cell.Output{cell.TransferOutput(pkh1, 10)})
	txB := cell.NewCell(cell.Inputs{in0}, []cell.Output{cell.TransferOutput(pkh1, 20)})
	require.NoError(t, g.InsertCell(txA))
	require.NoError(t, g.InsertCell(txB))

	removed, err := g.AcceptCell(txA)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, txB.Hash(), removed[0])

	singleton, err := g.IsSingleton(txA.Hash())
	require.NoError(t, err)
	assert.True(t, singleton)
}
