package sleet_test

import (
	"crypto/ed25519"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/committee"
	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/sleet"
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
	copy(pkh1[:], pub1)
	copy(pkh2[:], pub2)
	return
}

func genCoinbase(pkh cell.PublicKeyHash, amount cell.Capacity) cell.Cell {
	op := cell.NewCoinbaseOperation([]cell.Allocation{{Recipient: pkh, Capacity: amount}})
	return op.Cell()
}

// sleetParams overrides the shared defaults with the finality thresholds
// this engine actually uses (distinct from ice's liveness thresholds).
func sleetParams() config.Parameters {
	p := config.Default()
	p.Beta1 = 11
	p.Beta2 = 20
	p.NParents = 3
	return p
}

func TestSelectParentsOnEmptyDAGReturnsNone(t *testing.T) {
	_, _, pkh1, _ := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)
	parents, err := e.SelectParents(3)
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestInsertAndStronglyPreferredSingleCell(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx, err := xfer.Transfer(priv1)
	require.NoError(t, err)

	require.NoError(t, e.Insert(tx, nil))

	preferred, err := e.IsStronglyPreferred(tx.Hash())
	require.NoError(t, err)
	assert.True(t, preferred)
}

func TestConflictingCellsOnlyFirstPreferred(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer1 := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx1, err := xfer1.Transfer(priv1)
	require.NoError(t, err)

	xfer2 := cell.NewTransferOperation(coinbase, pkh1, pkh2, 400)
	tx2, err := xfer2.Transfer(priv1)
	require.NoError(t, err)

	require.NoError(t, e.Insert(tx1, nil))
	require.NoError(t, e.Insert(tx2, nil))

	pref1, err := e.IsStronglyPreferred(tx1.Hash())
	require.NoError(t, err)
	pref2, err := e.IsStronglyPreferred(tx2.Hash())
	require.NoError(t, err)

	// Exactly one of the two conflicting spends is preferred - whichever
	// was inserted first anchors the conflict set's starting preference.
	assert.True(t, pref1)
	assert.False(t, pref2)
}

func TestIsAcceptedFalseBeforeAnyQueryRound(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx, err := xfer.Transfer(priv1)
	require.NoError(t, err)
	require.NoError(t, e.Insert(tx, nil))

	// tx has no parents recorded in the DAG (none passed to Insert), so the
	// parent check passes vacuously; it still isn't accepted because no
	// query round has run, leaving its own confidence at zero.
	accepted, err := e.IsAccepted(tx.Hash())
	require.NoError(t, err)
	assert.False(t, accepted)
}

func TestGetAcceptedFrontierEmptyDAG(t *testing.T) {
	_, _, pkh1, _ := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)
	frontier, err := e.GetAcceptedFrontier()
	require.NoError(t, err)
	assert.Empty(t, frontier)
}

func TestSampleInsufficientWeight(t *testing.T) {
	_, _, pkh1, _ := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	_, err := e.Sample(0.66)
	assert.ErrorIs(t, err, sleet.ErrInsufficientWeight)

	e.LiveCommittee([]committee.Validator{{ID: nodeID(1), Stake: 10}, {ID: nodeID(2), Stake: 10}}, 100)
	_, err = e.Sample(0.66)
	assert.ErrorIs(t, err, sleet.ErrInsufficientWeight)
}

func TestSampleCoversRequestedWeight(t *testing.T) {
	_, _, pkh1, _ := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)
	e.LiveCommittee([]committee.Validator{{ID: nodeID(1), Stake: 70}}, 100)

	sample, err := e.Sample(0.66)
	require.NoError(t, err)
	assert.Equal(t, []hash.NodeID{nodeID(1)}, sample)
}

func TestRecordQueryOutcomeAcceptsSingletonAfterBeta1Wins(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx, err := xfer.Transfer(priv1)
	require.NoError(t, err)
	require.NoError(t, e.Insert(tx, nil))

	for i := 0; i < 10; i++ {
		accepted, err := e.RecordQueryOutcome(tx.Hash(), true)
		require.NoError(t, err)
		assert.False(t, accepted)
	}
	accepted, err := e.RecordQueryOutcome(tx.Hash(), true)
	require.NoError(t, err)
	assert.True(t, accepted)

	status, ok := e.Status(tx.Hash())
	require.True(t, ok)
	assert.Equal(t, sleet.StatusAccepted, status)

	drained := e.DrainAccepted()
	require.Len(t, drained, 1)
	assert.Equal(t, tx.Hash(), drained[0].Hash())
	assert.Empty(t, e.DrainAccepted())
}

func TestRecordQueryOutcomeAcceptingOneConflictRejectsTheOther(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer1 := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx1, err := xfer1.Transfer(priv1)
	require.NoError(t, err)
	xfer2 := cell.NewTransferOperation(coinbase, pkh1, pkh2, 400)
	tx2, err := xfer2.Transfer(priv1)
	require.NoError(t, err)

	require.NoError(t, e.Insert(tx1, nil))
	require.NoError(t, e.Insert(tx2, nil))

	// tx1 and tx2 conflict, so it takes beta2 wins (not beta1) to finalize
	// regardless of singleton status.
	var accepted bool
	for i := 0; i < 20; i++ {
		accepted, err = e.RecordQueryOutcome(tx1.Hash(), true)
		require.NoError(t, err)
	}
	assert.True(t, accepted)

	tx1Status, ok := e.Status(tx1.Hash())
	require.True(t, ok)
	assert.Equal(t, sleet.StatusAccepted, tx1Status)

	tx2Status, ok := e.Status(tx2.Hash())
	require.True(t, ok)
	assert.Equal(t, sleet.StatusRejected, tx2Status)
}

func TestRecordQueryOutcomeRejectionPropagatesRemovedToDescendants(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer1 := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx1, err := xfer1.Transfer(priv1)
	require.NoError(t, err)
	xfer2 := cell.NewTransferOperation(coinbase, pkh1, pkh2, 400)
	tx2, err := xfer2.Transfer(priv1)
	require.NoError(t, err)

	require.NoError(t, e.Insert(tx1, nil))
	require.NoError(t, e.Insert(tx2, nil))

	// tx3 spends tx2's 400-capacity output to pkh1, so it is built directly
	// on top of the cell that is about to lose the conflict.
	xfer3 := cell.NewTransferOperation(tx2, pkh2, pkh1, 100)
	tx3, err := xfer3.Transfer(priv1)
	require.NoError(t, err)
	require.NoError(t, e.Insert(tx3, []hash.Hash{tx2.Hash()}))

	for i := 0; i < 20; i++ {
		_, err := e.RecordQueryOutcome(tx1.Hash(), true)
		require.NoError(t, err)
	}

	tx2Status, ok := e.Status(tx2.Hash())
	require.True(t, ok)
	assert.Equal(t, sleet.StatusRejected, tx2Status)

	tx3Status, ok := e.Status(tx3.Hash())
	require.True(t, ok)
	assert.Equal(t, sleet.StatusRemoved, tx3Status)
}

func TestReceiveCellTwiceIsIdempotent(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)
	coinbase := genCoinbase(pkh1, 1000)
	genesisIds := cell.CellIdsFromOutputs(coinbase.Hash(), coinbase.Outputs())

	e := sleet.NewEngine(genesisIds, sleetParams(), rand.New(rand.NewSource(1)), nil)

	xfer := cell.NewTransferOperation(coinbase, pkh2, pkh1, 500)
	tx, err := xfer.Transfer(priv1)
	require.NoError(t, err)

	require.NoError(t, e.ReceiveCell(tx))
	require.NoError(t, e.ReceiveCell(tx))

	got, ok := e.GetCell(tx.Hash())
	require.True(t, ok)
	assert.Equal(t, tx.Hash(), got.Hash())
}

func nodeID(b byte) hash.NodeID {
	var id hash.NodeID
	id[0] = b
	return id
}
