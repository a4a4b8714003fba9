package cell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
)

func TestTransferMoreThanOwnerOutputHas(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)

	op := cell.NewCoinbaseOperation([]cell.Allocation{
		{Recipient: pkh2, Capacity: 688},
		{Recipient: pkh1, Capacity: 120},
	})
	coinbaseTx := op.Cell()

	xfer := cell.NewTransferOperation(coinbaseTx, pkh2, pkh1, 133)
	_, err := xfer.Transfer(priv1)
	assert.ErrorIs(t, err, cell.ErrExceedsAvailableFunds)
}

func TestTransferWithTotalLessThanFee(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)

	op := cell.NewCoinbaseOperation([]cell.Allocation{
		{Recipient: pkh1, Capacity: 1},
		{Recipient: pkh1, Capacity: 1},
	})
	coinbaseTx := op.Cell()

	xfer := cell.NewTransferOperation(coinbaseTx, pkh2, pkh1, 3)
	_, err := xfer.Transfer(priv1)
	assert.ErrorIs(t, err, cell.ErrExceedsAvailableFunds)
}

func TestTransferZeroThenError(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)

	coinbaseTx := genCoinbase(pkh1, 1000)
	xfer := cell.NewTransferOperation(coinbaseTx, pkh2, pkh1, 0)
	_, err := xfer.Transfer(priv1)
	assert.ErrorIs(t, err, cell.ErrZeroTransfer)
}

func TestTransferVariousAmounts(t *testing.T) {
	priv1, priv2, pkh1, pkh2 := testKeys(t)

	coinbaseTx := genCoinbase(pkh1, 1000)
	xfer1 := cell.NewTransferOperation(coinbaseTx, pkh2, pkh1, 1000-cell.Fee)
	tx2, err := xfer1.Transfer(priv1)
	require.NoError(t, err)
	assert.Len(t, tx2.Inputs(), 1)
	assert.Len(t, tx2.Outputs(), 1)
	assert.Equal(t, cell.Capacity(1000-cell.Fee), tx2.Sum())

	xfer2 := cell.NewTransferOperation(tx2, pkh1, pkh2, 700)
	tx3, err := xfer2.Transfer(priv2)
	require.NoError(t, err)
	assert.Len(t, tx3.Inputs(), 1)
	assert.Equal(t, cell.Capacity(1000-cell.Fee*2), tx3.Sum())
}
