package cell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
)

const minStakeDuration = uint64(14 * 24 * 60 * 60 * 1000) // two weeks, in millis

func TestStakeEndTimeTooShortThenError(t *testing.T) {
	priv1, _, pkh1, _ := testKeys(t)

	c1 := genCoinbase(pkh1, 1000)
	start := uint64(1_700_000_000_000)
	end := start + minStakeDuration/2

	op := cell.NewStakeOperation(c1, hash.Hash{0xAA}, pkh1, 1000-cell.Fee, start, end)
	_, err := op.Stake(priv1, minStakeDuration)
	assert.ErrorIs(t, err, cell.ErrInvalidStake)
}

func TestStakeSplitsChange(t *testing.T) {
	priv1, _, pkh1, pkh2 := testKeys(t)

	start := uint64(1_700_000_000_000)
	end := start + minStakeDuration

	c1 := genCoinbase(pkh1, 1000)
	op1 := cell.NewStakeOperation(c1, hash.Hash{0xAA}, pkh2, 1000-cell.Fee, start, end)
	c2, err := op1.Stake(priv1, minStakeDuration)
	require.NoError(t, err)
	assert.Len(t, c2.Inputs(), 1)
	assert.Len(t, c2.Outputs(), 1)
	assert.Equal(t, cell.Capacity(1000-cell.Fee), c2.Sum())

	op2 := cell.NewStakeOperation(c1, hash.Hash{0xBB}, pkh1, 500, start, end)
	c3, err := op2.Stake(priv1, minStakeDuration)
	require.NoError(t, err)
	assert.Len(t, c3.Inputs(), 1)
	assert.Len(t, c3.Outputs(), 2)
	assert.Equal(t, cell.Capacity(1000-cell.Fee), c3.Sum())
}
