package committee_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zfxlabs/subzero/committee"
	"github.com/zfxlabs/subzero/hash"
)

func TestWeightOfIsFractionOfTotal(t *testing.T) {
	assert.InDelta(t, 0.5, committee.WeightOf(500, 1000), 1e-9)
	assert.Equal(t, float64(0), committee.WeightOf(500, 0))
}

func TestExpectedCommitteeSizeIsSqrtCeil(t *testing.T) {
	assert.Equal(t, float64(1), committee.ExpectedCommitteeSize(1))
	assert.Equal(t, float64(2), committee.ExpectedCommitteeSize(3))
	assert.Equal(t, float64(3), committee.ExpectedCommitteeSize(9))
}

func TestSelectIsZeroWithNoStake(t *testing.T) {
	vrf := committee.VRFHash(hash.NodeID{0x1}, hash.Hash{0x2})
	assert.Equal(t, uint64(0), committee.Select(0, 1000, 2, vrf))
	assert.Equal(t, uint64(0), committee.Select(500, 0, 2, vrf))
}

func TestSelectIsDeterministicForSameInputs(t *testing.T) {
	vrf := committee.VRFHash(hash.NodeID{0x7}, hash.Hash{0x9})
	w1 := committee.Select(300, 1000, 2, vrf)
	w2 := committee.Select(300, 1000, 2, vrf)
	assert.Equal(t, w1, w2)
}
