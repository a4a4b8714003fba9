package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zfxlabs/subzero/config"
)

func TestAlphaThresholdRoundsUp(t *testing.T) {
	p := config.Default()
	p.K = 2
	p.AlphaNum, p.AlphaDen = 1, 2
	assert.Equal(t, 1, p.AlphaThreshold())

	p.K = 5
	p.AlphaNum, p.AlphaDen = 2, 3
	assert.Equal(t, 4, p.AlphaThreshold()) // ceil(10/3) = 4
}

func TestValidRejectsBadParameters(t *testing.T) {
	p := config.Default()
	p.K = 0
	assert.ErrorIs(t, p.Valid(), config.ErrInvalidK)

	p = config.Default()
	p.AlphaNum = 3
	p.AlphaDen = 2
	assert.ErrorIs(t, p.Valid(), config.ErrInvalidAlpha)

	p = config.Default()
	p.Beta1 = 0
	assert.ErrorIs(t, p.Valid(), config.ErrInvalidBeta)
}
