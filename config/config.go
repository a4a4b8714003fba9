// Package config holds the tunable consensus parameters shared by ice,
// sleet, hail and alpha, plus their defaults.
package config

import (
	"errors"
	"time"
)

var (
	ErrInvalidK     = errors.New("config: k must be >= 1")
	ErrInvalidAlpha = errors.New("config: alpha numerator/denominator must satisfy 0 < num <= den")
	ErrInvalidBeta  = errors.New("config: beta1/beta2 must be >= 1")
)

// Parameters are the Snowball-family thresholds and durations shared across
// the ice/sleet/hail engines, plus the chain-level constants alpha needs to
// apply blocks and run sortition.
type Parameters struct {
	// K is the sample size queried per consensus round.
	K int
	// AlphaNum/AlphaDen express the quorum threshold as a fraction (e.g.
	// 1/2), avoiding floating point drift across nodes.
	AlphaNum int
	AlphaDen int
	// Beta1 is the safe (conviction) threshold; Beta2 the finalization
	// threshold for conflicting (rogue) decisions.
	Beta1 int
	Beta2 int
	// NParents bounds how many DAG tips a new cell/block may reference.
	NParents int
	// MinStakeDuration is the minimum window, in milliseconds, a stake
	// output must remain locked for.
	MinStakeDuration uint64
	// SortitionConstant is added by hail to the expected committee size it
	// passes to committee.Select.
	SortitionConstant float64

	ProtocolPeriod time.Duration
	QueryTimeout   time.Duration
}

// Default returns the parameters used unless overridden by CLI flags.
func Default() Parameters {
	return Parameters{
		K:                 2,
		AlphaNum:          1,
		AlphaDen:          2,
		Beta1:             3,
		Beta2:             5,
		NParents:          3,
		MinStakeDuration:  14 * 24 * 60 * 60 * 1000, // two weeks, in ms
		SortitionConstant: 1.0,
		ProtocolPeriod:    6 * time.Second,
		QueryTimeout:      3 * time.Second,
	}
}

// AlphaThreshold returns the quorum bar for a sample of K:
// ceil(K * AlphaNum / AlphaDen). ice, hail and alpha's cell query rounds
// require strictly more votes than this; alpha's LiveNetwork requires at
// least this many agreeing peers.
func (p Parameters) AlphaThreshold() int {
	return p.AlphaThresholdOf(p.K)
}

// AlphaThresholdOf is AlphaThreshold generalized to a sample size other than
// K, for callers (hail) whose query committee is sized dynamically rather
// than fixed at K.
func (p Parameters) AlphaThresholdOf(sampleSize int) int {
	num := sampleSize * p.AlphaNum
	den := p.AlphaDen
	threshold := num / den
	if num%den != 0 {
		threshold++
	}
	return threshold
}

// Valid reports whether p's parameters are internally consistent.
func (p Parameters) Valid() error {
	if p.K < 1 {
		return ErrInvalidK
	}
	if p.AlphaDen <= 0 || p.AlphaNum <= 0 || p.AlphaNum > p.AlphaDen {
		return ErrInvalidAlpha
	}
	if p.Beta1 < 1 || p.Beta2 < 1 {
		return ErrInvalidBeta
	}
	return nil
}
