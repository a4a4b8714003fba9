// Package state holds the replayable ledger state produced by applying
// accepted blocks: the live unspent-output set, total spending/staking
// capacity, and the current validator set.
package state

import "errors"

var (
	ErrUndefinedCellIds = errors.New("state: inputs reference undefined cell ids")
	ErrExistingCellIds  = errors.New("state: produced cell ids already live")
	ErrExceedsCapacity  = errors.New("state: cell violates capacity conservation")
)
