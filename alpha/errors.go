package alpha

import "errors"

var (
	// ErrNoInitialStakers is returned by BuildGenesis when given an empty
	// staker list - genesis requires at least one allocation.
	ErrNoInitialStakers = errors.New("alpha: genesis requires at least one initial staker")
	// ErrNotBootstrapped is returned when a method requiring genesis to
	// already be applied is called before Bootstrap.
	ErrNotBootstrapped = errors.New("alpha: not bootstrapped")
	// ErrOutOfOrderBlock is returned by AcceptedBlock when the block's height
	// does not immediately follow the current state height.
	ErrOutOfOrderBlock = errors.New("alpha: block height out of order")
)
