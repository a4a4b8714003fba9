package hail

import "errors"

var (
	// ErrUnknownHeight is returned when a height has no conflict-set entry
	// yet - parent selection and queries both require one.
	ErrUnknownHeight = errors.New("hail: unknown height")
	// ErrUnknownBlock is returned when a block hash was never inserted.
	ErrUnknownBlock = errors.New("hail: unknown block")
	// ErrAlreadyProposed is returned by ProposeBlock when this node has
	// already proposed a block for the target height.
	ErrAlreadyProposed = errors.New("hail: already proposed a block at this height")
	// ErrInvalidVRF is returned by InsertBlock when a block's VRF output
	// does not belong to the current producer set.
	ErrInvalidVRF = errors.New("hail: block vrf not a valid producer slot")
	// ErrNoProducerSlot is returned by ProposeBlock when this node does not
	// currently hold a production slot.
	ErrNoProducerSlot = errors.New("hail: no producer slot held")
	// ErrInsufficientWeight is returned by Sample when the validator set
	// cannot cover the requested weight even using every member.
	ErrInsufficientWeight = errors.New("hail: insufficient weight to sample")
)
