package sleet

import "errors"

var (
	// ErrKnownCell is returned by Insert when the cell's hash is already
	// present in the DAG.
	ErrKnownCell = errors.New("sleet: cell already known")
	// ErrUnknownCell is returned when a query names a cell hash never
	// inserted into the DAG.
	ErrUnknownCell = errors.New("sleet: unknown cell hash")
	// ErrInsufficientWeight is returned by Sample when the validator set
	// cannot cover the requested weight even using every member.
	ErrInsufficientWeight = errors.New("sleet: insufficient weight to sample")
)
