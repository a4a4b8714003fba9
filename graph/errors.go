package graph

import "errors"

var (
	ErrDuplicateCell      = errors.New("graph: duplicate cell")
	ErrUndefinedCell      = errors.New("graph: undefined cell")
	ErrUndefinedCellHash  = errors.New("graph: undefined cell hash")
	ErrEmptyConflictGraph = errors.New("graph: empty conflict graph")
)
