// Package cell implements the UTXO-style cell model: cells consume zero or
// more inputs (references to previously produced outputs) and produce one or
// more outputs, each carrying a capacity, a kind and an owner lock.
package cell

import "errors"

// Fee is the default protocol fee charged on spending operations (transfer,
// stake). It is deducted from the residual change output, never from the
// amount actually delivered to the recipient.
const Fee uint64 = 3

var (
	ErrExceedsAvailableFunds = errors.New("cell: exceeds available funds")
	ErrZeroTransfer          = errors.New("cell: zero transfer")
	ErrZeroStake             = errors.New("cell: zero stake")
	ErrInvalidCoinbase       = errors.New("cell: invalid coinbase")
	ErrInvalidStake          = errors.New("cell: invalid stake")
	ErrUnspendableCell       = errors.New("cell: no spendable outputs for owner")
	ErrUndefinedCellHash     = errors.New("cell: undefined cell hash")

	// ErrDuplicateCell and ErrUndefinedCell surface from the dependency
	// graph built over a block's cells.
	ErrDuplicateCell = errors.New("cell: duplicate cell in dependency graph")
	ErrUndefinedCell = errors.New("cell: undefined cell in dependency graph")
)
