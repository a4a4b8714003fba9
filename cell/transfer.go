package cell

import "crypto/ed25519"

// TransferOutput creates a Transfer-kind output carrying capacity to pkh.
func TransferOutput(pkh PublicKeyHash, capacity Capacity) Output {
	return Output{Capacity: capacity, Kind: Transfer, Lock: pkh}
}

// TransferOperation moves capacity from the owner of cell to recipient,
// returning any change to change.
type TransferOperation struct {
	cell      Cell
	recipient PublicKeyHash
	change    PublicKeyHash
	capacity  Capacity
}

// NewTransferOperation builds a transfer operation spending capacity out of
// cell, sending it to recipient and any leftover change to change.
func NewTransferOperation(c Cell, recipient, change PublicKeyHash, capacity Capacity) TransferOperation {
	return TransferOperation{cell: c, recipient: recipient, change: change, capacity: capacity}
}

// Transfer consumes the owner's outputs of cell and produces the transfer
// cell: one output to the recipient, plus a change output to change when the
// residue exceeds the fee.
func (op TransferOperation) Transfer(priv ed25519.PrivateKey) (Cell, error) {
	result, err := ConsumeFromCell(op.cell, op.capacity, priv)
	if err != nil {
		return Cell{}, err
	}

	outputs := []Output{TransferOutput(op.recipient, result.Consumed)}
	if result.Residue > Fee {
		outputs = append(outputs, TransferOutput(op.change, result.Residue-Fee))
	}
	return NewCell(result.Inputs, outputs), nil
}
