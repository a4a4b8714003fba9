package cell

import (
	"crypto/ed25519"
)

// ConsumeResult is the outcome of gathering enough of an owner's outputs
// from cell to cover amount: the capacity actually consumed, the residue
// left over in the last output consumed, and the Inputs spending them.
type ConsumeResult struct {
	Consumed Capacity
	Residue  Capacity
	Inputs   Inputs
}

// ConsumeFromCell selects outputs of cell owned by priv (by public key hash)
// until amount capacity has been gathered, returning signed Inputs spending
// them. It mirrors the cell-selection order used by transfer and stake
// operations: outputs are walked in the cell's canonical (sorted) order.
func ConsumeFromCell(c Cell, amount Capacity, priv ed25519.PrivateKey) (ConsumeResult, error) {
	var pkh PublicKeyHash
	copy(pkh[:], priv.Public().(ed25519.PublicKey))

	var owned []int
	for i, out := range c.Outputs() {
		if out.Lock == pkh {
			owned = append(owned, i)
		}
	}
	if len(owned) == 0 {
		return ConsumeResult{}, ErrUnspendableCell
	}

	var ownedOutputs []Output
	for _, i := range owned {
		ownedOutputs = append(ownedOutputs, c.Outputs()[i])
	}
	if err := validateCapacity(ownedOutputs, amount, Fee); err != nil {
		return ConsumeResult{}, err
	}

	var (
		inputs    Inputs
		consumed  Capacity
		residue   Capacity
		spendable = amount
	)
	for _, i := range owned {
		if consumed >= amount {
			break
		}
		out := c.Outputs()[i]
		inputs = append(inputs, NewInput(priv, c.Hash(), uint8(i)))
		if spendable >= out.Capacity {
			spendable -= out.Capacity
			consumed += out.Capacity
		} else {
			consumed += spendable
			residue = out.Capacity - spendable
			spendable = 0
		}
	}
	return ConsumeResult{Consumed: consumed, Residue: residue, Inputs: inputs}, nil
}

// validateCapacity checks that amount is positive and does not exceed the
// sum of outputs once the fee is set aside.
func validateCapacity(outputs []Output, amount Capacity, fee uint64) error {
	var total Capacity
	for _, o := range outputs {
		total += o.Capacity
	}
	if amount == 0 {
		return ErrZeroTransfer
	}
	if total < fee || amount > total-fee {
		return ErrExceedsAvailableFunds
	}
	return nil
}
