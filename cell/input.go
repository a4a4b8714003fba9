package cell

import (
	"crypto/ed25519"

	"github.com/zfxlabs/subzero/hash"
)

// Input references a previously produced Output being spent, together with
// the owner's signature over the referenced CellId proving the right to
// spend it.
type Input struct {
	OutputIndex OutputIndex
	PublicKey   ed25519.PublicKey
	Signature   []byte
}

// NewInput builds a signed Input spending output index i of the cell with
// hash cellHash, owned by priv.
func NewInput(priv ed25519.PrivateKey, cellHash hash.Hash, i uint8) Input {
	oi := OutputIndex{CellHash: cellHash, Index: i}
	id := oi.CellId()
	sig := ed25519.Sign(priv, id[:])
	return Input{
		OutputIndex: oi,
		PublicKey:   priv.Public().(ed25519.PublicKey),
		Signature:   sig,
	}
}

// CellId returns the id of the output this input spends.
func (in Input) CellId() CellId {
	return in.OutputIndex.CellId()
}

// VerifySignature checks that Signature is a valid signature by PublicKey
// over the spent CellId.
func (in Input) VerifySignature() bool {
	id := in.CellId()
	return ed25519.Verify(in.PublicKey, id[:], in.Signature)
}

// Inputs is a cell's list of consumed inputs.
type Inputs []Input
