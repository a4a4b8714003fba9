// Package codec is the single home for this module's canonical binary
// encoding: deterministic CBOR, used both to derive content hashes (cell,
// block) and to encode values for persistent storage.
package codec

import "github.com/fxamacker/cbor/v2"

// EncMode is canonical CBOR's deterministic encoder: map keys sorted,
// shortest-form integers, no indefinite-length items. Two calls encoding
// equal values always produce identical bytes, which hashing and storage
// both depend on.
var EncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("codec: invalid cbor encoder options: " + err.Error())
	}
	return mode
}()

// Marshal encodes v using the canonical encoder.
func Marshal(v interface{}) ([]byte, error) {
	return EncMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}
