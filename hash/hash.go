// Package hash provides the single collision-resistant hash function shared
// by every hashed value in the system: cell hashes, cell ids, block hashes,
// VRF outputs and peer/node identifiers.
package hash

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/zeebo/blake3"
)

// Size is the width, in bytes, of every hash in the system.
const Size = 32

// Hash is a 32-byte content-addressed identifier.
type Hash [Size]byte

// Empty is the zero hash, used for the genesis block's absent predecessor
// sentinel and other "no value" positions.
var Empty Hash

// Sum hashes the concatenation of the given byte slices.
func Sum(parts ...[]byte) Hash {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// FromBytes truncates/copies b into a Hash, erroring if the length mismatches.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, errors.New("hash: wrong length")
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsEmpty reports whether h is the zero hash.
func (h Hash) IsEmpty() bool { return h == Empty }

// Less gives a deterministic total order over hashes, used by hail to
// tie-break concurrently proposed blocks at the same height.
func (h Hash) Less(o Hash) bool { return bytes.Compare(h[:], o[:]) < 0 }

// Bytes returns a copy of the underlying bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, h[:])
	return b
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	decoded, err := FromBytes(raw)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// NodeID identifies a validator/peer. It shares the same width and hashing
// scheme as every other identifier in the system.
type NodeID = Hash
