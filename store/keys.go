package store

import (
	"encoding/binary"

	"github.com/zfxlabs/subzero/hash"
)

// Key layout: a single-byte namespace prefix keeps blocks, cells and the
// hash->height index in disjoint key ranges within one pebble instance.
const (
	nsBlock      byte = 'B' // {height BE u64}{block hash} -> encoded Block
	nsBlockIndex byte = 'b' // {block hash} -> height BE u64
	nsCell       byte = 'C' // {cell hash} -> encoded Cell
)

func blockKey(height uint64, h hash.Hash) []byte {
	key := make([]byte, 1+8+hash.Size)
	key[0] = nsBlock
	binary.BigEndian.PutUint64(key[1:9], height)
	copy(key[9:], h[:])
	return key
}

// blockHeightPrefix bounds the key range for a single height, used to find
// a block by height without already knowing its hash.
func blockHeightPrefix(height uint64) (lower, upper []byte) {
	lower = make([]byte, 1+8)
	lower[0] = nsBlock
	binary.BigEndian.PutUint64(lower[1:], height)
	upper = make([]byte, 1+8)
	upper[0] = nsBlock
	binary.BigEndian.PutUint64(upper[1:], height+1)
	return lower, upper
}

func blockIndexKey(h hash.Hash) []byte {
	key := make([]byte, 1+hash.Size)
	key[0] = nsBlockIndex
	copy(key[1:], h[:])
	return key
}

func cellKey(h hash.Hash) []byte {
	key := make([]byte, 1+hash.Size)
	key[0] = nsCell
	copy(key[1:], h[:])
	return key
}
