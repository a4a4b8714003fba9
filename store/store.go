// Package store persists blocks and cells to an ordered key-value store,
// backing alpha's genesis/restart durability and the eventual block/cell
// lookups peers request over the wire.
package store

import (
	"encoding/binary"
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/codec"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/state"
)

// Store wraps a pebble instance with this module's key layout.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble store rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutBlock durably records b, keyed by height and hash, and refreshes the
// hash->height index used by GetBlockByHash.
func (s *Store) PutBlock(b state.Block) error {
	encoded, err := codec.Marshal(b)
	if err != nil {
		return err
	}
	blockHash := b.Hash()

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(blockKey(b.Height, blockHash), encoded, nil); err != nil {
		return err
	}
	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, b.Height)
	if err := batch.Set(blockIndexKey(blockHash), heightBytes, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// GetBlockByHeight returns the block stored at height, if any. Height
// conflicts (more than one block ever stored at a height) are not
// disambiguated here - callers only persist a height once it is final.
func (s *Store) GetBlockByHeight(height uint64) (state.Block, bool, error) {
	lower, upper := blockHeightPrefix(height)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return state.Block{}, false, err
	}
	defer iter.Close()

	if !iter.First() {
		return state.Block{}, false, nil
	}
	var b state.Block
	if err := codec.Unmarshal(iter.Value(), &b); err != nil {
		return state.Block{}, false, err
	}
	return b, true, nil
}

// GetBlockByHash looks up a block by its content hash via the index.
func (s *Store) GetBlockByHash(h hash.Hash) (state.Block, bool, error) {
	heightBytes, closer, err := s.db.Get(blockIndexKey(h))
	if errors.Is(err, pebble.ErrNotFound) {
		return state.Block{}, false, nil
	}
	if err != nil {
		return state.Block{}, false, err
	}
	height := binary.BigEndian.Uint64(heightBytes)
	closer.Close()

	value, closer2, err := s.db.Get(blockKey(height, h))
	if errors.Is(err, pebble.ErrNotFound) {
		return state.Block{}, false, nil
	}
	if err != nil {
		return state.Block{}, false, err
	}
	defer closer2.Close()

	var b state.Block
	if err := codec.Unmarshal(value, &b); err != nil {
		return state.Block{}, false, err
	}
	return b, true, nil
}

// LoadGenesis returns the height-0 block, satisfying alpha.Store.
func (s *Store) LoadGenesis() (state.Block, bool, error) {
	return s.GetBlockByHeight(0)
}

// PutCell durably records a single cell, keyed by its content hash.
func (s *Store) PutCell(c cell.Cell) error {
	encoded, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	return s.db.Set(cellKey(c.Hash()), encoded, pebble.Sync)
}

// GetCell looks up a previously stored cell by hash.
func (s *Store) GetCell(h hash.Hash) (cell.Cell, bool, error) {
	value, closer, err := s.db.Get(cellKey(h))
	if errors.Is(err, pebble.ErrNotFound) {
		return cell.Cell{}, false, nil
	}
	if err != nil {
		return cell.Cell{}, false, err
	}
	defer closer.Close()

	var c cell.Cell
	if err := c.UnmarshalBinary(value); err != nil {
		return cell.Cell{}, false, err
	}
	return c, true, nil
}
