// Package wire defines the peer-to-peer request/response messages nodes
// exchange: handshake, liveness pings, and the block/cell/transaction
// retrieval calls alpha's bootstrap and sync paths issue against peers.
// Every message is CBOR-encoded and framed by frame.go.
package wire

import (
	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/ice"
	"github.com/zfxlabs/subzero/state"
)

// Type tags one byte per message, used by frame.go to prefix the CBOR
// payload so a reader knows what to unmarshal into before looking at it.
type Type uint8

const (
	TypeVersion Type = iota + 1
	TypeVersionAck
	TypePing
	TypeAck
	TypeGetLastAccepted
	TypeLastAccepted
	TypeGetAncestors
	TypeAncestors
	TypeQueryTx
	TypeQueryTxAck
	TypeGetTxAncestors
	TypeTxAncestors
	TypeQueryBlock
	TypeQueryBlockAck
	TypeGetCell
	TypeCellAck
	TypeGetCellHashes
	TypeCellHashes
	TypeGetAcceptedCell
	TypeGetAcceptedCellHashes
	TypeGetBlockByHeight
	TypeBlockByHeight
	TypeGetNodeStatus
	TypeNodeStatus
)

// Version is the first message a dialing peer sends: who it is, where it
// can be reached, and which chains it tracks.
type Version struct {
	ID     hash.NodeID
	IP     string
	Chains []string
}

// VersionAck answers Version with the responder's own identity, its
// current peer set, and the protocol version it speaks.
type VersionAck struct {
	ID      hash.NodeID
	IP      string
	PeerSet []hash.NodeID
	Version uint32
}

// Ping carries a batch of ice liveness queries to ask of the receiver.
type Ping struct {
	ID      hash.NodeID
	Queries []ice.Query
}

// Ack answers a Ping with one outcome per query, in request order.
type Ack struct {
	ID       hash.NodeID
	Outcomes []ice.Outcome
}

// GetLastAccepted asks a peer for the hash of its last accepted block.
type GetLastAccepted struct{}

// LastAccepted answers GetLastAccepted.
type LastAccepted struct {
	Hash hash.Hash
}

// GetAncestors asks a peer to walk the chain from From back to (and
// including) To, returning the blocks in between.
type GetAncestors struct {
	From hash.Hash
	To   hash.Hash
}

// Ancestors answers GetAncestors, oldest block first.
type Ancestors struct {
	Blocks []state.Block
}

// QueryTx asks a peer whether it prefers the attached cell, tagged with a
// request id so the asker can match the eventual QueryTxAck.
type QueryTx struct {
	ID hash.Hash
	Tx cell.Cell
}

// QueryTxAck answers QueryTx with a boolean preference.
type QueryTxAck struct {
	ID      hash.Hash
	TxHash  hash.Hash
	Outcome bool
}

// GetTxAncestors asks a peer for the dependency ancestors of a cell it
// holds, identified by hash.
type GetTxAncestors struct {
	ID     hash.Hash
	TxHash hash.Hash
}

// TxAncestors answers GetTxAncestors.
type TxAncestors struct {
	Ancestors []cell.Cell
}

// QueryBlock asks a peer whether it prefers the attached block.
type QueryBlock struct {
	ID    hash.Hash
	Block state.Block
}

// QueryBlockAck answers QueryBlock with a boolean preference.
type QueryBlockAck struct {
	ID        hash.Hash
	BlockHash hash.Hash
	Outcome   bool
}

// GetCell asks a peer for a cell by hash, accepted or not.
type GetCell struct {
	CellHash hash.Hash
}

// CellAck answers GetCell. Found is false when the peer holds no such
// cell; Cell is then the zero value.
type CellAck struct {
	Cell  cell.Cell
	Found bool
}

// GetCellHashes asks a peer for every cell hash it currently holds live
// (accepted or still under consideration).
type GetCellHashes struct{}

// CellHashes answers GetCellHashes and GetAcceptedCellHashes.
type CellHashes struct {
	IDs []hash.Hash
}

// GetAcceptedCell asks a peer for a cell by hash, restricted to its
// accepted set.
type GetAcceptedCell struct {
	CellHash hash.Hash
}

// GetAcceptedCellHashes asks a peer for the hashes of its accepted cells
// only.
type GetAcceptedCellHashes struct{}

// GetBlockByHeight asks a peer for the block it has accepted at a given
// height.
type GetBlockByHeight struct {
	Height uint64
}

// BlockByHeight answers GetBlockByHeight. Found is false past the peer's
// current chain tip.
type BlockByHeight struct {
	Block state.Block
	Found bool
}

// GetNodeStatus asks a peer for a read-only snapshot of its status.
type GetNodeStatus struct{}

// NodeStatus answers GetNodeStatus.
type NodeStatus struct {
	ID           hash.NodeID
	LastAccepted hash.Hash
	Height       uint64
	Bootstrapped bool
}
