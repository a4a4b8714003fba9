package main

import (
	"crypto/tls"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/zfxlabs/subzero/cell"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/state"
	"github.com/zfxlabs/subzero/transport"
	"github.com/zfxlabs/subzero/wire"
)

// serve accepts connections on ln until it is closed, handling each on its
// own goroutine. A listener Close (triggered by shutdown) unblocks Accept
// with a net.ErrClosed, which serve treats as a clean exit.
func (n *node) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			n.log.Warn("accept failed", zap.Error(err))
			continue
		}
		go n.handleConn(conn)
	}
}

// listen opens ln on addr, wrapped in mutual TLS when useTLS is set.
func listen(addr string, identity transport.Identity, useTLS bool) (net.Listener, error) {
	if !useTLS {
		return net.Listen("tcp", addr)
	}
	return tls.Listen("tcp", addr, transport.ServerConfig(identity))
}

// handleConn answers every framed request arriving on conn until the peer
// closes it or sends something this node cannot parse.
func (n *node) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		typ, payload, err := wire.ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				n.log.Debug("connection closed", zap.Error(err))
			}
			return
		}
		if err := n.dispatch(conn, typ, payload); err != nil {
			n.log.Warn("request failed", zap.String("type", reqName(typ)), zap.Error(err))
			return
		}
	}
}

func (n *node) dispatch(conn net.Conn, typ wire.Type, payload []byte) error {
	switch typ {
	case wire.TypeGetNodeStatus:
		return n.handleGetNodeStatus(conn)
	case wire.TypeGetLastAccepted:
		return n.handleGetLastAccepted(conn)
	case wire.TypeGetBlockByHeight:
		return n.handleGetBlockByHeight(conn, payload)
	case wire.TypeGetCell:
		return n.handleGetCell(conn, payload)
	case wire.TypeQueryTx:
		return n.handleQueryTx(conn, payload)
	case wire.TypeGetTxAncestors:
		return n.handleGetTxAncestors(conn, payload)
	case wire.TypeQueryBlock:
		return n.handleQueryBlock(conn, payload)
	case wire.TypePing:
		return n.handlePing(conn, payload)
	default:
		return errUnhandledType
	}
}

var errUnhandledType = errors.New("node: unhandled message type")

func (n *node) handleGetNodeStatus(conn net.Conn) error {
	last, height := n.alpha.LastAccepted()
	return wire.WriteMessage(conn, wire.TypeNodeStatus, wire.NodeStatus{
		ID:           n.selfID,
		LastAccepted: last,
		Height:       height,
		Bootstrapped: !last.IsEmpty(),
	})
}

func (n *node) handleGetLastAccepted(conn net.Conn) error {
	last, _ := n.alpha.LastAccepted()
	return wire.WriteMessage(conn, wire.TypeLastAccepted, wire.LastAccepted{Hash: last})
}

func (n *node) handleGetBlockByHeight(conn net.Conn, payload []byte) error {
	var req wire.GetBlockByHeight
	if err := wire.Decode(payload, &req); err != nil {
		return err
	}
	b, found, err := n.store.GetBlockByHeight(req.Height)
	if err != nil {
		return err
	}
	return wire.WriteMessage(conn, wire.TypeBlockByHeight, wire.BlockByHeight{Block: b, Found: found})
}

func (n *node) handleGetCell(conn net.Conn, payload []byte) error {
	var req wire.GetCell
	if err := wire.Decode(payload, &req); err != nil {
		return err
	}
	c, found, err := n.store.GetCell(req.CellHash)
	if err != nil {
		return err
	}
	return wire.WriteMessage(conn, wire.TypeCellAck, wire.CellAck{Cell: c, Found: found})
}

// handleQueryTx answers a peer's consensus query about a cell: sleet
// inserts it if unknown and reports whether it is currently strongly
// preferred.
func (n *node) handleQueryTx(conn net.Conn, payload []byte) error {
	var req wire.QueryTx
	if err := wire.Decode(payload, &req); err != nil {
		return err
	}
	txHash, outcome, err := n.sleet.QueryCell(req.Tx)
	if err != nil {
		return err
	}
	return wire.WriteMessage(conn, wire.TypeQueryTxAck, wire.QueryTxAck{ID: req.ID, TxHash: txHash, Outcome: outcome})
}

// handleGetTxAncestors answers a peer's request for a cell's dependency
// ancestors, used to backfill an unknown parent chain before answering a
// query about it.
func (n *node) handleGetTxAncestors(conn net.Conn, payload []byte) error {
	var req wire.GetTxAncestors
	if err := wire.Decode(payload, &req); err != nil {
		return err
	}
	ancestors, err := n.sleet.Ancestors(req.TxHash)
	if err != nil {
		return err
	}
	return wire.WriteMessage(conn, wire.TypeTxAncestors, wire.TxAncestors{Ancestors: ancestors})
}

// handleQueryBlock answers a peer's consensus query about a block: hail
// inserts it if unknown and reports whether it is currently preferred at
// its height.
func (n *node) handleQueryBlock(conn net.Conn, payload []byte) error {
	var req wire.QueryBlock
	if err := wire.Decode(payload, &req); err != nil {
		return err
	}
	blockHash, outcome, err := n.hail.AnswerQuery(req.Block)
	if err != nil {
		return err
	}
	return wire.WriteMessage(conn, wire.TypeQueryBlockAck, wire.QueryBlockAck{ID: req.ID, BlockHash: blockHash, Outcome: outcome})
}

// handlePing answers a peer's batch of liveness queries via ice.
func (n *node) handlePing(conn net.Conn, payload []byte) error {
	var req wire.Ping
	if err := wire.Decode(payload, &req); err != nil {
		return err
	}
	ack := n.ice.Ping(req.ID, req.Queries)
	return wire.WriteMessage(conn, wire.TypeAck, wire.Ack{ID: ack.ID, Outcomes: ack.Outcomes})
}

func reqName(typ wire.Type) string {
	switch typ {
	case wire.TypeGetNodeStatus:
		return "GetNodeStatus"
	case wire.TypeGetLastAccepted:
		return "GetLastAccepted"
	case wire.TypeGetBlockByHeight:
		return "GetBlockByHeight"
	case wire.TypeGetCell:
		return "GetCell"
	case wire.TypeQueryTx:
		return "QueryTx"
	case wire.TypeGetTxAncestors:
		return "GetTxAncestors"
	case wire.TypeQueryBlock:
		return "QueryBlock"
	case wire.TypePing:
		return "Ping"
	default:
		return "unknown"
	}
}

// peerClient implements alpha.PeerClient by dialing peers with this node's
// transport settings.
type peerClient struct {
	identity transport.Identity
	useTLS   bool
}

func (c peerClient) QueryLastAccepted(peer hash.NodeID, addr string) (hash.Hash, bool) {
	return queryLastAccepted(peer, addr, c.identity, c.useTLS)
}

func (c peerClient) QueryTx(peer hash.NodeID, addr string, tx cell.Cell) (bool, bool) {
	conn, ok := dialPeer(addr, c.identity, c.useTLS)
	if !ok {
		return false, false
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, wire.TypeQueryTx, wire.QueryTx{ID: tx.Hash(), Tx: tx}); err != nil {
		return false, false
	}
	typ, payload, err := wire.ReadMessage(conn)
	if err != nil || typ != wire.TypeQueryTxAck {
		return false, false
	}
	var resp wire.QueryTxAck
	if err := wire.Decode(payload, &resp); err != nil {
		return false, false
	}
	return resp.Outcome, true
}

func (c peerClient) QueryBlock(peer hash.NodeID, addr string, b state.Block) (bool, bool) {
	conn, ok := dialPeer(addr, c.identity, c.useTLS)
	if !ok {
		return false, false
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, wire.TypeQueryBlock, wire.QueryBlock{ID: b.Hash(), Block: b}); err != nil {
		return false, false
	}
	typ, payload, err := wire.ReadMessage(conn)
	if err != nil || typ != wire.TypeQueryBlockAck {
		return false, false
	}
	var resp wire.QueryBlockAck
	if err := wire.Decode(payload, &resp); err != nil {
		return false, false
	}
	return resp.Outcome, true
}

// dialPeer opens a connection to addr under this node's transport settings,
// reporting ok=false on any failure so callers can treat it as a missing
// response rather than a failure vote.
func dialPeer(addr string, identity transport.Identity, useTLS bool) (net.Conn, bool) {
	var conn net.Conn
	var err error
	if useTLS {
		conn, err = tls.Dial("tcp", addr, transport.ClientConfig(identity))
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, false
	}
	return conn, true
}

// queryLastAccepted implements alpha.PeerClient by dialing a peer and
// issuing a GetLastAccepted request.
func queryLastAccepted(peer hash.NodeID, addr string, identity transport.Identity, useTLS bool) (hash.Hash, bool) {
	conn, ok := dialPeer(addr, identity, useTLS)
	if !ok {
		return hash.Hash{}, false
	}
	defer conn.Close()

	if err := wire.WriteMessage(conn, wire.TypeGetLastAccepted, wire.GetLastAccepted{}); err != nil {
		return hash.Hash{}, false
	}
	typ, payload, err := wire.ReadMessage(conn)
	if err != nil || typ != wire.TypeLastAccepted {
		return hash.Hash{}, false
	}
	var resp wire.LastAccepted
	if err := wire.Decode(payload, &resp); err != nil {
		return hash.Hash{}, false
	}
	return resp.Hash, true
}
