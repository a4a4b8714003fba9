package ice

import "github.com/zfxlabs/subzero/hash"

// Query asks a peer what it believes the liveness Choice of peerID is,
// carrying the asker's own current belief.
type Query struct {
	PeerID hash.NodeID
	Addr   string
	Choice Choice
}

// Outcome is a peer's answer to a Query.
type Outcome struct {
	PeerID hash.NodeID
	Choice Choice
}
