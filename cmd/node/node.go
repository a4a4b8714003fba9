package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zfxlabs/subzero/alpha"
	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/hail"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/ice"
	"github.com/zfxlabs/subzero/log"
	"github.com/zfxlabs/subzero/metrics"
	"github.com/zfxlabs/subzero/sleet"
	"github.com/zfxlabs/subzero/state"
	"github.com/zfxlabs/subzero/store"
	"github.com/zfxlabs/subzero/transport"
)

// node bundles every long-lived component a running process owns: the
// three consensus engines, the chain driver gluing them together, the
// durable store beneath it, and the instruments reporting on all of it.
type node struct {
	selfID hash.NodeID
	priv   ed25519.PrivateKey

	store   *store.Store
	ice     *ice.Engine
	sleet   *sleet.Engine
	hail    *hail.Engine
	alpha   *alpha.Engine
	metrics *metrics.Set
	log     log.Logger

	identity transport.Identity
	params   config.Parameters
}

// nodeConfig collects the flag-derived inputs buildNode needs.
type nodeConfig struct {
	selfIP      string
	keypairHex  string
	dataDir     string
	useTLS      bool
	certPath    string
	privKeyPath string
	params      config.Parameters
}

// derivePrivateKey parses --keypair as a hex-encoded ed25519 seed, or
// generates a fresh one when no keypair was supplied.
func derivePrivateKey(keypairHex string) (ed25519.PrivateKey, error) {
	if keypairHex == "" {
		_, priv, err := ed25519.GenerateKey(nil)
		return priv, err
	}
	seed, err := hex.DecodeString(keypairHex)
	if err != nil {
		return nil, fmt.Errorf("--keypair: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("--keypair: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// nodeIDFromPublicKey mirrors alpha.InitialStaker.NodeID: the raw public
// key bytes double as both the staking address and the node identity.
func nodeIDFromPublicKey(pub ed25519.PublicKey) hash.NodeID {
	var id hash.NodeID
	copy(id[:], pub)
	return id
}

func buildNode(cfg nodeConfig, logger log.Logger) (*node, error) {
	priv, err := derivePrivateKey(cfg.keypairHex)
	if err != nil {
		return nil, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	selfID := nodeIDFromPublicKey(pub)

	var identity transport.Identity
	if cfg.useTLS {
		if cfg.certPath != "" && cfg.privKeyPath != "" {
			identity, err = transport.LoadIdentity(cfg.certPath, cfg.privKeyPath)
		} else {
			identity, err = transport.NewIdentity()
		}
		if err != nil {
			return nil, fmt.Errorf("tls identity: %w", err)
		}
	}

	s, err := store.Open(cfg.dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ms, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	iceEngine := ice.NewEngine(selfID, cfg.selfIP, cfg.params, rng, logger)

	genesis, found, err := s.LoadGenesis()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load genesis: %w", err)
	}
	if !found {
		genesis, err = alpha.BuildGenesis(alpha.DefaultInitialStakers(), cfg.params.MinStakeDuration)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("build genesis: %w", err)
		}
	}
	frontier := []state.Block{genesis}

	sleetEngine := sleet.NewEngine(alpha.GenesisCellIds(genesis), cfg.params, rng, logger)
	hailEngine, err := hail.NewEngineWithRand(frontier, selfID, cfg.params, rng, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start hail: %w", err)
	}

	alphaEngine := alpha.NewEngine(selfID, sleetEngine, hailEngine, s, cfg.params, logger)
	if err := alphaEngine.Bootstrap(alpha.DefaultInitialStakers()); err != nil {
		s.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	n := &node{
		selfID:   selfID,
		priv:     priv,
		store:    s,
		ice:      iceEngine,
		sleet:    sleetEngine,
		hail:     hailEngine,
		alpha:    alphaEngine,
		metrics:  ms,
		log:      logger,
		identity: identity,
		params:   cfg.params,
	}
	n.refreshMetrics()
	return n, nil
}

func (n *node) Close() error {
	return n.store.Close()
}

// runProducerLoop ticks every ProtocolPeriod, attempting to propose and
// finalize a block from whatever cells sleet has accepted since the last
// tick. Most ticks do nothing: ProduceBlock is a no-op when this node holds
// no producer slot for the next height.
func (n *node) runProducerLoop(peers map[hash.NodeID]string, client peerClient, stop <-chan struct{}) {
	ticker := time.NewTicker(n.params.ProtocolPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := n.alpha.ProduceBlock(peers, client); err != nil {
				n.log.Warn("block production failed", zap.Error(err))
			}
			n.refreshMetrics()
		}
	}
}

// refreshMetrics copies the current chain height and committee size into
// the exported gauges. Called once at startup and periodically thereafter;
// the consensus engines themselves predate metrics and are not wired to
// push these events directly.
func (n *node) refreshMetrics() {
	s, err := n.alpha.State()
	if err != nil {
		return
	}
	n.metrics.HailHeight.Set(float64(s.Height))
	n.metrics.CommitteeSize.Set(float64(len(s.Validators)))
}
