// Command node runs a single subzero validator: ice liveness detection,
// sleet cell consensus, hail block consensus, and the alpha chain driver
// gluing them together, reachable over the peer wire protocol.
package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zfxlabs/subzero/config"
	"github.com/zfxlabs/subzero/hash"
	"github.com/zfxlabs/subzero/log"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		selfIP      string
		peers       []string
		keypairHex  string
		useTLS      bool
		certPath    string
		privKeyPath string
		dataDir     string
		listenAddr  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a subzero validator node",
		RunE: func(cmd *cobra.Command, args []string) error {
			peerMap, err := parsePeers(peers)
			if err != nil {
				return err
			}
			return run(nodeConfig{
				selfIP:      selfIP,
				keypairHex:  keypairHex,
				dataDir:     dataDir,
				useTLS:      useTLS,
				certPath:    certPath,
				privKeyPath: privKeyPath,
				params:      config.Default(),
			}, peerMap, listenAddr, metricsAddr, useTLS)
		},
	}

	cmd.Flags().StringVar(&selfIP, "self-ip", "127.0.0.1:9651", "this node's advertised address")
	cmd.Flags().StringArrayVar(&peers, "peer", nil, "peer as id@ip, repeatable")
	cmd.Flags().StringVar(&keypairHex, "keypair", "", "hex-encoded ed25519 seed; a fresh one is generated if omitted")
	cmd.Flags().BoolVar(&useTLS, "use-tls", false, "require mutual TLS on the peer listener")
	cmd.Flags().StringVar(&certPath, "cert-path", "", "path to a PEM certificate (generated if omitted)")
	cmd.Flags().StringVar(&privKeyPath, "priv-key-path", "", "path to a PEM EC private key (generated if omitted)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./subzero-data", "directory for the persistent block/cell store")
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:9651", "address to accept peer connections on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-listen", "127.0.0.1:9090", "address to serve /metrics on")

	return cmd
}

// parsePeers parses repeated "id@ip" flag values into a NodeID->address map.
func parsePeers(raw []string) (map[hash.NodeID]string, error) {
	peers := make(map[hash.NodeID]string, len(raw))
	for _, p := range raw {
		idStr, addr, ok := strings.Cut(p, "@")
		if !ok {
			return nil, fmt.Errorf("--peer %q: expected id@ip", p)
		}
		idBytes, err := hex.DecodeString(idStr)
		if err != nil {
			return nil, fmt.Errorf("--peer %q: %w", p, err)
		}
		id, err := hash.FromBytes(idBytes)
		if err != nil {
			return nil, fmt.Errorf("--peer %q: %w", p, err)
		}
		peers[id] = addr
	}
	return peers, nil
}

func run(cfg nodeConfig, peers map[hash.NodeID]string, listenAddr, metricsAddr string, useTLS bool) error {
	logger, err := log.NewProduction()
	if err != nil {
		return err
	}

	n, err := buildNode(cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	ln, err := listen(listenAddr, n.identity, useTLS)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go n.serve(ln)

	metricsServer := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	client := peerClient{identity: n.identity, useTLS: useTLS}
	if len(peers) > 0 {
		if _, err := n.alpha.LiveNetwork(peers, client); err != nil {
			n.log.Warn("live network check failed", zap.Error(err))
		}
	}

	stopProducing := make(chan struct{})
	go n.runProducerLoop(peers, client, stopProducing)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	close(stopProducing)
	_ = ln.Close()
	_ = metricsServer.Close()
	return nil
}
