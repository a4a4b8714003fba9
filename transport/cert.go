// Package transport builds the mutually-authenticated TLS configuration
// peers dial and listen with, and derives a node's identity from its
// certificate rather than a separately issued keypair.
package transport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"time"

	"github.com/zfxlabs/subzero/hash"
)

// certValidity is generous on purpose: nodes are expected to rotate
// identities by regenerating a keypair, not by waiting out an expiry.
const certValidity = 10 * 365 * 24 * time.Hour

// Identity bundles a node's self-signed certificate and private key, and
// the NodeID derived from it.
type Identity struct {
	Cert       tls.Certificate
	NodeID     hash.NodeID
	PrivateKey *ecdsa.PrivateKey
}

// NewIdentity generates a fresh ECDSA P-256 keypair and a self-signed
// certificate over it. The resulting NodeID is blake3 over the
// certificate's DER bytes, so two nodes can only collide by colliding the
// cert itself.
func NewIdentity() (Identity, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return Identity{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return Identity{}, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "subzero-node"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return Identity{}, err
	}

	return identityFromDER(der, priv)
}

// LoadIdentity reads a PEM-encoded certificate and EC private key from
// disk, as produced by WriteIdentity.
func LoadIdentity(certPath, keyPath string) (Identity, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return Identity{}, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return Identity{}, err
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return Identity{}, errors.New("transport: no certificate PEM block found")
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return Identity{}, errors.New("transport: no private key PEM block found")
	}

	priv, err := x509.ParseECPrivateKey(keyBlock.Bytes)
	if err != nil {
		return Identity{}, err
	}

	return identityFromDER(certBlock.Bytes, priv)
}

// WriteIdentity persists id's certificate and private key as PEM files at
// certPath/keyPath, overwriting any existing content.
func WriteIdentity(id Identity, certPath, keyPath string) error {
	certOut, err := x509.ParseCertificate(id.Cert.Certificate[0])
	if err != nil {
		return err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certOut.Raw})
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return err
	}

	keyBytes, err := x509.MarshalECPrivateKey(id.PrivateKey)
	if err != nil {
		return err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	return os.WriteFile(keyPath, keyPEM, 0o600)
}

func identityFromDER(der []byte, priv *ecdsa.PrivateKey) (Identity, error) {
	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}
	return Identity{
		Cert:       cert,
		NodeID:     hash.Sum(der),
		PrivateKey: priv,
	}, nil
}
