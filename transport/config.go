package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"

	"github.com/zfxlabs/subzero/hash"
)

// ErrNoPeerCertificate is returned by PeerNodeID when a connection somehow
// completed its handshake without presenting a certificate.
var ErrNoPeerCertificate = errors.New("transport: peer presented no certificate")

// ServerConfig returns a *tls.Config suitable for net/Listen: it presents
// id's certificate and requires every dialing peer to present one too.
// Because peers mint their own self-signed certificates rather than being
// issued one by a shared CA, verification is skipped at the TLS layer and
// redone explicitly in VerifyPeerCertificate, which only checks that the
// presented certificate parses and is signed by its own key; the
// peer's claimed identity is the certificate's own hash, so there is
// nothing further to validate against.
func ServerConfig(id Identity) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{id.Cert},
		ClientAuth:            tls.RequireAnyClientCert,
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifySelfSigned,
		MinVersion:            tls.VersionTLS13,
	}
}

// ClientConfig returns a *tls.Config suitable for tls.Dial: it presents
// id's certificate and, symmetrically, accepts whatever self-signed
// certificate the server presents.
func ClientConfig(id Identity) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{id.Cert},
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifySelfSigned,
		MinVersion:            tls.VersionTLS13,
	}
}

func verifySelfSigned(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoPeerCertificate
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return err
	}
	return cert.CheckSignatureFrom(cert)
}

// PeerNodeID derives the NodeID a just-completed TLS connection's remote
// peer is claiming: blake3 over the DER bytes of its leaf certificate.
func PeerNodeID(state tls.ConnectionState) (hash.NodeID, error) {
	if len(state.PeerCertificates) == 0 {
		return hash.NodeID{}, ErrNoPeerCertificate
	}
	return hash.Sum(state.PeerCertificates[0].Raw), nil
}
