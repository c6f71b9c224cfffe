package broker

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
)

// tlsCertificateFromDER builds a tls.Certificate from a certificate chain
// PEM (as read from disk) and an already-decrypted private key DER (the
// output of internal/keyfile.Decrypt).
func tlsCertificateFromDER(certPEM, keyDER []byte) (tls.Certificate, error) {
	keyPEMBlock := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	cert, err := tls.X509KeyPair(certPEM, keyPEMBlock)
	if err != nil {
		// Some broker keys are traditional RSA DER ("RSA PRIVATE KEY"), which
		// tls.X509KeyPair also accepts under that PEM type; retry once.
		keyPEMBlock = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: keyDER})
		cert, err = tls.X509KeyPair(certPEM, keyPEMBlock)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("tls: build keypair: %w", err)
		}
	}
	return cert, nil
}

// loadCRL reads a DER or PEM-encoded certificate revocation list and
// returns the set of revoked serial numbers.
func loadCRL(path string) (map[string]struct{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tls: read crlfile: %w", err)
	}
	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}
	crl, err := x509.ParseRevocationList(der)
	if err != nil {
		return nil, fmt.Errorf("tls: parse crl: %w", err)
	}
	revoked := make(map[string]struct{}, len(crl.RevokedCertificateEntries))
	for _, e := range crl.RevokedCertificateEntries {
		revoked[serialKey(e.SerialNumber)] = struct{}{}
	}
	return revoked, nil
}

func serialKey(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}

// revocationCheck builds a tls.Config.VerifyPeerCertificate callback
// rejecting any presented leaf whose serial number appears in revoked
// (spec.md §6.3's cainfo/CRL-based client-cert verification).
func revocationCheck(revoked map[string]struct{}) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				continue
			}
			if _, blocked := revoked[serialKey(cert.SerialNumber)]; blocked {
				return fmt.Errorf("tls: certificate serial %s is revoked", serialKey(cert.SerialNumber))
			}
		}
		return nil
	}
}
