// Package certificate loads the TLS certificates served by the server
// and creates self-signed ones.
package certificate

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CreateOptions configures the creation of a self-signed TLS certificate.
type CreateOptions struct {
	// Hostnames the certificate is valid for. Entries that parse as IP
	// addresses become IP SANs, everything else a DNS SAN. The first
	// entry is also used as the subject common name.
	Hostnames []string

	// Duration specifies the amount of time that the certificate is valid for.
	Duration time.Duration

	// Ed25519 specifies whether to generate an Ed25519 key pair.
	// If false, an ECDSA P-256 key is generated instead.
	Ed25519 bool
}

// Create creates a new self-signed TLS certificate.
func Create(options CreateOptions) (tls.Certificate, error) {
	priv, pub, err := newKey(options.Ed25519)
	if err != nil {
		return tls.Certificate{}, err
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return tls.Certificate{}, err
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(options.Duration),
		// ECDSA and Ed25519 keys only need DigitalSignature
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range options.Hostnames {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}
	if len(options.Hostnames) > 0 {
		template.Subject = pkix.Name{CommonName: options.Hostnames[0]}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, pub, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        leaf,
	}, nil
}

func newKey(useEd25519 bool) (crypto.PrivateKey, crypto.PublicKey, error) {
	if useEd25519 {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, pub, err
	}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv, &priv.PublicKey, nil
}

// WriteDefault writes cert as the default key pair ("server.crt" and
// "server.key") into dir, the layout expected by Store.Load.
func WriteDefault(cert tls.Certificate, dir string) error {
	return Write(cert,
		filepath.Join(dir, defaultName+".crt"),
		filepath.Join(dir, defaultName+".key"))
}

// Write writes the provided certificate and its private key
// to certPath and keyPath respectively.
func Write(cert tls.Certificate, certPath, keyPath string) error {
	if err := writePEM(certPath, "CERTIFICATE", cert.Certificate[0]); err != nil {
		return err
	}
	privBytes, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return err
	}
	return writePEM(keyPath, "PRIVATE KEY", privBytes)
}

func writePEM(path, blockType string, b []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: b}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
