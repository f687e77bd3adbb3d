package certificate

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultScope is the scope of the certificate served when no
// certificate matches the requested hostname. Load reads it from
// the key pair named "server.crt" and "server.key".
const DefaultScope = "*"

const defaultName = "server"

// Errors.
var (
	ErrUnknownScope       = errors.New("certificate: unrecognized scope")
	ErrExpiredCertificate = errors.New("certificate: certificate expired")
)

// A Store maps certificate scopes to certificates.
// A scope is a hostname, a wildcard pattern (e.g. "*.example.com"),
// or DefaultScope.
// The zero value for Store is an empty store ready to use.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	certs map[string]tls.Certificate
	mu    sync.RWMutex
}

// Add adds a certificate with the given scope to the certificate store.
func (s *Store) Add(scope string, cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return errors.New("certificate: empty certificate chain")
	}

	// Parse certificate if not already parsed
	if cert.Leaf == nil {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return err
		}
		cert.Leaf = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.certs == nil {
		s.certs = make(map[string]tls.Certificate)
	}
	s.certs[scope] = cert
	return nil
}

// Get retrieves a certificate for the given hostname.
// It tries the hostname itself, then the matching wildcard pattern,
// then DefaultScope. Expired certificates are not returned.
func (s *Store) Get(hostname string) (*tls.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[hostname]
	if !ok {
		// Try wildcard
		wildcard := strings.SplitN(hostname, ".", 2)
		if len(wildcard) == 2 {
			cert, ok = s.certs["*."+wildcard[1]]
		}
	}
	if !ok {
		cert, ok = s.certs[DefaultScope]
	}
	if !ok {
		return nil, ErrUnknownScope
	}
	if cert.Leaf != nil && cert.Leaf.NotAfter.Before(time.Now()) {
		return nil, ErrExpiredCertificate
	}
	return &cert, nil
}

// Load loads certificates from the provided path.
//
// The path should lead to a directory containing certificates
// and private keys named "scope.crt" and "scope.key" respectively,
// where "scope" is the scope of the certificate. The pair
// "server.crt" and "server.key" is loaded as DefaultScope.
// Load fails if a certificate cannot be paired with its key.
func (s *Store) Load(path string) error {
	matches, err := filepath.Glob(filepath.Join(path, "*.crt"))
	if err != nil {
		return err
	}
	for _, crtPath := range matches {
		scope := strings.TrimSuffix(filepath.Base(crtPath), ".crt")
		if scope == defaultName {
			scope = DefaultScope
		}

		keyPath := strings.TrimSuffix(crtPath, ".crt") + ".key"
		cert, err := tls.LoadX509KeyPair(crtPath, keyPath)
		if err != nil {
			return err
		}
		if err := s.Add(scope, cert); err != nil {
			return err
		}
	}
	return nil
}

// Scopes returns the scopes of the certificates in the store.
func (s *Store) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scopes := make([]string, 0, len(s.certs))
	for scope := range s.certs {
		scopes = append(scopes, scope)
	}
	return scopes
}
