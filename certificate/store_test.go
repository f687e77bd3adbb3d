package certificate

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStoreGet(t *testing.T) {
	var s Store
	for _, scope := range []string{"example.com", "*.example.org", DefaultScope} {
		cert, err := Create(CreateOptions{Hostnames: []string{scope}, Duration: time.Hour})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Add(scope, cert); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		Hostname string
		CN       string
	}{
		{"example.com", "example.com"},
		{"www.example.org", "*.example.org"},
		{"example.net", DefaultScope},
		{"", DefaultScope},
	}
	for _, test := range tests {
		cert, err := s.Get(test.Hostname)
		if err != nil {
			t.Errorf("Get(%q): unexpected error %v", test.Hostname, err)
			continue
		}
		if cn := cert.Leaf.Subject.CommonName; cn != test.CN {
			t.Errorf("Get(%q): expected certificate for %q, got %q", test.Hostname, test.CN, cn)
		}
	}
}

func TestStoreGetUnknown(t *testing.T) {
	var s Store
	if _, err := s.Get("example.com"); err != ErrUnknownScope {
		t.Errorf("expected %v, got %v", ErrUnknownScope, err)
	}
}

func TestStoreGetExpired(t *testing.T) {
	var s Store
	cert, err := Create(CreateOptions{Hostnames: []string{"example.com"}, Duration: -time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add("example.com", cert); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("example.com"); err != ErrExpiredCertificate {
		t.Errorf("expected %v, got %v", ErrExpiredCertificate, err)
	}
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()

	def, err := Create(CreateOptions{Hostnames: []string{"localhost", "127.0.0.1"}, Duration: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteDefault(def, dir); err != nil {
		t.Fatal(err)
	}
	host, err := Create(CreateOptions{Hostnames: []string{"bob.example"}, Duration: time.Hour, Ed25519: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(host, filepath.Join(dir, "bob.example.crt"), filepath.Join(dir, "bob.example.key")); err != nil {
		t.Fatal(err)
	}

	var s Store
	if err := s.Load(dir); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Scopes()); n != 2 {
		t.Fatalf("expected 2 scopes, got %d", n)
	}

	cert, err := s.Get("bob.example")
	if err != nil {
		t.Fatal(err)
	}
	if cn := cert.Leaf.Subject.CommonName; cn != "bob.example" {
		t.Errorf("expected bob.example, got %q", cn)
	}

	cert, err = s.Get("alice.example")
	if err != nil {
		t.Fatal(err)
	}
	if cn := cert.Leaf.Subject.CommonName; cn != "localhost" {
		t.Errorf("expected default certificate, got %q", cn)
	}
	if len(cert.Leaf.IPAddresses) != 1 {
		t.Errorf("expected one IP SAN, got %v", cert.Leaf.IPAddresses)
	}
}

func TestStoreLoadMissingKey(t *testing.T) {
	dir := t.TempDir()
	cert, err := Create(CreateOptions{Hostnames: []string{"localhost"}, Duration: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(cert, filepath.Join(dir, "server.crt"), filepath.Join(dir, "other.key")); err != nil {
		t.Fatal(err)
	}

	var s Store
	if err := s.Load(dir); err == nil {
		t.Error("expected error for certificate without key")
	}
}
