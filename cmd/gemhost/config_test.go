package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// clearEnv hides any configuration in the test environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range settings {
		t.Setenv(s.env, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	expected := config{
		Port:           1965,
		Hostname:       "localhost",
		DataDir:        "./data",
		KeysDir:        "./keys",
		IdleTimeout:    30 * time.Second,
		RequestTimeout: 10 * time.Second,
		CNAMETTL:       60 * time.Second,
	}
	if !reflect.DeepEqual(*cfg, expected) {
		t.Errorf("expected %+v, got %+v", expected, *cfg)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_PORT", "1966")
	t.Setenv("GEMINI_HOSTNAME", "example.org")
	t.Setenv("DATA_DIR", "/srv/gemini")
	t.Setenv("IDLE_TIMEOUT", "5s")
	t.Setenv("CNAME_TTL", "2m")
	t.Setenv("DEBUG", "true")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 1966 || cfg.Hostname != "example.org" || cfg.DataDir != "/srv/gemini" {
		t.Errorf("environment not applied: %+v", *cfg)
	}
	if cfg.IdleTimeout != 5*time.Second || cfg.CNAMETTL != 2*time.Minute || !cfg.Debug {
		t.Errorf("environment not applied: %+v", *cfg)
	}
	if cfg.KeysDir != "./keys" {
		t.Errorf("expected default keys dir, got %q", cfg.KeysDir)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gemhost.yaml")
	file := "port: 1970\ndata_dir: /from/file\nkeys_dir: /keys/from/file\nrequest_timeout: 3s\n" +
		"mime_types:\n  gpub: application/gpub+zip\n"
	if err := os.WriteFile(path, []byte(file), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_DIR", "/from/env")
	t.Setenv("KEYS_DIR", "/keys/from/env")

	cfg, err := loadConfig([]string{"--config", path, "--keys-dir", "/keys/from/flag"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		Name     string
		Got      interface{}
		Expected interface{}
	}{
		{"port", cfg.Port, 1970},
		{"request_timeout", cfg.RequestTimeout, 3 * time.Second},
		{"data_dir", cfg.DataDir, "/from/env"},
		{"keys_dir", cfg.KeysDir, "/keys/from/flag"},
		{"mime_types", cfg.MIMETypes["gpub"], "application/gpub+zip"},
	}
	for _, test := range tests {
		if test.Got != test.Expected {
			t.Errorf("%s: expected %v, got %v", test.Name, test.Expected, test.Got)
		}
	}
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	tests := [][]string{
		{"--port", "0"},
		{"--port", "70000"},
		{"--data-dir", ""},
		{"--no-such-flag"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml")},
	}
	for _, args := range tests {
		if _, err := loadConfig(args); err == nil {
			t.Errorf("loadConfig(%q): expected error", args)
		}
	}
}

func TestLoadConfigGenerateCert(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig([]string{"--generate-cert", "--hostname", "example.org"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.GenerateCert || cfg.Hostname != "example.org" {
		t.Errorf("unexpected config %+v", *cfg)
	}
}
