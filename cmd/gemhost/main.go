// Command gemhost serves a directory of Gemini capsules over TLS.
//
// Each directory under the content root is a capsule. A capsule is
// reached either by the hostname named in its CNAME file or by its
// directory name as the first path segment:
//
//	gemini://bob.example/page.gmi      data/bob/page.gmi (bob/CNAME = bob.example)
//	gemini://localhost/alice/page.gmi  data/alice/page.gmi
//
// Run with --generate-cert once to create a self-signed default
// certificate in the keys directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"git.sr.ht/~adnano/gemhost"
	"git.sr.ht/~adnano/gemhost/capsule"
	"git.sr.ht/~adnano/gemhost/certificate"
	"git.sr.ht/~adnano/gemhost/mimetype"
)

const (
	certDuration    = 365 * 24 * time.Hour
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gemhost:", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gemhost:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.GenerateCert {
		if err := generateCert(cfg); err != nil {
			logger.Fatal("generating certificate", zap.Error(err))
		}
		logger.Info("wrote certificate",
			zap.String("hostname", cfg.Hostname), zap.String("dir", cfg.KeysDir))
		return
	}

	s, err := newServer(cfg, logger)
	if err != nil {
		logger.Fatal("configuring server", zap.Error(err))
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.ListenAndServe()
	}()
	logger.Info("listening",
		zap.String("addr", s.Addr),
		zap.String("data_dir", cfg.DataDir),
		zap.Strings("certificates", s.Certificates.Scopes()))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		logger.Error("serving", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	case sig := <-sigc:
		logger.Info("shutting down", zap.Stringer("signal", sig))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			logger.Warn("connections still open at exit", zap.Error(err))
		}
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// generateCert writes a self-signed default certificate for cfg.Hostname.
func generateCert(cfg *config) error {
	if err := os.MkdirAll(cfg.KeysDir, 0700); err != nil {
		return err
	}
	cert, err := certificate.Create(certificate.CreateOptions{
		Hostnames: []string{cfg.Hostname},
		Duration:  certDuration,
	})
	if err != nil {
		return err
	}
	return errors.Wrapf(certificate.WriteDefault(cert, cfg.KeysDir), "writing to %s", cfg.KeysDir)
}

// newServer wires the capsule handler and certificates into a server.
func newServer(cfg *config, logger *zap.Logger) (*gemini.Server, error) {
	fi, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "data_dir")
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("data_dir %s is not a directory", cfg.DataDir)
	}

	s := &gemini.Server{
		Addr:           ":" + strconv.Itoa(cfg.Port),
		IdleTimeout:    cfg.IdleTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	}
	if err := s.Certificates.Load(cfg.KeysDir); err != nil {
		return nil, errors.Wrapf(err, "loading certificates from %s", cfg.KeysDir)
	}
	if len(s.Certificates.Scopes()) == 0 {
		return nil, errors.Errorf("no certificates in %s; run with --generate-cert", cfg.KeysDir)
	}

	resolver := capsule.NewResolver(cfg.DataDir,
		capsule.WithTTL(cfg.CNAMETTL),
		capsule.WithLogger(logger))
	locator := capsule.NewLocator(cfg.DataDir, resolver, mimetype.New(cfg.MIMETypes), logger)
	s.Handler = capsule.NewHandler(locator, logger)
	return s, nil
}
