package capsule

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"git.sr.ht/~adnano/gemhost"
)

// CNAMEFile is the name of the file in a capsule directory that holds
// the hostname the capsule is served under.
const CNAMEFile = "CNAME"

// DefaultTTL is how long a scan of the content root is trusted.
const DefaultTTL = 60 * time.Second

// Resolver maps hostnames to capsule directories using the CNAME files
// found in the content root. The mapping is cached and rebuilt at most
// once per TTL.
//
// Resolver is safe for concurrent use by multiple goroutines. A refresh
// builds a new map and swaps it in, so readers see either the old or the
// new mapping in full.
type Resolver struct {
	root   string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu          sync.RWMutex
	hosts       map[string]string
	nextRefresh time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTTL sets how long a scan of the content root is trusted.
func WithTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger for skipped CNAME files. A nil logger
// leaves logging disabled.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver returns a Resolver for the content root at root.
// The first call to Resolve scans the root.
func NewResolver(root string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		root:   root,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
		hosts:  map[string]string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the name of the capsule directory whose CNAME file
// names hostname. The comparison is case-insensitive and international
// hostnames match their punycode form.
func (r *Resolver) Resolve(hostname string) (string, bool) {
	hostname, err := gemini.NormalizeHostname(hostname)
	if err != nil || hostname == "" {
		return "", false
	}

	r.maybeRefresh()

	r.mu.RLock()
	defer r.mu.RUnlock()
	dir, ok := r.hosts[hostname]
	return dir, ok
}

func (r *Resolver) maybeRefresh() {
	r.mu.RLock()
	due := !r.now().Before(r.nextRefresh)
	r.mu.RUnlock()
	if !due {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	// Another caller may have refreshed while we waited for the lock.
	if now.Before(r.nextRefresh) {
		return
	}
	// Retries are throttled to one per TTL even if the scan fails.
	r.nextRefresh = now.Add(r.ttl)

	hosts, err := r.scan()
	if err != nil {
		r.logger.Warn("scanning content root", zap.String("root", r.root), zap.Error(err))
	}
	r.hosts = hosts
}

// scan reads the CNAME file of every directory in the root.
// It always returns a usable map, even alongside an error.
func (r *Resolver) scan() (map[string]string, error) {
	hosts := map[string]string{}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return hosts, errors.WithMessage(err, "listing capsules")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		hostname, err := r.readCNAME(entry.Name())
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("skipping CNAME",
					zap.String("capsule", entry.Name()), zap.Error(err))
			}
			continue
		}
		if hostname != "" {
			hosts[hostname] = entry.Name()
		}
	}
	return hosts, nil
}

func (r *Resolver) readCNAME(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(r.root, dir, CNAMEFile))
	if err != nil {
		return "", err
	}
	hostname, err := gemini.NormalizeHostname(strings.TrimSpace(string(b)))
	if err != nil {
		return "", errors.Wrapf(err, "invalid hostname %q", strings.TrimSpace(string(b)))
	}
	return hostname, nil
}
