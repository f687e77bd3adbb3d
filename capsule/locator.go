package capsule

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"git.sr.ht/~adnano/gemhost/mimetype"
)

// ErrNotFound is returned for every request that cannot be served,
// whatever the underlying cause.
var ErrNotFound = errors.New("capsule: not found")

// Locator finds the capsule that serves a request.
type Locator struct {
	root     string
	resolver *Resolver
	types    *mimetype.Table
	logger   *zap.Logger
}

// NewLocator returns a Locator for capsules stored under root.
// Hostnames are resolved with resolver and file types with types.
// If logger is nil, logging is disabled.
func NewLocator(root string, resolver *Resolver, types *mimetype.Table, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		root:     root,
		resolver: resolver,
		types:    types,
		logger:   logger,
	}
}

// Locate returns the capsule for u. A capsule whose CNAME names the
// hostname of u is preferred; otherwise the first path segment names the
// capsule directory. It returns ErrNotFound if no such directory exists.
func (l *Locator) Locate(ctx context.Context, u *url.URL) (*Capsule, error) {
	if err := ctx.Err(); err != nil {
		l.logger.Debug("locating capsule",
			zap.String("url", u.String()), zap.Error(err))
		return nil, ErrNotFound
	}

	name, fromCName := l.resolver.Resolve(u.Hostname())
	if !fromCName {
		name = firstSegment(u.Path)
	}

	c, err := l.open(name, fromCName)
	if err != nil {
		l.logger.Debug("locating capsule",
			zap.String("url", u.String()), zap.Error(err))
		return nil, ErrNotFound
	}
	return c, nil
}

func (l *Locator) open(name string, fromCName bool) (*Capsule, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, errors.Errorf("invalid capsule name %q", name)
	}
	dir := filepath.Join(l.root, name)
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WithMessage(err, "stat capsule")
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("capsule %q is not a directory", name)
	}
	root, err := canonical(dir)
	if err != nil {
		return nil, errors.WithMessage(err, "resolving capsule root")
	}
	return &Capsule{
		Name:      name,
		Root:      root,
		FromCName: fromCName,
		types:     l.types,
		logger:    l.logger,
	}, nil
}

// firstSegment returns the first non-empty segment of p.
func firstSegment(p string) string {
	p = strings.TrimLeft(p, "/")
	if i := strings.IndexByte(p, '/'); i != -1 {
		p = p[:i]
	}
	return p
}

// canonical returns the absolute path of p with all symlinks resolved.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
