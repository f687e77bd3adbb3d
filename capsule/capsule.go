// Package capsule serves the capsules stored in a content root.
//
// Each directory directly under the content root is a capsule. A capsule
// is selected by the requested hostname when one of its CNAME files names
// it (virtual hosting), and otherwise by the first segment of the request
// path (path-prefixed hosting). Path-prefixed capsules get the relative
// links in their gemtext documents rewritten to keep the prefix.
package capsule

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"git.sr.ht/~adnano/gemhost"
	"git.sr.ht/~adnano/gemhost/mimetype"
)

// IndexFile is served in place of a directory when present.
const IndexFile = "index.gmi"

// Capsule is a content tree selected for a single request.
type Capsule struct {
	// Name is the name of the capsule directory in the content root.
	Name string

	// Root is the absolute path of the capsule directory with all
	// symlinks resolved. Nothing outside Root is ever served.
	Root string

	// FromCName reports whether the capsule was selected by hostname.
	// If false, the first path segment of requests names the capsule.
	FromCName bool

	types  *mimetype.Table
	logger *zap.Logger
}

// Serve returns the response for requestPath. The caller must close the
// response body. Every failure is reported as ErrNotFound.
func (c *Capsule) Serve(ctx context.Context, requestPath string) (*gemini.Response, error) {
	resp, err := c.serve(ctx, requestPath)
	if err != nil {
		c.logger.Debug("serving capsule",
			zap.String("capsule", c.Name),
			zap.String("path", requestPath),
			zap.Error(err))
		return nil, ErrNotFound
	}
	return resp, nil
}

func (c *Capsule) serve(ctx context.Context, requestPath string) (*gemini.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := c.resolve(requestPath)
	if err != nil {
		return nil, err
	}
	resolved, err := c.canonical(p)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.WithMessage(err, "stat")
	}
	if fi.IsDir() {
		return c.serveDir(p)
	}
	return c.serveFile(p)
}

// resolve maps requestPath to a path inside the capsule. Symlinks are
// not resolved yet; see canonical.
func (c *Capsule) resolve(requestPath string) (string, error) {
	rel := requestPath
	if !c.FromCName {
		// The first segment names the capsule.
		rel = strings.TrimLeft(rel, "/")
		if i := strings.IndexByte(rel, '/'); i != -1 {
			rel = rel[i+1:]
		} else {
			rel = ""
		}
	}
	p := filepath.Join(c.Root, filepath.FromSlash(rel))
	if !c.contains(p) {
		return "", errors.Errorf("path %q escapes capsule", requestPath)
	}
	return p, nil
}

// canonical resolves the symlinks in p and checks that the result is
// still inside the capsule.
func (c *Capsule) canonical(p string) (string, error) {
	resolved, err := canonical(p)
	if err != nil {
		return "", errors.WithMessage(err, "resolving path")
	}
	if !c.contains(resolved) {
		return "", errors.Errorf("path %q escapes capsule", p)
	}
	return resolved, nil
}

func (c *Capsule) contains(p string) bool {
	if p == c.Root {
		return true
	}
	root := c.Root
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(p, root)
}

func (c *Capsule) serveDir(dir string) (*gemini.Response, error) {
	resp, err := c.serveFile(filepath.Join(dir, IndexFile))
	if err == nil {
		return resp, nil
	}
	return c.listDir(dir)
}

func (c *Capsule) serveFile(name string) (*gemini.Response, error) {
	p, err := c.canonical(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.WithMessage(err, "open")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.WithMessage(err, "stat")
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, errors.Errorf("%q is not a regular file", name)
	}

	// The requested name decides the type, not the symlink target.
	mediatype := c.types.Lookup(name)
	if mediatype != mimetype.Gemini || c.FromCName {
		return &gemini.Response{
			Status: gemini.StatusSuccess,
			Meta:   mediatype,
			Body:   f,
		}, nil
	}

	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.WithMessage(err, "read")
	}
	return &gemini.Response{
		Status: gemini.StatusSuccess,
		Meta:   mediatype,
		Body:   io.NopCloser(bytes.NewReader(RewriteLinks(b, c.Name))),
	}, nil
}

// listDir lists the visible entries of dir in directory order.
func (c *Capsule) listDir(dir string) (*gemini.Response, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, errors.WithMessage(err, "open directory")
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, errors.WithMessage(err, "read directory")
	}

	var text gemini.Text
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		u := url.URL{Path: name}
		text = append(text, gemini.LineLink{URL: u.String()})
	}
	return &gemini.Response{
		Status: gemini.StatusSuccess,
		Meta:   mimetype.Gemini,
		Body:   io.NopCloser(strings.NewReader(text.String())),
	}, nil
}
