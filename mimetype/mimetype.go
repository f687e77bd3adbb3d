// Package mimetype maps file names to media types.
package mimetype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Gemini is the media type of gemtext documents.
const Gemini = "text/gemini"

// Default is returned for extensions without a known media type.
const Default = "application/octet-stream"

// builtin overrides the system database. The native markup extension
// must always win over whatever the host has registered for it.
var builtin = map[string]string{
	".gmi":    Gemini,
	".gemini": Gemini,
	".txt":    "text/plain",
	".md":     "text/markdown",
	".html":   "text/html",
	".css":    "text/css",
	".js":     "text/javascript",
	".json":   "application/json",
	".xml":    "application/xml",
	".atom":   "application/atom+xml",
	".rss":    "application/rss+xml",
	".pdf":    "application/pdf",
	".zip":    "application/zip",
	".gz":     "application/gzip",
	".png":    "image/png",
	".jpg":    "image/jpeg",
	".jpeg":   "image/jpeg",
	".gif":    "image/gif",
	".webp":   "image/webp",
	".svg":    "image/svg+xml",
	".mp3":    "audio/mpeg",
	".ogg":    "audio/ogg",
	".flac":   "audio/flac",
	".mp4":    "video/mp4",
	".webm":   "video/webm",
}

// Table is an extension to media type table. It is built once by New and
// is read-only afterwards, so it is safe for concurrent use.
type Table struct {
	types map[string]string
}

// New returns a Table holding the builtin types plus any extra
// extension to type mappings. Extensions are matched case-insensitively;
// the leading dot is optional. Builtin entries cannot be overridden.
func New(extra map[string]string) *Table {
	t := &Table{types: make(map[string]string, len(builtin)+len(extra))}
	for ext, typ := range extra {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		t.types[ext] = typ
	}
	for ext, typ := range builtin {
		t.types[ext] = typ
	}
	return t
}

// Lookup returns the media type for the file at path, based on its
// extension. It never fails: unknown extensions yield Default.
func (t *Table) Lookup(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Default
	}
	if typ, ok := t.types[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	return Default
}
