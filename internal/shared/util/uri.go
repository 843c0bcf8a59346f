package util

import (
	"net/url"
	"path/filepath"
	"strings"
)

// URIToPath converts a file:// URI to a local filesystem path. Bare paths are
// returned cleaned; other schemes yield "".
func URIToPath(uri string) string {
	if uri == "" {
		return ""
	}
	if !strings.Contains(uri, "://") {
		return filepath.Clean(uri)
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "file" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(parsed.Path))
}

// PathToURI converts a filesystem path into a file:// URI.
func PathToURI(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	return u.String()
}

// URIExtension returns the lower-cased extension of a URI without the dot.
func URIExtension(uri string) string {
	ext := strings.ToLower(filepath.Ext(URIToPath(uri)))
	return strings.TrimPrefix(ext, ".")
}
