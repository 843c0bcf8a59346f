// # internal/engine/resolve/resolve.go
package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cssnav/internal/shared/util"
)

// StatFS is the part of the filesystem the resolver needs.
type StatFS interface {
	Stat(name string) (fs.FileInfo, error)
}

type osStat struct{}

func (osStat) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

var stylesheetExtensions = []string{"scss", "sass", "css", "less"}

// Resolver maps import paths written in a document to existing file URIs.
type Resolver struct {
	fs StatFS
}

// New creates a resolver; a nil fsys uses the OS filesystem.
func New(fsys StatFS) *Resolver {
	if fsys == nil {
		fsys = osStat{}
	}
	return &Resolver{fs: fsys}
}

// ResolveAll resolves every path, dropping the ones without a file.
func (r *Resolver) ResolveAll(fromURI string, paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if uri, ok := r.Resolve(fromURI, p); ok && !seen[uri] {
			seen[uri] = true
			out = append(out, uri)
		}
	}
	return out
}

// Resolve maps one import path to a file URI. Relative paths resolve against
// the importing file; `~pkg` and bare specifiers also try the nearest
// node_modules directories.
func (r *Resolver) Resolve(fromURI, importPath string) (string, bool) {
	importPath = strings.TrimSpace(importPath)
	if i := strings.IndexAny(importPath, "?#"); i >= 0 {
		importPath = importPath[:i]
	}
	if importPath == "" {
		return "", false
	}
	fromPath := util.URIToPath(fromURI)
	if fromPath == "" {
		return "", false
	}
	fromDir := filepath.Dir(fromPath)
	preferred := strings.TrimPrefix(strings.ToLower(filepath.Ext(fromPath)), ".")

	var found string
	switch {
	case strings.HasPrefix(importPath, "~"):
		found = r.fromNodeModules(fromDir, strings.TrimPrefix(importPath[1:], "/"), preferred)
	case filepath.IsAbs(importPath):
		found = r.findFile(filepath.Clean(importPath), preferred)
	case strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../"):
		found = r.findFile(filepath.Join(fromDir, filepath.FromSlash(importPath)), preferred)
	default:
		found = r.findFile(filepath.Join(fromDir, filepath.FromSlash(importPath)), preferred)
		if found == "" {
			found = r.fromNodeModules(fromDir, importPath, preferred)
		}
	}
	if found == "" {
		return "", false
	}
	return util.PathToURI(found), true
}

func (r *Resolver) fromNodeModules(dir, pkgPath, preferred string) string {
	for {
		if found := r.findFile(filepath.Join(dir, "node_modules", filepath.FromSlash(pkgPath)), preferred); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// findFile tries the path itself, its partial form, extension-less forms and
// index files, returning the first regular file.
func (r *Resolver) findFile(base, preferred string) string {
	dir, name := filepath.Split(base)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	var candidates []string
	if isStylesheetExtension(ext) {
		candidates = append(candidates, base, filepath.Join(dir, "_"+name))
	} else {
		for _, e := range orderedExtensions(preferred) {
			candidates = append(candidates, base+"."+e, filepath.Join(dir, "_"+name+"."+e))
		}
		for _, e := range orderedExtensions(preferred) {
			candidates = append(candidates, filepath.Join(base, "_index."+e), filepath.Join(base, "index."+e))
		}
	}

	for _, candidate := range candidates {
		if info, err := r.fs.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

func isStylesheetExtension(ext string) bool {
	for _, e := range stylesheetExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func orderedExtensions(preferred string) []string {
	if !isStylesheetExtension(preferred) {
		return stylesheetExtensions
	}
	out := []string{preferred}
	for _, e := range stylesheetExtensions {
		if e != preferred {
			out = append(out, e)
		}
	}
	return out
}
