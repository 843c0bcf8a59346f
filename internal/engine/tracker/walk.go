// # internal/engine/tracker/walk.go
package tracker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"cssnav/internal/engine/tracking"
	"cssnav/internal/shared/util"
)

// globSet matches slash paths relative to the walk root. Patterns are tried
// against both "a/b" and "/a/b" so that a leading "**/" also covers files in
// the root folder.
type globSet []glob.Glob

func compileGlobs(patterns []string) (globSet, error) {
	set := make(globSet, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		set = append(set, g)
	}
	return set, nil
}

func (s globSet) match(rel string, isDir bool) bool {
	if len(s) == 0 || rel == "" {
		return false
	}
	candidates := []string{rel, "/" + rel}
	if isDir {
		candidates = append(candidates, rel+"/", "/"+rel+"/")
	}
	for _, g := range s {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}

// IncludeGlob derives the include pattern of a tracker from its extensions.
func IncludeGlob(extensions []string) string {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 1 {
		return "**/*." + exts[0]
	}
	return "**/*.{" + strings.Join(exts, ",") + "}"
}

// walker decides which files under the start path are included.
type walker struct {
	mu          sync.Mutex
	root        string
	include     globSet
	exclude     globSet
	always      globSet
	ignoreFiles []string
	rules       ignoreRules
}

func newWalker(opts Options) (*walker, error) {
	include, err := compileGlobs([]string{IncludeGlob(opts.Extensions)})
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}
	always, err := compileGlobs(opts.AlwaysInclude)
	if err != nil {
		return nil, err
	}
	root := opts.StartPath
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &walker{
		root:        root,
		include:     include,
		exclude:     exclude,
		always:      always,
		ignoreFiles: opts.IgnoreFiles,
	}, nil
}

// includes reports whether the file at path belongs to the tracked set.
// Ignore-file rules only apply once the walk has loaded them.
func (w *walker) includes(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	rel := util.RelativeSlashPath(w.root, path)
	if rel == "" {
		return false
	}
	if w.always.match(rel, false) {
		return true
	}
	if !w.include.match(rel, false) || w.excludedPath(rel) {
		return false
	}
	return !w.rules.ignoredPath(rel, false)
}

func (w *walker) excludedPath(rel string) bool {
	if w.exclude.match(rel, false) {
		return true
	}
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if w.exclude.match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return false
}

// walk tracks every included file under dir, stopping at maxFiles. It
// returns how many files were tracked and whether the cap was hit.
func (w *walker) walk(ctx context.Context, fsys FileSystem, dir string, tm *tracking.Map, maxFiles int) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count := 0
	capped := false
	err := fsys.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Debug("walk error", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		rel := util.RelativeSlashPath(w.root, path)
		if d.IsDir() {
			if rel != "" && !w.always.match(rel, true) &&
				(w.exclude.match(rel, true) || w.rules.ignored(rel, true)) {
				return filepath.SkipDir
			}
			w.loadIgnoreFiles(fsys, path, rel)
			return nil
		}
		if rel == "" || !d.Type().IsRegular() {
			return nil
		}

		if !w.always.match(rel, false) {
			if !w.include.match(rel, false) || w.exclude.match(rel, false) || w.rules.ignored(rel, false) {
				return nil
			}
		}
		if maxFiles > 0 && count >= maxFiles {
			capped = true
			return fs.SkipAll
		}
		tm.TrackByReason(util.PathToURI(path), tracking.ReasonIncluded)
		count++
		return nil
	})
	if err != nil {
		slog.Warn("workspace walk failed", "path", dir, "error", err)
	}
	return count, capped
}

// loadIgnoreFiles reads the ignore files of dir, replacing any rules an
// earlier walk of the same folder loaded.
func (w *walker) loadIgnoreFiles(fsys FileSystem, dir, rel string) {
	var contents [][]byte
	for _, name := range w.ignoreFiles {
		content, err := fsys.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		contents = append(contents, content)
	}
	w.rules.replace(rel, contents)
}
