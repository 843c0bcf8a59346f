package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"cssnav/internal/core/config"
	"cssnav/internal/core/errors"
	"cssnav/internal/core/ports"
	"cssnav/internal/core/watcher"
	"cssnav/internal/engine/document"
	"cssnav/internal/engine/parser"
	"cssnav/internal/engine/servicemap"
	"cssnav/internal/engine/service"
	"cssnav/internal/engine/tracker"
	"cssnav/internal/shared/util"
)

// App wires the stylesheet and markup service maps behind one facade and
// routes editor and disk notifications to them.
type App struct {
	Config *config.Config
	Parser *parser.Parser
	CSS    *servicemap.Map
	HTML   *servicemap.Map

	fs tracker.FileSystem

	docsMu sync.RWMutex
	docs   map[string]*document.Document

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
}

var _ ports.DocumentLifecycle = (*App)(nil)

// Option customizes an App before its maps are built.
type Option func(*options)

type options struct {
	fs tracker.FileSystem
}

// WithFileSystem replaces the disk used for discovery and loads.
func WithFileSystem(fs tracker.FileSystem) Option {
	return func(o *options) { o.fs = fs }
}

// New builds both service maps from cfg. Nothing is read from disk until
// the first query.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	o := options{fs: tracker.OSFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}

	p := parser.New(parser.Options{EmbeddedCSS: cfg.Service.ParseEmbeddedCSS()})

	css, err := servicemap.New(servicemap.Options{
		Tracker:             trackerOptions(cfg, "css", cfg.Workspace.CSSExtensions, o.fs),
		Service:             service.Options{ClassNameSet: cfg.Service.ClassNameDiagnostics},
		TrackImports:        true,
		IgnoreSameNameCSS:   cfg.Service.IgnoreSameNameCSS(),
		ImportSweepInterval: cfg.Release.ImportSweepInterval,
		ImportExpiry:        cfg.Release.ImportExpiry,
	}, p)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "build css map")
	}

	html, err := servicemap.New(servicemap.Options{
		Tracker: trackerOptions(cfg, "html", cfg.Workspace.HTMLExtensions, o.fs),
	}, p)
	if err != nil {
		_ = css.Close()
		return nil, errors.AddContext(err, errors.CtxOperation, "build html map")
	}

	return &App{
		Config: cfg,
		Parser: p,
		CSS:    css,
		HTML:   html,
		fs:     o.fs,
		docs:   make(map[string]*document.Document),
	}, nil
}

func trackerOptions(cfg *config.Config, name string, extensions []string, fs tracker.FileSystem) tracker.Options {
	ws := cfg.Workspace
	return tracker.Options{
		Name:             name,
		StartPath:        ws.StartPath,
		Extensions:       extensions,
		Exclude:          ws.Exclude,
		AlwaysInclude:    ws.AlwaysInclude,
		IgnoreFiles:      ws.IgnoreFiles,
		MaxFiles:         ws.MaxFiles,
		IdleTimeout:      cfg.Release.IdleTimeout,
		ParseConcurrency: cfg.Service.ParseConcurrency,
		FileSystem:       fs,
	}
}

// mapFor returns the map owning uri by extension.
func (a *App) mapFor(uri string) *servicemap.Map {
	switch {
	case a.CSS.Accepts(uri):
		return a.CSS
	case a.HTML.Accepts(uri):
		return a.HTML
	}
	return nil
}

// Index runs the initial walk and parses every tracked file.
func (a *App) Index(ctx context.Context) error {
	if err := a.CSS.BeFresh(ctx); err != nil {
		return err
	}
	return a.HTML.BeFresh(ctx)
}

// OpenOrChangeDocument tracks the live editor copy of doc.
func (a *App) OpenOrChangeDocument(doc *document.Document) {
	m := a.mapFor(doc.URI)
	if m == nil {
		return
	}
	a.docsMu.Lock()
	a.docs[doc.URI] = doc
	a.docsMu.Unlock()
	m.OnDocumentOpenOrContentChanged(doc)
}

// SaveDocument forwards a save notification.
func (a *App) SaveDocument(ctx context.Context, uri string) {
	if m := a.mapFor(uri); m != nil {
		m.OnDocumentSaved(ctx, uri)
	}
}

// CloseDocument drops the editor copy of uri.
func (a *App) CloseDocument(uri string) {
	m := a.mapFor(uri)
	if m == nil {
		return
	}
	a.docsMu.Lock()
	delete(a.docs, uri)
	a.docsMu.Unlock()
	m.OnDocumentClosed(uri)
}

// HandleChanges forwards disk notifications to both maps. Deleted folders
// may hold files of either kind.
func (a *App) HandleChanges(changes []tracker.FileChange) {
	ctx := context.Background()
	slog.Debug("applying watched file changes", "count", len(changes))
	a.CSS.OnWatchedFileOrFolderChanged(ctx, changes)
	a.HTML.OnWatchedFileOrFolderChanged(ctx, changes)
}

// openedDocument returns the live editor copy of uri.
func (a *App) openedDocument(uri string) (*document.Document, bool) {
	a.docsMu.RLock()
	defer a.docsMu.RUnlock()
	doc, ok := a.docs[uri]
	return doc, ok
}

// document returns the editor copy of uri or reads it from disk.
func (a *App) document(uri string) (*document.Document, error) {
	if doc, ok := a.openedDocument(uri); ok {
		return doc, nil
	}
	data, err := a.fs.ReadFile(util.URIToPath(uri))
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "load document"), errors.CtxURI, uri)
	}
	return document.New(uri, 0, string(data)), nil
}

// serviceFor returns the service and text of the document at uri.
func (a *App) serviceFor(ctx context.Context, uri string) (*service.Service, *document.Document, error) {
	m := a.mapFor(uri)
	if m == nil {
		err := errors.Newf(errors.CodeNotSupported, "unsupported document type %q", util.URIExtension(uri))
		return nil, nil, errors.AddContext(err, errors.CtxURI, uri)
	}
	doc, err := a.document(uri)
	if err != nil {
		return nil, nil, err
	}
	return m.ForceGetServiceByDocument(ctx, doc), doc, nil
}

// StartWatcher watches the workspace folder and feeds changes into both
// maps.
func (a *App) StartWatcher() error {
	extensions := append(append([]string(nil), a.Config.Workspace.CSSExtensions...), a.Config.Workspace.HTMLExtensions...)
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		excludedDirNames(a.Config.Workspace.Exclude),
		extensions,
		a.HandleChanges,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create watcher")
	}
	if err := w.Watch([]string{a.Config.Workspace.StartPath}); err != nil {
		_ = w.Close()
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "watch workspace"), errors.CtxPath, a.Config.Workspace.StartPath)
	}
	a.watchMu.Lock()
	a.activeWatcher = w
	a.watchMu.Unlock()
	return nil
}

func (a *App) watching() bool {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	return a.activeWatcher != nil
}

// excludedDirNames turns `**/name/**` exclude globs into folder name globs
// for the watcher. Other shapes are left to the trackers.
func excludedDirNames(patterns []string) []string {
	var names []string
	for _, pattern := range patterns {
		if !strings.HasPrefix(pattern, "**/") || !strings.HasSuffix(pattern, "/**") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		if name == "" || name == "**" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Close stops the watcher and both maps.
func (a *App) Close() error {
	a.watchMu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.watchMu.Unlock()

	var firstErr error
	if w != nil {
		firstErr = w.Close()
	}
	if err := a.CSS.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.HTML.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
