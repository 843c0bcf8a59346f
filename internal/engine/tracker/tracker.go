// # internal/engine/tracker/tracker.go
package tracker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cssnav/internal/core/errors"
	"cssnav/internal/engine/document"
	"cssnav/internal/engine/tracking"
	"cssnav/internal/shared/observability"
	"cssnav/internal/shared/util"
)

// maxDrainRounds bounds how often one pass re-collects stale files that were
// discovered or edited while it ran.
const maxDrainRounds = 64

// Handler turns documents into per-file services of type S.
type Handler[S any] interface {
	// ParseDocument builds the service of doc and returns the resolved URIs
	// of the files it imports.
	ParseDocument(ctx context.Context, doc *document.Document) (S, []string)
	OnFileTracked(uri string)
	OnFileUntracked(uri string)
	// OnResourcesReleased is called after the idle timer dropped every service.
	OnResourcesReleased()
}

// Options configures discovery and eviction of one tracker.
type Options struct {
	// Name labels metrics and log lines ("css", "html").
	Name          string
	StartPath     string
	Extensions    []string
	Exclude       []string
	AlwaysInclude []string
	IgnoreFiles   []string
	MaxFiles      int
	// IdleTimeout releases every service after this much inactivity; zero
	// disables release.
	IdleTimeout      time.Duration
	ParseConcurrency int
	FileSystem       FileSystem
}

// ChangeType is the kind of a watched file change.
type ChangeType int

const (
	Created ChangeType = iota + 1
	Changed
	Deleted
)

func (c ChangeType) String() string {
	switch c {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// FileChange is one disk notification.
type FileChange struct {
	URI  string
	Type ChangeType
}

// Entry is a stored service with its URI.
type Entry[S any] struct {
	URI     string
	Service S
}

// Tracker discovers files, keeps their freshness and re-parses stale ones on
// demand. BeFresh is the only synchronization point for readers.
type Tracker[S any] struct {
	opts    Options
	handler Handler[S]
	fs      FileSystem
	tm      *tracking.Map
	walker  *walker
	loadLog *util.ThrottledLogger

	passes  singleflight.Group
	updates singleflight.Group

	mu       sync.RWMutex
	services map[string]S

	walked   atomic.Bool
	updating atomic.Bool
	closed   atomic.Bool
	capWarn  sync.Once

	parseCount atomic.Int64
	passCount  atomic.Int64

	idleMu    sync.Mutex
	idleTimer *time.Timer
}

// New validates opts and creates a tracker. Nothing is read from disk until
// the first BeFresh.
func New[S any](opts Options, handler Handler[S]) (*Tracker[S], error) {
	w, err := newWalker(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile tracker globs")
	}
	if opts.ParseConcurrency <= 0 {
		opts.ParseConcurrency = 4
	}
	if opts.FileSystem == nil {
		opts.FileSystem = OSFileSystem{}
	}
	t := &Tracker[S]{
		opts:     opts,
		handler:  handler,
		fs:       opts.FileSystem,
		walker:   w,
		loadLog:  util.NewThrottledLogger(1, 5),
		services: make(map[string]S),
	}
	t.tm = tracking.NewMap(tracking.Hooks{
		OnTracked:   t.onTracked,
		OnUntracked: t.onUntracked,
	})
	return t, nil
}

func (t *Tracker[S]) onTracked(uri string) {
	observability.TrackedDocuments.WithLabelValues(t.opts.Name).Set(float64(t.tm.Len()))
	t.handler.OnFileTracked(uri)
}

func (t *Tracker[S]) onUntracked(uri string) {
	t.mu.Lock()
	delete(t.services, uri)
	t.mu.Unlock()
	observability.TrackedDocuments.WithLabelValues(t.opts.Name).Set(float64(t.tm.Len()))
	t.handler.OnFileUntracked(uri)
}

// Map exposes the tracking state.
func (t *Tracker[S]) Map() *tracking.Map { return t.tm }

func (t *Tracker[S]) Name() string { return t.opts.Name }

// Accepts reports whether uri has one of the tracker's extensions.
func (t *Tracker[S]) Accepts(uri string) bool {
	ext := util.URIExtension(uri)
	for _, e := range t.opts.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Walked reports whether the initial workspace walk has completed.
func (t *Tracker[S]) Walked() bool { return t.walked.Load() }

// Parses returns how many documents were parsed since creation.
func (t *Tracker[S]) Parses() int64 { return t.parseCount.Load() }

// Passes returns how many update passes ran since creation.
func (t *Tracker[S]) Passes() int64 { return t.passCount.Load() }

// Service returns the stored service of uri.
func (t *Tracker[S]) Service(uri string) (S, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.services[uri]
	return s, ok
}

// Entries returns every stored service ordered by URI.
func (t *Tracker[S]) Entries() []Entry[S] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry[S], 0, len(t.services))
	for uri, s := range t.services {
		out = append(out, Entry[S]{URI: uri, Service: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// BeFresh brings every tracked file up to date. Concurrent callers share
// one pass.
func (t *Tracker[S]) BeFresh(ctx context.Context) error {
	if t.closed.Load() {
		return errors.New(errors.CodeInternal, "tracker closed")
	}
	t.resetIdle()
	if t.walked.Load() && t.tm.AllFresh() {
		return nil
	}
	_, err, _ := t.passes.Do("befresh", func() (interface{}, error) {
		return nil, t.pass(context.WithoutCancel(ctx))
	})
	return err
}

func (t *Tracker[S]) pass(ctx context.Context) error {
	passID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "tracker.BeFresh", trace.WithAttributes(
		attribute.String("tracker", t.opts.Name),
		attribute.String("pass_id", passID),
	))
	defer span.End()

	t.updating.Store(true)
	defer t.updating.Store(false)
	t.passCount.Add(1)
	start := time.Now()

	if !t.walked.Load() {
		t.initialWalk(ctx)
	}

	updated := 0
	for round := 0; round < maxDrainRounds; round++ {
		stale := t.tm.StaleURIs()
		if len(stale) == 0 {
			break
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.opts.ParseConcurrency)
		for _, uri := range stale {
			g.Go(func() error {
				t.UpdateFile(gctx, uri)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		updated += len(stale)
	}
	fresh := t.tm.TryMarkAllFresh()

	elapsed := time.Since(start)
	observability.FreshPassesTotal.WithLabelValues(t.opts.Name).Inc()
	observability.FreshPassDuration.WithLabelValues(t.opts.Name).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("updated", updated), attribute.Bool("fresh", fresh))
	slog.Debug("update pass finished",
		"tracker", t.opts.Name,
		"pass_id", passID,
		"updated", updated,
		"fresh", fresh,
		"duration", elapsed,
	)
	return nil
}

func (t *Tracker[S]) initialWalk(ctx context.Context) {
	count, capped := t.walker.walk(ctx, t.fs, t.walker.root, t.tm, t.opts.MaxFiles)
	t.walked.Store(true)
	if capped {
		t.capWarn.Do(func() {
			slog.Warn("workspace has more files than max_files, ignoring the rest",
				"tracker", t.opts.Name,
				"max_files", t.opts.MaxFiles,
				"path", t.walker.root,
			)
		})
	}
	slog.Debug("workspace walk finished", "tracker", t.opts.Name, "files", count)
}

// UpdateFile parses uri now. Concurrent requests for one URI share a parse.
func (t *Tracker[S]) UpdateFile(ctx context.Context, uri string) {
	_, _, _ = t.updates.Do(uri, func() (interface{}, error) {
		t.updateFile(ctx, uri)
		return nil, nil
	})
}

func (t *Tracker[S]) updateFile(ctx context.Context, uri string) {
	snap, ok := t.tm.Snapshot(uri)
	if !ok {
		slog.Debug("update of untracked uri ignored", "uri", uri)
		return
	}
	ctx, span := observability.Tracer.Start(ctx, "tracker.updateFile",
		trace.WithAttributes(attribute.String("uri", uri)))
	defer span.End()

	doc := snap.Document
	if doc == nil {
		doc = t.load(uri)
	}

	start := time.Now()
	svc, imports := t.handler.ParseDocument(ctx, doc)
	lang := string(doc.Language())
	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	observability.DocumentsParsedTotal.WithLabelValues(lang).Inc()
	t.parseCount.Add(1)

	t.mu.Lock()
	t.services[uri] = svc
	t.mu.Unlock()
	if !t.tm.Has(uri) {
		t.mu.Lock()
		delete(t.services, uri)
		t.mu.Unlock()
		return
	}

	t.tm.MarkFresh(uri, snap.Generation)
	if !snap.Opened {
		t.tm.ReleaseDocument(uri)
	}
	t.tm.AddImported(imports, uri)
}

// load reads uri from disk. A failed read yields an empty document so one
// unreadable file never blocks the rest of a pass.
func (t *Tracker[S]) load(uri string) *document.Document {
	path := util.URIToPath(uri)
	data, err := t.fs.ReadFile(path)
	if err != nil {
		observability.LoadFailuresTotal.Inc()
		err = errors.AddContext(errors.Wrap(err, errors.CodeIO, "read file"), errors.CtxURI, uri)
		t.loadLog.Warn("failed to load file, treating as empty", "tracker", t.opts.Name, "error", err)
		return document.New(uri, 0, "")
	}
	return document.New(uri, 0, string(data))
}

// OnDocumentOpenOrContentChanged tracks the live editor copy of doc.
func (t *Tracker[S]) OnDocumentOpenOrContentChanged(doc *document.Document) {
	t.tm.TrackByDocument(doc)
}

// OnDocumentSaved re-parses uri, but only while a pass is running: outside
// a pass the content-change notification already staled it.
func (t *Tracker[S]) OnDocumentSaved(ctx context.Context, uri string) {
	if !t.updating.Load() || !t.tm.Has(uri) {
		return
	}
	t.UpdateFile(ctx, uri)
}

// OnDocumentClosed drops the editor copy of uri.
func (t *Tracker[S]) OnDocumentClosed(uri string) {
	t.tm.RemoveReason(uri, tracking.ReasonOpened)
}

// OnWatchedFileOrFolderChanged applies disk notifications.
func (t *Tracker[S]) OnWatchedFileOrFolderChanged(ctx context.Context, changes []FileChange) {
	for _, change := range changes {
		switch change.Type {
		case Created:
			// Files outside the walked tree are found through imports, so
			// nothing is tracked before the walk.
			if t.walked.Load() {
				t.trackFileOrFolder(ctx, change.URI)
			}
		case Changed:
			t.trackChanged(change.URI)
		case Deleted:
			t.untrackPrefix(change.URI)
		}
	}
}

func (t *Tracker[S]) trackFileOrFolder(ctx context.Context, uri string) {
	path := util.URIToPath(uri)
	info, err := t.fs.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		t.walker.walk(ctx, t.fs, path, t.tm, 0)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	if t.tm.Has(uri) {
		// A file replaced by rename shows up as created.
		t.tm.TrackByReason(uri, 0)
		return
	}
	if t.walker.includes(path) {
		t.tm.TrackByReason(uri, tracking.ReasonIncluded)
	}
}

func (t *Tracker[S]) trackChanged(uri string) {
	info, err := t.fs.Stat(util.URIToPath(uri))
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	if t.tm.Has(uri) {
		// Re-tracking a closed file marks it stale.
		t.tm.TrackByReason(uri, 0)
		return
	}
	if t.walked.Load() && t.walker.includes(util.URIToPath(uri)) {
		t.tm.TrackByReason(uri, tracking.ReasonIncluded)
	}
}

func (t *Tracker[S]) untrackPrefix(uri string) {
	deleted := util.URIToPath(uri)
	if deleted == "" {
		return
	}
	for _, tracked := range t.tm.URIs() {
		if util.HasPathPrefix(util.URIToPath(tracked), deleted) {
			t.tm.Delete(tracked)
		}
	}
}

// TrackIncluded tracks uri as part of the workspace without a walk.
func (t *Tracker[S]) TrackIncluded(uri string) {
	t.tm.TrackByReason(uri, tracking.ReasonIncluded)
}

// ReleaseResources drops every stored service. Tracking state survives, so
// the next BeFresh re-parses everything.
func (t *Tracker[S]) ReleaseResources() {
	t.mu.Lock()
	t.services = make(map[string]S)
	t.mu.Unlock()
	t.tm.MarkAllStale()
	slog.Debug("released parsed documents", "tracker", t.opts.Name)
	t.handler.OnResourcesReleased()
}

func (t *Tracker[S]) resetIdle() {
	if t.opts.IdleTimeout <= 0 {
		return
	}
	t.idleMu.Lock()
	defer t.idleMu.Unlock()
	if t.closed.Load() {
		return
	}
	if t.idleTimer == nil {
		t.idleTimer = time.AfterFunc(t.opts.IdleTimeout, t.ReleaseResources)
		return
	}
	t.idleTimer.Reset(t.opts.IdleTimeout)
}

// Close stops the idle timer. The tracker refuses BeFresh afterwards.
func (t *Tracker[S]) Close() error {
	t.closed.Store(true)
	t.idleMu.Lock()
	defer t.idleMu.Unlock()
	if t.idleTimer != nil {
		t.idleTimer.Stop()
		t.idleTimer = nil
	}
	return nil
}
