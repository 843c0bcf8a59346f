// # internal/engine/servicemap/servicemap.go
package servicemap

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/parser"
	"cssnav/internal/engine/part"
	"cssnav/internal/engine/resolve"
	"cssnav/internal/engine/service"
	"cssnav/internal/engine/tracker"
	"cssnav/internal/shared/observability"
	"cssnav/internal/shared/util"
)

const defaultForceCacheSize = 128

// shadowingExtensions are the preprocessor sources that hide a compiled
// .css file of the same name in the same folder.
var shadowingExtensions = []string{"scss", "less", "sass"}

// Options configures one service map.
type Options struct {
	Tracker tracker.Options
	Service service.Options
	// TrackImports follows import edges into the tracked set. Markup maps
	// keep their imports on the service only.
	TrackImports bool
	// IgnoreSameNameCSS hides a .css file while a same-named preprocessor
	// source is tracked beside it.
	IgnoreSameNameCSS   bool
	ImportSweepInterval time.Duration
	ImportExpiry        time.Duration
	ForceCacheSize      int
}

// Map keeps one service per tracked file and answers queries over all of
// them. Every query waits for BeFresh first.
type Map struct {
	*tracker.Tracker[*service.Service]

	opts     Options
	parser   *parser.Parser
	resolver *resolve.Resolver
	fs       tracker.FileSystem
	force    *serviceCache

	mu      sync.RWMutex
	ignored map[string]bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a service map and starts its import sweep.
func New(opts Options, p *parser.Parser) (*Map, error) {
	if opts.Tracker.FileSystem == nil {
		opts.Tracker.FileSystem = tracker.OSFileSystem{}
	}
	if opts.ForceCacheSize <= 0 {
		opts.ForceCacheSize = defaultForceCacheSize
	}
	m := &Map{
		opts:     opts,
		parser:   p,
		resolver: resolve.New(opts.Tracker.FileSystem),
		fs:       opts.Tracker.FileSystem,
		force:    newServiceCache(opts.ForceCacheSize),
		ignored:  make(map[string]bool),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	tr, err := tracker.New[*service.Service](opts.Tracker, m)
	if err != nil {
		return nil, err
	}
	m.Tracker = tr

	if opts.TrackImports && opts.ImportSweepInterval > 0 && opts.ImportExpiry > 0 {
		go m.sweepLoop()
	} else {
		close(m.done)
	}
	return m, nil
}

// ParseDocument builds the service of doc. It is the tracker's parse hook.
func (m *Map) ParseDocument(_ context.Context, doc *document.Document) (*service.Service, []string) {
	svc := m.build(doc)
	if !m.opts.TrackImports {
		return svc, nil
	}
	return svc, svc.Imports()
}

func (m *Map) build(doc *document.Document) *service.Service {
	parts := m.parser.Parse(doc.Text, doc.Language())
	var paths []string
	for _, p := range parts {
		if p.Kind == part.CSSImportPath {
			paths = append(paths, p.Text)
		}
	}
	imports := m.resolver.ResolveAll(doc.URI, paths)
	return service.New(doc, parts, imports, m.opts.Service)
}

// OnFileTracked ignores a .css file shadowed by a tracked preprocessor
// source, or the .css file a newly tracked source shadows.
func (m *Map) OnFileTracked(uri string) {
	if !m.opts.IgnoreSameNameCSS {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ext := util.URIExtension(uri); {
	case ext == "css":
		if m.shadowedLocked(uri) {
			m.ignored[uri] = true
		}
	case isShadowing(ext):
		if css := siblingURI(uri, "css"); m.Map().Has(css) {
			m.ignored[css] = true
		}
	}
}

// OnFileUntracked forgets uri and un-ignores the .css file it shadowed.
func (m *Map) OnFileUntracked(uri string) {
	m.force.evict(uri)
	if !m.opts.IgnoreSameNameCSS {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ignored, uri)
	if isShadowing(util.URIExtension(uri)) {
		css := siblingURI(uri, "css")
		if m.ignored[css] && !m.shadowedLocked(css) {
			delete(m.ignored, css)
		}
	}
}

func (m *Map) OnResourcesReleased() {
	m.force.clear()
}

func (m *Map) shadowedLocked(cssURI string) bool {
	for _, ext := range shadowingExtensions {
		if m.Map().Has(siblingURI(cssURI, ext)) {
			return true
		}
	}
	return false
}

func isShadowing(ext string) bool {
	for _, e := range shadowingExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func siblingURI(uri, ext string) string {
	return util.TrimExtension(uri) + "." + ext
}

// IsIgnored reports whether uri is tracked but excluded from queries.
func (m *Map) IsIgnored(uri string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ignored[uri]
}

// OnWatchedFileOrFolderChanged also drops on-demand services of changed
// files.
func (m *Map) OnWatchedFileOrFolderChanged(ctx context.Context, changes []tracker.FileChange) {
	for _, change := range changes {
		if change.Type != tracker.Created {
			m.force.evict(change.URI)
		}
	}
	m.Tracker.OnWatchedFileOrFolderChanged(ctx, changes)
}

// services returns the queryable services after bringing them up to date.
func (m *Map) services(ctx context.Context) []tracker.Entry[*service.Service] {
	if err := m.BeFresh(ctx); err != nil {
		slog.Debug("service map not refreshed", "map", m.Name(), "error", err)
	}
	entries := m.Entries()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := entries[:0]
	for _, e := range entries {
		if !m.ignored[e.URI] {
			out = append(out, e)
		}
	}
	return out
}

// GetServiceByURI returns the service of a tracked file and records the use.
func (m *Map) GetServiceByURI(ctx context.Context, uri string) (*service.Service, bool) {
	if err := m.BeFresh(ctx); err != nil {
		slog.Debug("service map not refreshed", "map", m.Name(), "error", err)
	}
	svc, ok := m.Service(uri)
	if ok {
		m.Map().Touch(uri)
	}
	return svc, ok
}

// ForceGetServiceByURI returns the service of uri, parsing it from disk
// without tracking it when it is not tracked.
func (m *Map) ForceGetServiceByURI(ctx context.Context, uri string) (*service.Service, bool) {
	if svc, ok := m.GetServiceByURI(ctx, uri); ok {
		return svc, true
	}
	filePath := util.URIToPath(uri)
	info, err := m.fs.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	st := stamp{modTime: info.ModTime(), size: info.Size()}
	if svc, ok := m.force.get(uri, st); ok {
		return svc, true
	}
	data, err := m.fs.ReadFile(filePath)
	if err != nil {
		slog.Debug("force load failed", "uri", uri, "error", err)
		return nil, false
	}
	svc := m.build(document.New(uri, 0, string(data)))
	m.force.put(uri, st, svc)
	return svc, true
}

// ForceGetServiceByDocument returns the service of an editor document,
// parsing it on demand when the tracked copy is absent or older.
func (m *Map) ForceGetServiceByDocument(ctx context.Context, doc *document.Document) *service.Service {
	if svc, ok := m.GetServiceByURI(ctx, doc.URI); ok && svc.Version() == doc.Version {
		return svc
	}
	st := stamp{version: doc.Version, size: int64(len(doc.Text))}
	if svc, ok := m.force.get(doc.URI, st); ok {
		return svc
	}
	svc := m.build(doc)
	m.force.put(doc.URI, st, svc)
	return svc
}

// FindDefinitions unions definitions across every queryable service.
func (m *Map) FindDefinitions(ctx context.Context, matches []part.Match, from *part.Part) []service.Definition {
	var out []service.Definition
	for _, e := range m.services(ctx) {
		defs := e.Service.FindDefinitions(matches, from)
		if len(defs) > 0 {
			m.Map().Touch(e.URI)
			out = append(out, defs...)
		}
	}
	return out
}

// FindReferences unions reference locations across every queryable service.
func (m *Map) FindReferences(ctx context.Context, matches []part.Match, includeSelectors bool) []document.Location {
	var out []document.Location
	for _, e := range m.services(ctx) {
		locs := e.Service.FindReferences(matches, includeSelectors)
		if len(locs) > 0 {
			m.Map().Touch(e.URI)
			out = append(out, locs...)
		}
	}
	return out
}

// FindSymbols unions workspace symbols matching query.
func (m *Map) FindSymbols(ctx context.Context, query string) []service.Symbol {
	var out []service.Symbol
	for _, e := range m.services(ctx) {
		symbols := e.Service.FindSymbols(query)
		if len(symbols) > 0 {
			m.Map().Touch(e.URI)
			out = append(out, symbols...)
		}
	}
	return out
}

// FindHover returns the hover of the first service defining one of matches.
func (m *Map) FindHover(ctx context.Context, matches []part.Match) (service.Hover, bool) {
	for _, e := range m.services(ctx) {
		if h, ok := e.Service.FindHover(matches); ok {
			m.Map().Touch(e.URI)
			return h, true
		}
	}
	return service.Hover{}, false
}

// GetDefinitionLabels returns the sorted distinct completion labels of
// definitions of kind.
func (m *Map) GetDefinitionLabels(ctx context.Context, kind part.Kind) []string {
	set := make(map[string]bool)
	for _, e := range m.services(ctx) {
		labels := e.Service.DefinitionLabels(kind)
		if len(labels) > 0 {
			m.Map().Touch(e.URI)
		}
		for _, label := range labels {
			set[label] = true
		}
	}
	return util.SortedStringKeys(set)
}

// GetReferenceLabels returns the sorted distinct names referenced by markup
// parts of kind.
func (m *Map) GetReferenceLabels(ctx context.Context, kind part.Kind) []string {
	set := make(map[string]bool)
	for _, e := range m.services(ctx) {
		labels := e.Service.ReferenceLabels(kind)
		if len(labels) > 0 {
			m.Map().Touch(e.URI)
		}
		for _, label := range labels {
			set[label] = true
		}
	}
	return util.SortedStringKeys(set)
}

// ClassDefined reports whether any queryable stylesheet defines class name.
func (m *Map) ClassDefined(ctx context.Context, name string) bool {
	for _, e := range m.services(ctx) {
		if e.Service.ClassDefined(name) {
			m.Map().Touch(e.URI)
			return true
		}
	}
	return false
}

// GetImportedServices returns the services of every file reachable from uri
// through import edges, loading untracked ones on demand.
func (m *Map) GetImportedServices(ctx context.Context, uri string) []*service.Service {
	if err := m.BeFresh(ctx); err != nil {
		slog.Debug("service map not refreshed", "map", m.Name(), "error", err)
	}
	var uris []string
	if _, ok := m.Service(uri); ok {
		uris = m.Map().ResolveChainedImportedURIs(uri)
	} else if svc, ok := m.ForceGetServiceByURI(ctx, uri); ok {
		uris = m.chainForced(ctx, uri, svc.Imports())
	}

	out := make([]*service.Service, 0, len(uris))
	for _, imported := range uris {
		if svc, ok := m.ForceGetServiceByURI(ctx, imported); ok {
			out = append(out, svc)
		}
	}
	return out
}

// chainForced follows imports of files that are not tracked, so their edges
// are only known from on-demand services.
func (m *Map) chainForced(ctx context.Context, from string, seeds []string) []string {
	seen := map[string]bool{from: true}
	var out []string
	queue := append([]string(nil), seeds...)
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		if seen[uri] {
			continue
		}
		seen[uri] = true
		out = append(out, uri)
		if svc, ok := m.ForceGetServiceByURI(ctx, uri); ok {
			queue = append(queue, svc.Imports()...)
		}
	}
	return out
}

// SweepImports untracks files kept only by an import and unused since
// before. It returns the evicted URIs.
func (m *Map) SweepImports(before time.Time) []string {
	expired := m.Map().ExpiredURIs(before)
	for _, uri := range expired {
		m.Map().Delete(uri)
	}
	if len(expired) > 0 {
		observability.ImportSweepEvictionsTotal.Add(float64(len(expired)))
		slog.Debug("evicted unused imported files", "map", m.Name(), "count", len(expired))
	}
	return expired
}

func (m *Map) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.opts.ImportSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.SweepImports(now.Add(-m.opts.ImportExpiry))
		}
	}
}

// Stats summarizes the map for status output.
type Stats struct {
	Name     string `json:"name"`
	Tracked  int    `json:"tracked"`
	Parsed   int    `json:"parsed"`
	Ignored  int    `json:"ignored"`
	OnDemand int    `json:"on_demand"`
	Parses   int64  `json:"parses"`
	Passes   int64  `json:"passes"`
}

func (m *Map) Stats() Stats {
	m.mu.RLock()
	ignored := len(m.ignored)
	m.mu.RUnlock()
	return Stats{
		Name:     m.Name(),
		Tracked:  m.Map().Len(),
		Parsed:   len(m.Entries()),
		Ignored:  ignored,
		OnDemand: m.force.len(),
		Parses:   m.Parses(),
		Passes:   m.Passes(),
	}
}

// IgnoredURIs returns the ignored files in sorted order.
func (m *Map) IgnoredURIs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uris := make([]string, 0, len(m.ignored))
	for uri := range m.ignored {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Close stops the import sweep and the tracker.
func (m *Map) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
	return m.Tracker.Close()
}
