// # internal/engine/tracking/map.go
package tracking

import (
	"sort"
	"sync"
	"time"

	"cssnav/internal/engine/document"
)

// maxAncestralDepth bounds the upward walk deciding ReasonAncestralIncluded.
// The walk is not cycle-checked; the bound is what terminates it on cycles.
const maxAncestralDepth = 5

type entry struct {
	doc        *document.Document
	version    int32
	reasons    Reason
	fresh      bool
	generation uint64
	lastUsedAt time.Time
}

// Hooks are called after the map lock is released.
type Hooks struct {
	OnTracked   func(uri string)
	OnUntracked func(uri string)
}

// Snapshot is the state an update needs to parse one file.
type Snapshot struct {
	URI        string
	Document   *document.Document
	Opened     bool
	Generation uint64
	Reasons    Reason
}

type event struct {
	uri     string
	tracked bool
}

// Map holds per-URI freshness and tracking reasons plus the import graph.
type Map struct {
	mu sync.Mutex

	entries map[string]*entry

	// Relationships
	imports    map[string]map[string]bool // importer -> imported
	importedBy map[string]map[string]bool // imported -> importer

	allFresh bool
	hooks    Hooks
	pending  []event
	now      func() time.Time
}

func NewMap(hooks Hooks) *Map {
	return &Map{
		entries:    make(map[string]*entry),
		imports:    make(map[string]map[string]bool),
		importedBy: make(map[string]map[string]bool),
		hooks:      hooks,
		now:        time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (m *Map) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Map) unlockAndDispatch() {
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, ev := range events {
		if ev.tracked && m.hooks.OnTracked != nil {
			m.hooks.OnTracked(ev.uri)
		}
		if !ev.tracked && m.hooks.OnUntracked != nil {
			m.hooks.OnUntracked(ev.uri)
		}
	}
}

// TrackByReason merges reasons into uri's entry, creating it when absent.
// An existing entry that is not open in the editor is marked stale: a
// repeated track is the only signal of an external change it gets.
func (m *Map) TrackByReason(uri string, reasons Reason) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	e, ok := m.entries[uri]
	if !ok {
		m.createLocked(uri, reasons)
		m.recomputeAncestralLocked(uri, 0)
		m.recomputeImporteesLocked(uri, 0)
		return
	}

	before := e.reasons
	e.reasons |= reasons
	if !e.reasons.Has(ReasonOpened) {
		m.markStaleLocked(e)
	}
	if !before.Has(ReasonIncluded) && e.reasons.Has(ReasonIncluded) {
		m.recomputeImporteesLocked(uri, 0)
	}
}

// TrackByDocument is the editor-open path. The entry is marked stale iff the
// document version increased since it was last cached.
func (m *Map) TrackByDocument(doc *document.Document) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	e, ok := m.entries[doc.URI]
	if !ok {
		e = m.createLocked(doc.URI, ReasonOpened)
		e.doc = doc
		e.version = doc.Version
		return
	}

	e.reasons |= ReasonOpened
	if doc.Version > e.version {
		m.markStaleLocked(e)
	}
	if doc.Version >= e.version {
		e.doc = doc
		e.version = doc.Version
	}
}

func (m *Map) createLocked(uri string, reasons Reason) *entry {
	e := &entry{reasons: reasons, lastUsedAt: m.now()}
	m.entries[uri] = e
	m.allFresh = false
	m.pending = append(m.pending, event{uri: uri, tracked: true})
	return e
}

func (m *Map) markStaleLocked(e *entry) {
	e.fresh = false
	e.generation++
	m.allFresh = false
}

// RemoveReason clears reasons and deletes the entry once none remain.
func (m *Map) RemoveReason(uri string, reasons Reason) {
	m.mu.Lock()
	defer m.unlockAndDispatch()
	m.removeReasonLocked(uri, reasons)
}

func (m *Map) removeReasonLocked(uri string, reasons Reason) {
	e, ok := m.entries[uri]
	if !ok {
		return
	}
	before := e.reasons
	e.reasons &^= reasons
	if reasons.Has(ReasonOpened) && before.Has(ReasonOpened) {
		// The editor copy is gone; the disk copy may differ.
		e.doc = nil
		e.version = 0
		m.markStaleLocked(e)
	}
	if e.reasons == 0 {
		m.deleteLocked(uri)
		return
	}
	if before.Has(ReasonIncluded) && !e.reasons.Has(ReasonIncluded) {
		m.recomputeImporteesLocked(uri, 0)
	}
}

// Delete untracks uri regardless of its reasons.
func (m *Map) Delete(uri string) {
	m.mu.Lock()
	defer m.unlockAndDispatch()
	m.deleteLocked(uri)
}

// deleteLocked drops the entry and its outgoing edges. Incoming edges stay,
// their importers still reference the file.
func (m *Map) deleteLocked(uri string) {
	if _, ok := m.entries[uri]; !ok {
		return
	}
	delete(m.entries, uri)
	m.pending = append(m.pending, event{uri: uri, tracked: false})

	importees := m.imports[uri]
	delete(m.imports, uri)
	for imported := range importees {
		m.unlinkLocked(uri, imported)
	}
	for imported := range importees {
		m.recomputeAncestralLocked(imported, 0)
	}
}

func (m *Map) unlinkLocked(from, imported string) {
	if importers := m.importedBy[imported]; importers != nil {
		delete(importers, from)
		if len(importers) == 0 {
			delete(m.importedBy, imported)
		}
	}
	if len(m.importedBy[imported]) == 0 {
		m.removeReasonLocked(imported, ReasonImported)
	}
}

// AddImported replaces the outgoing import edges of from. Newly imported
// files get ReasonImported without being marked stale. Every target is
// re-asserted, so a target untracked by a sweep while its edge survived is
// tracked again.
func (m *Map) AddImported(imported []string, from string) {
	m.mu.Lock()
	defer m.unlockAndDispatch()

	next := make(map[string]bool, len(imported))
	for _, uri := range imported {
		if uri != "" && uri != from {
			next[uri] = true
		}
	}
	prev := m.imports[from]

	var changed []string
	for uri := range prev {
		if !next[uri] {
			changed = append(changed, uri)
		}
	}
	for uri := range next {
		if !prev[uri] {
			changed = append(changed, uri)
		}
	}
	sort.Strings(changed)

	if len(next) == 0 {
		delete(m.imports, from)
	} else {
		m.imports[from] = next
	}

	for _, uri := range changed {
		if next[uri] {
			if m.importedBy[uri] == nil {
				m.importedBy[uri] = make(map[string]bool)
			}
			m.importedBy[uri][from] = true
		} else {
			m.unlinkLocked(from, uri)
		}
	}

	recompute := changed
	for _, uri := range sortedKeys(next) {
		if e, ok := m.entries[uri]; ok {
			e.reasons |= ReasonImported
			continue
		}
		m.createLocked(uri, ReasonImported)
		if prev[uri] {
			recompute = append(recompute, uri)
		}
	}
	for _, uri := range recompute {
		m.recomputeAncestralLocked(uri, 0)
	}
}

// recomputeAncestralLocked re-derives ReasonAncestralIncluded for uri and
// pushes the recomputation down to its importees when the bit flips.
func (m *Map) recomputeAncestralLocked(uri string, depth int) {
	if depth > maxAncestralDepth {
		return
	}
	e, ok := m.entries[uri]
	if !ok {
		return
	}
	had := e.reasons.Has(ReasonAncestralIncluded)
	has := m.hasIncludedAncestorLocked(uri, 0)
	if had == has {
		return
	}
	if has {
		e.reasons |= ReasonAncestralIncluded
	} else {
		e.reasons &^= ReasonAncestralIncluded
		if e.reasons == 0 {
			m.deleteLocked(uri)
			return
		}
	}
	m.recomputeImporteesLocked(uri, depth+1)
}

func (m *Map) recomputeImporteesLocked(uri string, depth int) {
	for _, imported := range sortedKeys(m.imports[uri]) {
		m.recomputeAncestralLocked(imported, depth)
	}
}

func (m *Map) hasIncludedAncestorLocked(uri string, depth int) bool {
	if depth >= maxAncestralDepth {
		return false
	}
	for importer := range m.importedBy[uri] {
		if e, ok := m.entries[importer]; ok && e.reasons.Has(ReasonIncluded) {
			return true
		}
	}
	for importer := range m.importedBy[uri] {
		if m.hasIncludedAncestorLocked(importer, depth+1) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
