package tracking

import (
	"sort"
	"time"

	"cssnav/internal/engine/document"
)

// Has reports whether uri is tracked.
func (m *Map) Has(uri string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[uri]
	return ok
}

// Reasons returns the current reasons of uri, 0 when untracked.
func (m *Map) Reasons(uri string) Reason {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uri]; ok {
		return e.reasons
	}
	return 0
}

// IsOpened reports whether uri is open in the editor.
func (m *Map) IsOpened(uri string) bool {
	return m.Reasons(uri).Has(ReasonOpened)
}

// IsFresh reports whether uri's cached parse matches its content.
func (m *Map) IsFresh(uri string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[uri]
	return ok && e.fresh
}

// Len returns the number of tracked files.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// URIs returns every tracked URI in sorted order.
func (m *Map) URIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	uris := make([]string, 0, len(m.entries))
	for uri := range m.entries {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Snapshot returns what an update of uri needs, and false when untracked.
func (m *Map) Snapshot(uri string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[uri]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		URI:        uri,
		Document:   e.doc,
		Opened:     e.reasons.Has(ReasonOpened),
		Generation: e.generation,
		Reasons:    e.reasons,
	}, true
}

// StaleURIs returns every tracked URI whose parse is out of date.
func (m *Map) StaleURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var uris []string
	for uri, e := range m.entries {
		if !e.fresh {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris
}

// MarkFresh records a completed parse. It is a no-op when the entry went
// stale again after generation was read.
func (m *Map) MarkFresh(uri string, generation uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[uri]
	if !ok || e.generation != generation {
		return false
	}
	e.fresh = true
	return true
}

// MarkStale forces uri to be parsed again.
func (m *Map) MarkStale(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uri]; ok {
		m.markStaleLocked(e)
	}
}

// MarkAllStale forces every tracked file to be parsed again.
func (m *Map) MarkAllStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		m.markStaleLocked(e)
	}
}

// AllFresh reports the global fresh flag. False is always a safe answer.
func (m *Map) AllFresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allFresh
}

// TryMarkAllFresh sets the global flag when no entry is stale.
func (m *Map) TryMarkAllFresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if !e.fresh {
			m.allFresh = false
			return false
		}
	}
	m.allFresh = true
	return true
}

// ReleaseDocument drops cached text of a file not open in the editor.
func (m *Map) ReleaseDocument(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uri]; ok && !e.reasons.Has(ReasonOpened) {
		e.doc = nil
	}
}

// Touch records a query use of uri.
func (m *Map) Touch(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uri]; ok {
		e.lastUsedAt = m.now()
	}
}

// ExpiredURIs returns files kept only by an import and unused since before.
func (m *Map) ExpiredURIs(before time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var uris []string
	for uri, e := range m.entries {
		if e.reasons.ImportOnly() && e.lastUsedAt.Before(before) {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris
}

// ImportsOf returns the files uri imports.
func (m *Map) ImportsOf(uri string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.imports[uri])
}

// ImportersOf returns the files importing uri.
func (m *Map) ImportersOf(uri string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.importedBy[uri])
}

// ResolveChainedImportedURIs returns every file transitively imported by
// the seeds, seeds excluded. Cycles are cut by a seen set.
func (m *Map) ResolveChainedImportedURIs(seeds ...string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, uri := range seeds {
		if !seen[uri] {
			seen[uri] = true
			queue = append(queue, uri)
		}
	}

	var out []string
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		for _, imported := range sortedKeys(m.imports[uri]) {
			if seen[imported] {
				continue
			}
			seen[imported] = true
			out = append(out, imported)
			queue = append(queue, imported)
		}
	}
	return out
}

// Document returns the cached document of uri, if any.
func (m *Map) Document(uri string) (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[uri]; ok && e.doc != nil {
		return e.doc, true
	}
	return nil, false
}
