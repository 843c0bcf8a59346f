package tracking

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssnav/internal/engine/document"
)

func freshen(t *testing.T, m *Map, uri string) {
	t.Helper()
	snap, ok := m.Snapshot(uri)
	require.True(t, ok, "expected %s to be tracked", uri)
	require.True(t, m.MarkFresh(uri, snap.Generation))
}

func TestTrackByReason(t *testing.T) {
	var tracked, untracked []string
	var m *Map
	m = NewMap(Hooks{
		OnTracked: func(uri string) {
			// Hooks run outside the lock.
			_ = m.Has(uri)
			tracked = append(tracked, uri)
		},
		OnUntracked: func(uri string) { untracked = append(untracked, uri) },
	})

	m.TrackByReason("a.css", ReasonIncluded)
	assert.Equal(t, []string{"a.css"}, tracked)
	assert.False(t, m.IsFresh("a.css"))
	assert.Equal(t, []string{"a.css"}, m.StaleURIs())

	snap, _ := m.Snapshot("a.css")
	require.True(t, m.MarkFresh("a.css", snap.Generation))
	assert.True(t, m.TryMarkAllFresh())
	assert.True(t, m.AllFresh())

	// Tracking again is a possible external change.
	m.TrackByReason("a.css", ReasonIncluded)
	assert.False(t, m.IsFresh("a.css"))
	assert.False(t, m.AllFresh())
	assert.False(t, m.MarkFresh("a.css", snap.Generation), "old generation must not mark fresh")

	m.RemoveReason("a.css", ReasonIncluded)
	assert.False(t, m.Has("a.css"))
	assert.Equal(t, []string{"a.css"}, untracked)
}

func TestTrackByDocument(t *testing.T) {
	m := NewMap(Hooks{})
	uri := "file:///a.scss"

	m.TrackByDocument(document.New(uri, 1, ".a{}"))
	assert.True(t, m.IsOpened(uri))
	assert.False(t, m.IsFresh(uri))
	freshen(t, m, uri)

	m.TrackByDocument(document.New(uri, 1, ".a{}"))
	assert.True(t, m.IsFresh(uri), "same version keeps the entry fresh")

	m.TrackByReason(uri, ReasonIncluded)
	assert.True(t, m.IsFresh(uri), "opened files decide staleness by version")

	m.TrackByDocument(document.New(uri, 2, ".b{}"))
	assert.False(t, m.IsFresh(uri))
	doc, ok := m.Document(uri)
	require.True(t, ok)
	assert.Equal(t, ".b{}", doc.Text)
	freshen(t, m, uri)

	m.RemoveReason(uri, ReasonOpened)
	assert.True(t, m.Has(uri), "still included")
	assert.False(t, m.IsFresh(uri), "closing falls back to disk content")
	_, ok = m.Document(uri)
	assert.False(t, ok)

	// A new editor session restarts versions.
	m.TrackByDocument(document.New(uri, 1, ".c{}"))
	doc, ok = m.Document(uri)
	require.True(t, ok)
	assert.Equal(t, ".c{}", doc.Text)
}

func TestReleaseDocument(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByDocument(document.New("o.css", 1, ""))
	m.ReleaseDocument("o.css")
	_, ok := m.Document("o.css")
	assert.True(t, ok, "opened documents stay resident")
}

func TestAddImported(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByReason("a", ReasonIncluded)
	freshen(t, m, "a")

	m.AddImported([]string{"b"}, "a")
	m.AddImported([]string{"c"}, "b")

	assert.Equal(t, ReasonImported|ReasonAncestralIncluded, m.Reasons("b"))
	assert.Equal(t, ReasonImported|ReasonAncestralIncluded, m.Reasons("c"))
	assert.True(t, m.IsFresh("a"), "registering edges does not stale the importer")
	assert.Equal(t, []string{"a"}, m.ImportersOf("b"))
	assert.Equal(t, []string{"b", "c"}, m.ResolveChainedImportedURIs("a"))

	// Replacing the edge set wholesale drops the chain.
	m.AddImported(nil, "a")
	assert.False(t, m.Has("b"))
	assert.False(t, m.Has("c"))
	assert.Empty(t, m.ImportsOf("a"))
}

func TestAddImported_KeepsIncludedTargets(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByReason("a", ReasonIncluded)
	m.TrackByReason("b", ReasonIncluded)
	freshen(t, m, "b")

	m.AddImported([]string{"b"}, "a")
	assert.True(t, m.IsFresh("b"), "import edges never stale their target")
	assert.Equal(t, ReasonIncluded|ReasonImported|ReasonAncestralIncluded, m.Reasons("b"))

	m.AddImported(nil, "a")
	assert.Equal(t, ReasonIncluded, m.Reasons("b"))
}

func TestAddImported_RetracksDeletedTarget(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByReason("a", ReasonIncluded)
	m.AddImported([]string{"b"}, "a")
	m.Delete("b")
	require.False(t, m.Has("b"))
	require.Equal(t, []string{"b"}, m.ImportsOf("a"))

	m.AddImported([]string{"b"}, "a")
	require.True(t, m.Has("b"))
	assert.False(t, m.IsFresh("b"))
	assert.Equal(t, ReasonImported|ReasonAncestralIncluded, m.Reasons("b"))
}

func TestAncestralIncluded_LosingInclusion(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByDocument(document.New("a", 1, ""))
	m.TrackByReason("a", ReasonIncluded)
	m.AddImported([]string{"b"}, "a")
	assert.True(t, m.Reasons("b").Has(ReasonAncestralIncluded))

	m.RemoveReason("a", ReasonIncluded)
	assert.Equal(t, ReasonImported, m.Reasons("b"))
}

func TestAncestralIncluded_DepthCap(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByReason("f0", ReasonIncluded)
	for i := 0; i < 7; i++ {
		m.AddImported([]string{fmt.Sprintf("f%d", i+1)}, fmt.Sprintf("f%d", i))
	}

	for i := 1; i <= maxAncestralDepth; i++ {
		assert.True(t, m.Reasons(fmt.Sprintf("f%d", i)).Has(ReasonAncestralIncluded), "f%d", i)
	}
	// Known boundary: the upward walk stops after maxAncestralDepth levels.
	assert.Equal(t, ReasonImported, m.Reasons("f6"))
	assert.Equal(t, ReasonImported, m.Reasons("f7"))
}

func TestImportCycle(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByReason("a", ReasonIncluded)
	m.AddImported([]string{"b"}, "a")
	m.AddImported([]string{"a"}, "b")

	assert.True(t, m.Reasons("b").Has(ReasonAncestralIncluded))
	assert.Equal(t, []string{"b"}, m.ResolveChainedImportedURIs("a", "a"))

	m.Delete("a")
	assert.False(t, m.Has("a"))
	assert.False(t, m.Has("b"), "b was kept only through a")
}

func TestExpiredURIs(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMap(Hooks{})
	m.SetClock(func() time.Time { return now })

	m.TrackByDocument(document.New("page.html", 1, ""))
	m.AddImported([]string{"vendor.css"}, "page.html")
	m.TrackByReason("main.css", ReasonIncluded)
	m.AddImported([]string{"shared.css"}, "main.css")

	now = now.Add(10 * time.Minute)
	m.Touch("page.html")

	expired := m.ExpiredURIs(now.Add(-5 * time.Minute))
	assert.Equal(t, []string{"vendor.css"}, expired, "included and ancestral-included files survive")

	m.Touch("vendor.css")
	assert.Empty(t, m.ExpiredURIs(now.Add(-5*time.Minute)))
}

func TestMarkAllStale(t *testing.T) {
	m := NewMap(Hooks{})
	m.TrackByReason("a", ReasonIncluded)
	m.TrackByReason("b", ReasonIncluded)
	freshen(t, m, "a")
	freshen(t, m, "b")
	require.True(t, m.TryMarkAllFresh())

	m.MarkAllStale()
	assert.False(t, m.AllFresh())
	assert.Equal(t, []string{"a", "b"}, m.StaleURIs())
	assert.False(t, m.TryMarkAllFresh())
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "none", Reason(0).String())
	assert.Equal(t, "included|imported", (ReasonIncluded | ReasonImported).String())
	assert.True(t, ReasonImported.ImportOnly())
	assert.False(t, (ReasonImported | ReasonAncestralIncluded).ImportOnly())
}
