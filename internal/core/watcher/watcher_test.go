// # internal/core/watcher/watcher_test.go
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cssnav/internal/engine/tracker"
	"cssnav/internal/shared/util"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrInvalid))
	assert.Nil(t, w)
}

func TestNewWatcher_InvalidGlob(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[a"}, nil, func([]tracker.FileChange) {})
	require.Error(t, err)
}

func TestClose_WithoutWatch(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, nil, func([]tracker.FileChange) {})
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

// waitFor collects batches until want reports the expected change for uri.
func waitFor(t *testing.T, batches <-chan []tracker.FileChange, uri string, want tracker.ChangeType) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case changes := <-batches:
			for _, c := range changes {
				if c.URI == uri && c.Type == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s on %s", want, uri)
		}
	}
}

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "node_modules"), 0o755))

	batches := make(chan []tracker.FileChange, 32)
	w, err := NewWatcher(50*time.Millisecond, []string{"node_modules"}, []string{"css", ".scss"}, func(changes []tracker.FileChange) {
		batches <- changes
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{root}))

	styles := filepath.Join(root, "styles.css")
	require.NoError(t, os.WriteFile(styles, []byte(".a{}"), 0o644))
	waitFor(t, batches, util.PathToURI(styles), tracker.Created)

	require.NoError(t, os.WriteFile(styles, []byte(".a{color:red}"), 0o644))
	waitFor(t, batches, util.PathToURI(styles), tracker.Changed)

	// New folders are watched and reported as created.
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFor(t, batches, util.PathToURI(sub), tracker.Created)
	nested := filepath.Join(sub, "nested.scss")
	require.NoError(t, os.WriteFile(nested, []byte("$a: 1;"), 0o644))
	waitFor(t, batches, util.PathToURI(nested), tracker.Created)

	require.NoError(t, os.Remove(styles))
	waitFor(t, batches, util.PathToURI(styles), tracker.Deleted)
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, []string{"node_modules"}, []string{"css"}, func([]tracker.FileChange) {})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.shouldExcludeFile(filepath.Join("web", "main.js")))
	assert.False(t, w.shouldExcludeFile(filepath.Join("web", "main.CSS")))
	assert.True(t, w.shouldExcludeFile(filepath.Join("web", "node_modules", "lib", "a.css")))
	assert.True(t, w.shouldExcludeDir(filepath.Join("web", "node_modules")))
	assert.False(t, w.shouldExcludeDir(filepath.Join("web", "src")))
}

func TestWatcher_RootBelowExcludedFolder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "node_modules", "ws")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	batches := make(chan []tracker.FileChange, 32)
	w, err := NewWatcher(50*time.Millisecond, []string{"node_modules"}, []string{"css"}, func(changes []tracker.FileChange) {
		batches <- changes
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{root}))

	assert.False(t, w.shouldExcludeFile(filepath.Join(root, "site.css")))
	assert.False(t, w.shouldExcludeFile(filepath.Join(root, "sub", "site.css")))
	assert.True(t, w.shouldExcludeFile(filepath.Join(root, "node_modules", "lib.css")))

	styles := filepath.Join(root, "site.css")
	require.NoError(t, os.WriteFile(styles, []byte(".a{}"), 0o644))
	waitFor(t, batches, util.PathToURI(styles), tracker.Created)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		prev   tracker.ChangeType
		next   tracker.ChangeType
		queued bool
		want   tracker.ChangeType
	}{
		{"first event", tracker.Deleted, tracker.Created, false, tracker.Created},
		{"replaced", tracker.Deleted, tracker.Created, true, tracker.Changed},
		{"created then written", tracker.Created, tracker.Changed, true, tracker.Created},
		{"written then deleted", tracker.Changed, tracker.Deleted, true, tracker.Deleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, merge(tt.prev, tt.next, tt.queued))
		})
	}
}
