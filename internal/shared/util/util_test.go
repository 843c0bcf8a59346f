package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePatternPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                         "",
		".":                        "",
		"  ./styles/site.scss  ":   "styles/site.scss",
		"styles/../theme/a.css":    "theme/a.css",
		`components\Button.module`: "components/Button.module",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePatternPath(in), "input %q", in)
	}
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		prefix string
		want   bool
	}{
		{"same folder", "/w/styles", "/w/styles", true},
		{"file under folder", "/w/styles/site.scss", "/w/styles", true},
		{"sibling with common stem", "/w/styles-old/site.scss", "/w/styles", false},
		{"parent of prefix", "/w", "/w/styles", false},
		{"backslashes", `\w\styles\a.css`, "/w/styles", true},
		{"trailing slash", "/w/styles/a.css", "/w/styles/", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPathPrefix(tt.path, tt.prefix))
		})
	}
}

func TestRelativeSlashPath(t *testing.T) {
	t.Parallel()

	root := filepath.Join("/", "work", "site")
	assert.Equal(t, "styles/main.scss", RelativeSlashPath(root, filepath.Join(root, "styles", "main.scss")))
	assert.Empty(t, RelativeSlashPath(root, root))
	assert.Empty(t, RelativeSlashPath(root, filepath.Join("/", "work", "other", "a.css")))
}

func TestTrimExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file:///a/b/main.module", TrimExtension("file:///a/b/main.module.scss"))
	assert.Equal(t, "/a/b/noext", TrimExtension("/a/b/noext"))
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"#c", ".a", ".b"}, SortedStringKeys(map[string]bool{"#c": true, ".b": true, ".a": false}))
	assert.Empty(t, SortedStringKeys(map[string]int(nil)))
}

func TestWriteStringWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "styles", "nested", "site.css")
	require.NoError(t, WriteStringWithDirs(path, ".a { }", 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".a { }", string(got))
}
