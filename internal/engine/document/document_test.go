package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageOfURI(t *testing.T) {
	t.Parallel()

	cases := map[string]Language{
		"file:///a/b.css":         LanguageCSS,
		"file:///a/b.SCSS":        LanguageSCSS,
		"file:///a/b.less":        LanguageLESS,
		"file:///a/b.sass":        LanguageSass,
		"file:///a/index.htm":     LanguageHTML,
		"file:///a/App.vue":       LanguageHTML,
		"file:///a/App.jsx":       LanguageJSX,
		"file:///a/App.tsx":       LanguageTSX,
		"file:///a/readme.md":     LanguageUnknown,
		"/plain/path/styles.scss": LanguageSCSS,
	}
	for uri, expected := range cases {
		assert.Equal(t, expected, LanguageOfURI(uri), uri)
	}
	assert.True(t, LanguageLESS.IsStylesheet())
	assert.False(t, LanguageHTML.IsStylesheet())
	assert.True(t, LanguageSCSS.SupportsLineComments())
	assert.False(t, LanguageCSS.SupportsLineComments())
}

func TestPositions(t *testing.T) {
	t.Parallel()

	doc := New("file:///a.css", 1, ".a {\n  color: red;\n}\n").Lines()
	assert.Equal(t, 4, doc.LineCount())

	cases := []struct {
		offset int
		pos    Position
	}{
		{0, Position{0, 0}},
		{3, Position{0, 3}},
		{5, Position{1, 0}},
		{7, Position{1, 2}},
		{19, Position{2, 0}},
		{21, Position{3, 0}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.pos, doc.PositionAt(tc.offset), "offset %d", tc.offset)
		assert.Equal(t, tc.offset, doc.OffsetAt(tc.pos), "pos %v", tc.pos)
	}

	assert.Equal(t, Position{0, 0}, doc.PositionAt(-4))
	assert.Equal(t, 4, doc.OffsetAt(Position{0, 99}))
	assert.Equal(t, 21, doc.OffsetAt(Position{10, 0}))
	assert.Equal(t, Range{Start: Position{0, 0}, End: Position{1, 2}}, doc.RangeOf(0, 7))
}
