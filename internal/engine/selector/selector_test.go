package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssnav/internal/engine/part"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	items := Split(" .a,\n  .b:not(.c, .d) , [data-x=\"1,2\"] ,")
	require.Len(t, items, 3)
	assert.Equal(t, Item{Text: ".a", Offset: 1}, items[0])
	assert.Equal(t, ".b:not(.c, .d)", items[1].Text)
	assert.Equal(t, 7, items[1].Offset)
	assert.Equal(t, `[data-x="1,2"]`, items[2].Text)
}

func TestTokenizePrimary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		item    string
		texts   []string
		primary string
	}{
		{name: "Class", item: ".a", texts: []string{".a"}, primary: ".a"},
		{name: "PseudoClass", item: ".a:hover", texts: []string{".a"}, primary: ".a"},
		{name: "PseudoElement", item: ".a::before", texts: []string{".a"}, primary: ""},
		{name: "LegacyPseudoElement", item: ".a:after", texts: []string{".a"}, primary: ""},
		{name: "Compound", item: ".a.b", texts: []string{".a", ".b"}, primary: ".b"},
		{name: "Descendant", item: "div .a > #b", texts: []string{"div", ".a", "#b"}, primary: "#b"},
		{name: "TrailingUniversal", item: ".a *", texts: []string{".a"}, primary: ""},
		{name: "NotArgumentSkipped", item: "li:not(.x)", texts: []string{"li"}, primary: "li"},
		{name: "Attribute", item: "a[href='.x']", texts: []string{"a"}, primary: "a"},
		{name: "Interpolation", item: ".icon-#{$name}", texts: []string{".icon-#{$name}"}, primary: ".icon-#{$name}"},
		{name: "Suffix", item: "&-x", texts: []string{"&-x"}, primary: "&-x"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tokens := Tokenize(tc.item)
			var texts []string
			primary := ""
			for _, tok := range tokens {
				texts = append(texts, tok.Text)
				if tok.Primary {
					primary = tok.Text
				}
			}
			assert.Equal(t, tc.texts, texts)
			assert.Equal(t, tc.primary, primary)
		})
	}
}

func TestResolveNesting(t *testing.T) {
	t.Parallel()

	t.Run("CrossProduct", func(t *testing.T) {
		g := Resolve("&-x", []string{".a", ".b"}, false)
		assert.Equal(t, []string{".a-x", ".b-x"}, g.Formatted)
		require.Len(t, g.Details, 1)
		assert.Equal(t, part.CSSSelectorClass, g.Details[0].Kind)
		assert.Equal(t, []string{".a-x", ".b-x"}, g.Details[0].Formatted)
		assert.True(t, g.Details[0].Primary)
	})

	t.Run("DescendantJoin", func(t *testing.T) {
		g := Resolve(".b", []string{".a"}, false)
		assert.Equal(t, []string{".a .b"}, g.Formatted)
		require.Len(t, g.Details, 1)
		assert.Equal(t, []string{".b"}, g.Details[0].Formatted)
	})

	t.Run("GroupTimesParents", func(t *testing.T) {
		g := Resolve(".c, .d", []string{".a", ".b"}, false)
		assert.Equal(t, []string{".a .c", ".b .c", ".a .d", ".b .d"}, g.Formatted)
	})

	t.Run("AtRoot", func(t *testing.T) {
		g := Resolve(".b", []string{".a"}, true)
		assert.Equal(t, []string{".b"}, g.Formatted)
	})

	t.Run("SelfReference", func(t *testing.T) {
		g := Resolve("&:hover", []string{".a"}, false)
		assert.Equal(t, []string{".a:hover"}, g.Formatted)
		require.Len(t, g.Details, 1)
		assert.Equal(t, "&", g.Details[0].Text)
		assert.False(t, g.Details[0].Primary)
	})

	t.Run("AmpersandCompound", func(t *testing.T) {
		g := Resolve("&.active", []string{"nav .item"}, false)
		assert.Equal(t, []string{"nav .item.active"}, g.Formatted)
		require.Len(t, g.Details, 2)
		assert.Equal(t, ".active", g.Details[1].Text)
		assert.True(t, g.Details[1].Primary)
	})

	t.Run("SuffixOnDescendantParent", func(t *testing.T) {
		g := Resolve("&__el", []string{".page .block"}, false)
		assert.Equal(t, []string{".page .block__el"}, g.Formatted)
		assert.Equal(t, []string{".block__el"}, g.Details[0].Formatted)
	})

	t.Run("AmpersandWithoutParent", func(t *testing.T) {
		g := Resolve("&-x", nil, false)
		assert.Equal(t, []string{"&-x"}, g.Formatted)
		assert.Empty(t, g.Details)
	})

	t.Run("DetailOffsets", func(t *testing.T) {
		g := Resolve(".a, div.b", nil, false)
		require.Len(t, g.Details, 3)
		assert.Equal(t, 0, g.Details[0].Offset)
		assert.Equal(t, 4, g.Details[1].Offset)
		assert.Equal(t, 7, g.Details[2].Offset)
		assert.Equal(t, part.CSSSelectorTag, g.Details[1].Kind)
	})

	t.Run("WhitespaceNormalized", func(t *testing.T) {
		g := Resolve(".a\n   >   .b", nil, false)
		assert.Equal(t, []string{".a > .b"}, g.Formatted)
	})
}

func TestLastSimple(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".a", LastSimple(".p .a:hover"))
	assert.Equal(t, "#x", LastSimple("div > #x"))
	assert.Equal(t, "", LastSimple(":root"))
}
