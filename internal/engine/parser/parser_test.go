// # internal/engine/parser/parser_test.go
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
)

func ofKind(parts []*part.Part, kind part.Kind) []*part.Part {
	var out []*part.Part
	for _, p := range parts {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func textsOf(parts []*part.Part, kind part.Kind) []string {
	var out []string
	for _, p := range ofKind(parts, kind) {
		out = append(out, p.Text)
	}
	return out
}

func TestParseStylesheet_Nesting(t *testing.T) {
	p := New(Options{})
	text := `.a, .b { &-x { color: red; } }`
	parts := p.Parse(text, document.LanguageSCSS)

	wrappers := ofKind(parts, part.CSSSelectorWrapper)
	require.Len(t, wrappers, 2)
	assert.Equal(t, ".a, .b", wrappers[0].Text)
	assert.Equal(t, []string{".a", ".b"}, wrappers[0].Formatted)
	assert.Equal(t, 30, wrappers[0].DefEnd)

	inner := wrappers[1]
	assert.Equal(t, "&-x", inner.Text)
	assert.Equal(t, 9, inner.Start)
	assert.Equal(t, []string{".a-x", ".b-x"}, inner.Formatted)
	assert.Equal(t, 28, inner.DefEnd)

	classes := ofKind(parts, part.CSSSelectorClass)
	require.Len(t, classes, 3)
	assert.Equal(t, []string{".a-x", ".b-x"}, classes[2].Formatted)
	assert.True(t, classes[2].Primary)
	assert.Equal(t, 28, classes[2].DefEnd)

	for i := 1; i < len(parts); i++ {
		assert.LessOrEqual(t, parts[i-1].Start, parts[i].Start)
	}
}

func TestParseStylesheet_Selectors(t *testing.T) {
	p := New(Options{})

	cases := []struct {
		name      string
		lang      document.Language
		text      string
		wrappers  [][]string
		primaries []string
	}{
		{
			name:      "PseudoElement",
			lang:      document.LanguageCSS,
			text:      `.a::before { content: ""; }`,
			wrappers:  [][]string{{".a::before"}},
			primaries: nil,
		},
		{
			name:      "Descendant",
			lang:      document.LanguageSCSS,
			text:      `.a { .b { } }`,
			wrappers:  [][]string{{".a"}, {".a .b"}},
			primaries: []string{".a", ".b"},
		},
		{
			name:      "SelfReference",
			lang:      document.LanguageSCSS,
			text:      `.a { &:hover { } }`,
			wrappers:  [][]string{{".a"}, {".a:hover"}},
			primaries: []string{".a"},
		},
		{
			name:      "MediaTransparent",
			lang:      document.LanguageSCSS,
			text:      `.a { @media (min-width: 1px) { .b { } } }`,
			wrappers:  [][]string{{".a"}, {".a .b"}},
			primaries: []string{".a", ".b"},
		},
		{
			name:      "AtRoot",
			lang:      document.LanguageSCSS,
			text:      `.a { @at-root .b { } }`,
			wrappers:  [][]string{{".a"}, {".b"}},
			primaries: []string{".a", ".b"},
		},
		{
			name:      "KeyframesInert",
			lang:      document.LanguageCSS,
			text:      `@keyframes spin { from { top: 0 } 50% { top: 1px } } #x { }`,
			wrappers:  [][]string{{"#x"}},
			primaries: []string{"#x"},
		},
		{
			name:      "PropertyNamespace",
			lang:      document.LanguageSCSS,
			text:      `.a { font: { family: x; } }`,
			wrappers:  [][]string{{".a"}},
			primaries: []string{".a"},
		},
		{
			name:      "LessInterpolation",
			lang:      document.LanguageLESS,
			text:      `.@{prefix}-btn { }`,
			wrappers:  [][]string{{".@{prefix}-btn"}},
			primaries: []string{".@{prefix}-btn"},
		},
		{
			name:      "ScssInterpolationIsNotABlock",
			lang:      document.LanguageSCSS,
			text:      `.icon-#{$name} { }`,
			wrappers:  [][]string{{".icon-#{$name}"}},
			primaries: []string{".icon-#{$name}"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			parts := p.Parse(tc.text, tc.lang)
			var wrappers [][]string
			for _, w := range ofKind(parts, part.CSSSelectorWrapper) {
				wrappers = append(wrappers, w.Formatted)
			}
			assert.Equal(t, tc.wrappers, wrappers)

			var primaries []string
			for _, d := range parts {
				if d.Kind.IsSelectorDetail() && d.IsDefinition() {
					primaries = append(primaries, d.Text)
				}
			}
			assert.Equal(t, tc.primaries, primaries)
		})
	}
}

func TestParseStylesheet_CommentsVariablesImports(t *testing.T) {
	p := New(Options{})

	t.Run("BlockComment", func(t *testing.T) {
		parts := p.Parse("/**\n * Primary button\n */\n.btn { }\n.plain { }", document.LanguageCSS)
		wrappers := ofKind(parts, part.CSSSelectorWrapper)
		require.Len(t, wrappers, 2)
		assert.Equal(t, "Primary button", wrappers[0].Comment)
		assert.Equal(t, "", wrappers[1].Comment)
	})

	t.Run("LineComment", func(t *testing.T) {
		text := "// Card root\n.card { background: url(http://x/y.png); }"
		parts := p.Parse(text, document.LanguageSCSS)
		wrappers := ofKind(parts, part.CSSSelectorWrapper)
		require.Len(t, wrappers, 1)
		assert.Equal(t, "Card root", wrappers[0].Comment)
		assert.Equal(t, 13, wrappers[0].Start)
	})

	t.Run("Variables", func(t *testing.T) {
		text := ":root { --main: red; }\n.a { color: var(--main); border-color: var( --edge, blue) }"
		parts := p.Parse(text, document.LanguageCSS)
		decls := ofKind(parts, part.CSSVariableDeclaration)
		require.Len(t, decls, 1)
		assert.Equal(t, "--main", decls[0].Text)
		assert.Equal(t, 8, decls[0].Start)
		assert.Equal(t, []string{"--main", "--edge"}, textsOf(parts, part.CSSVariableReference))
	})

	t.Run("Imports", func(t *testing.T) {
		text := "@import \"a.css\";\n@use 'sass:math';\n@import url(b.css) screen;\n@forward \"c\";\n@import url(\"https://x/y.css\");"
		parts := p.Parse(text, document.LanguageSCSS)
		imports := ofKind(parts, part.CSSImportPath)
		require.Len(t, imports, 3)
		assert.Equal(t, "a.css", imports[0].Text)
		assert.Equal(t, 9, imports[0].Start)
		assert.Equal(t, "b.css", imports[1].Text)
		assert.Equal(t, "c", imports[2].Text)
	})

	t.Run("Truncated", func(t *testing.T) {
		parts := p.Parse(".a { .b { color: red", document.LanguageSCSS)
		wrappers := ofKind(parts, part.CSSSelectorWrapper)
		require.Len(t, wrappers, 2)
		assert.Equal(t, len(".a { .b { color: red"), wrappers[0].DefEnd)
	})
}

func TestParseSass(t *testing.T) {
	p := New(Options{})
	text := "// Card\n.card\n  color: red\n  &-title\n    --gap: 1px\n@import a, b\n.x,\n.y\n  top: 0\n"
	parts := p.Parse(text, document.LanguageSass)

	wrappers := ofKind(parts, part.CSSSelectorWrapper)
	require.Len(t, wrappers, 3)
	assert.Equal(t, ".card", wrappers[0].Text)
	assert.Equal(t, "Card", wrappers[0].Comment)
	assert.Equal(t, []string{".card-title"}, wrappers[1].Formatted)
	assert.Equal(t, []string{".x", ".y"}, wrappers[2].Formatted)

	blockEnd := len("// Card\n.card\n  color: red\n  &-title\n    --gap: 1px")
	assert.Equal(t, blockEnd, wrappers[0].DefEnd)
	assert.Equal(t, blockEnd, wrappers[1].DefEnd)

	assert.Equal(t, []string{"--gap"}, textsOf(parts, part.CSSVariableDeclaration))
	assert.Equal(t, []string{"a", "b"}, textsOf(parts, part.CSSImportPath))
}

func TestParseHTML(t *testing.T) {
	p := New(Options{EmbeddedCSS: true})
	text := `<div class="a  b" id="main"><link rel="stylesheet" href="x.css"><style>.c { }</style><script>var s = "<p class='no'>";</script></div>`
	parts := p.Parse(text, document.LanguageHTML)

	assert.Equal(t, []string{"div", "link"}, textsOf(parts, part.HTMLTag))
	assert.Equal(t, []string{"a", "b"}, textsOf(parts, part.HTMLClass))
	assert.Equal(t, []string{"main"}, textsOf(parts, part.HTMLID))
	assert.Equal(t, []string{"x.css"}, textsOf(parts, part.CSSImportPath))

	classes := ofKind(parts, part.HTMLClass)
	require.Len(t, classes, 2)
	assert.Equal(t, "a", text[classes[0].Start:classes[0].End])
	assert.Equal(t, "b", text[classes[1].Start:classes[1].End])

	wrappers := ofKind(parts, part.CSSSelectorWrapper)
	require.Len(t, wrappers, 1)
	assert.Equal(t, ".c", text[wrappers[0].Start:wrappers[0].End])

	withoutEmbedded := New(Options{}).Parse(text, document.LanguageHTML)
	assert.Empty(t, ofKind(withoutEmbedded, part.CSSSelectorWrapper))
}

func TestParseJSX(t *testing.T) {
	p := New(Options{})
	text := `import styles from "./app.module.css";
import "./global.scss";
import React from "react";
export const App = () => (
  <div className="a b" id="root">
    <span className={styles.title} />
    <p className={styles["sub"]}>x</p>
    <Comp className={"c"} />
  </div>
);
`
	for _, lang := range []document.Language{document.LanguageJSX, document.LanguageTSX} {
		parts := p.Parse(text, lang)
		assert.Equal(t, []string{"./app.module.css", "./global.scss"}, textsOf(parts, part.CSSImportPath), lang)
		assert.Equal(t, []string{"div", "span", "p"}, textsOf(parts, part.HTMLTag), lang)
		assert.Equal(t, []string{"a", "b", "c"}, textsOf(parts, part.HTMLClass), lang)
		assert.Equal(t, []string{"root"}, textsOf(parts, part.HTMLID), lang)
		assert.Equal(t, []string{"title", "sub"}, textsOf(parts, part.HTMLModuleClass), lang)
	}
	assert.Equal(t, 0, p.Leased(document.LanguageJSX))
}

func TestParseUnknownLanguage(t *testing.T) {
	assert.Nil(t, New(Options{}).Parse("anything", document.LanguageUnknown))
}
