package document

import (
	"sort"
	"strings"

	"cssnav/internal/shared/util"
)

// Language is the parsing dialect of a document.
type Language string

const (
	LanguageCSS     Language = "css"
	LanguageSCSS    Language = "scss"
	LanguageLESS    Language = "less"
	LanguageSass    Language = "sass"
	LanguageHTML    Language = "html"
	LanguageJSX     Language = "jsx"
	LanguageTSX     Language = "tsx"
	LanguageUnknown Language = ""
)

var extensionLanguages = map[string]Language{
	"css":    LanguageCSS,
	"scss":   LanguageSCSS,
	"less":   LanguageLESS,
	"sass":   LanguageSass,
	"html":   LanguageHTML,
	"htm":    LanguageHTML,
	"vue":    LanguageHTML,
	"php":    LanguageHTML,
	"svelte": LanguageHTML,
	"jsx":    LanguageJSX,
	"js":     LanguageJSX,
	"mjs":    LanguageJSX,
	"cjs":    LanguageJSX,
	"tsx":    LanguageTSX,
	"ts":     LanguageTSX,
}

// LanguageOfExtension maps a lower-case extension without dot to a language.
func LanguageOfExtension(ext string) Language {
	return extensionLanguages[strings.ToLower(ext)]
}

// LanguageOfURI maps a URI or path to its language by extension.
func LanguageOfURI(uri string) Language {
	return LanguageOfExtension(util.URIExtension(uri))
}

// IsStylesheet reports whether l is one of the CSS-like dialects.
func (l Language) IsStylesheet() bool {
	switch l {
	case LanguageCSS, LanguageSCSS, LanguageLESS, LanguageSass:
		return true
	}
	return false
}

// SupportsLineComments reports whether `//` starts a comment.
func (l Language) SupportsLineComments() bool {
	return l == LanguageSCSS || l == LanguageLESS || l == LanguageSass
}

// Document is a text snapshot at a version. Live editor documents carry an
// increasing version; documents read from disk have version 0.
type Document struct {
	URI     string
	Version int32
	Text    string

	lines *LineIndex
}

func New(uri string, version int32, text string) *Document {
	return &Document{URI: uri, Version: version, Text: text, lines: NewLineIndex(text)}
}

// Language returns the document's language, derived from its URI.
func (d *Document) Language() Language {
	return LanguageOfURI(d.URI)
}

// Lines returns the line index of the text.
func (d *Document) Lines() *LineIndex {
	if d.lines == nil {
		return NewLineIndex(d.Text)
	}
	return d.lines
}

// Position is a 0-based line and byte column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open span of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a range inside a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// LineIndex converts between byte offsets and positions without keeping the
// text itself.
type LineIndex struct {
	starts []int
	length int
}

func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, length: len(text)}
}

// PositionAt converts a byte offset to a position. Offsets are clamped to the text.
func (l *LineIndex) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > l.length {
		offset = l.length
	}
	line := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return Position{Line: line, Column: offset - l.starts[line]}
}

// OffsetAt converts a position to a byte offset, clamping columns past the
// end of the line.
func (l *LineIndex) OffsetAt(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(l.starts) {
		return l.length
	}
	lineEnd := l.length
	if pos.Line+1 < len(l.starts) {
		lineEnd = l.starts[pos.Line+1] - 1
	}
	offset := l.starts[pos.Line] + max(pos.Column, 0)
	if offset > lineEnd {
		offset = lineEnd
	}
	return offset
}

// RangeOf converts an offset span to a range.
func (l *LineIndex) RangeOf(start, end int) Range {
	return Range{Start: l.PositionAt(start), End: l.PositionAt(end)}
}

// LineCount returns the number of lines in the text.
func (l *LineIndex) LineCount() int {
	return len(l.starts)
}
