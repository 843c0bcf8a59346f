// # internal/engine/part/part.go
package part

import (
	"sort"
	"strings"
)

// Kind distinguishes reference parts found in templates from definition parts
// found in stylesheets.
type Kind int

const (
	// HTMLTag is a tag name referenced from markup, `<div>`.
	HTMLTag Kind = iota + 1
	// HTMLID is an id attribute value, stored without the `#`.
	HTMLID
	// HTMLClass is a single class name from a class attribute, stored without the `.`.
	HTMLClass
	// HTMLModuleClass is `styles.name` on a CSS module binding.
	HTMLModuleClass

	// CSSSelectorWrapper spans a whole selector group, `.a, .b:hover`.
	CSSSelectorWrapper
	CSSSelectorTag
	CSSSelectorID
	CSSSelectorClass

	CSSVariableDeclaration
	CSSVariableReference

	// CSSImportPath is the raw path of an import, either from a stylesheet
	// or from markup (`<link href>`, `import "x.css"`).
	CSSImportPath
)

var kindNames = map[Kind]string{
	HTMLTag:                "HTMLTag",
	HTMLID:                 "HTMLID",
	HTMLClass:              "HTMLClass",
	HTMLModuleClass:        "HTMLModuleClass",
	CSSSelectorWrapper:     "CSSSelectorWrapper",
	CSSSelectorTag:         "CSSSelectorTag",
	CSSSelectorID:          "CSSSelectorID",
	CSSSelectorClass:       "CSSSelectorClass",
	CSSVariableDeclaration: "CSSVariableDeclaration",
	CSSVariableReference:   "CSSVariableReference",
	CSSImportPath:          "CSSImportPath",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsHTMLReference reports whether k is one of the markup-side reference kinds.
func (k Kind) IsHTMLReference() bool {
	return k >= HTMLTag && k <= HTMLModuleClass
}

// IsSelectorDetail reports whether k is a single simple selector inside a wrapper.
func (k Kind) IsSelectorDetail() bool {
	return k == CSSSelectorTag || k == CSSSelectorID || k == CSSSelectorClass
}

// NoDefEnd marks a part without an enclosing rule body.
const NoDefEnd = -1

// Part is one indexed fact extracted from a file. Parts are immutable once
// built and owned by the service that produced them.
type Part struct {
	Kind  Kind
	Text  string
	Start int
	End   int

	// DefEnd is the end offset of the enclosing rule body, or NoDefEnd.
	DefEnd int

	// Formatted holds every fully-qualified form after nesting resolution.
	Formatted []string

	// Primary marks the rightmost simple selector usable as a definition key.
	Primary bool

	// Comment is the description written right above a rule, wrappers only.
	Comment string
}

// New creates a part with a single formatted form equal to its text.
func New(kind Kind, text string, start int) *Part {
	return &Part{
		Kind:      kind,
		Text:      text,
		Start:     start,
		End:       start + len(text),
		DefEnd:    NoDefEnd,
		Formatted: []string{text},
	}
}

// Contains reports whether offset falls inside the part, end inclusive so a
// cursor right after the last character still hits it.
func (p *Part) Contains(offset int) bool {
	return offset >= p.Start && offset <= p.End
}

// IsSelfReference reports whether the part is a lone `&`.
func (p *Part) IsSelfReference() bool {
	return p.Text == "&"
}

// HasFormatted reports whether text is one of the part's formatted forms.
func (p *Part) HasFormatted(text string) bool {
	for _, f := range p.Formatted {
		if f == text {
			return true
		}
	}
	return false
}

// IsDefinition reports whether the part may act as a definition key.
func (p *Part) IsDefinition() bool {
	switch {
	case p.Kind.IsSelectorDetail():
		return p.Primary && !p.IsSelfReference()
	case p.Kind == CSSVariableDeclaration:
		return true
	}
	return false
}

// DefinitionEnd returns the end of the whole definition range.
func (p *Part) DefinitionEnd() int {
	if p.DefEnd == NoDefEnd {
		return p.End
	}
	return p.DefEnd
}

// DefinitionKind maps a part kind to the stylesheet kind that defines it.
func DefinitionKind(k Kind) (Kind, bool) {
	switch k {
	case HTMLTag, CSSSelectorTag:
		return CSSSelectorTag, true
	case HTMLID, CSSSelectorID:
		return CSSSelectorID, true
	case HTMLClass, HTMLModuleClass, CSSSelectorClass:
		return CSSSelectorClass, true
	case CSSVariableReference, CSSVariableDeclaration:
		return CSSVariableDeclaration, true
	}
	return 0, false
}

// Match is a kind and text pair compared against definition parts.
type Match struct {
	Kind Kind
	Text string
}

// DefinitionMatches returns the definition-mode keys of a part: every
// formatted form in definition spelling (`.foo`, `#id`, `div`, `--var`).
func (p *Part) DefinitionMatches() []Match {
	kind, ok := DefinitionKind(p.Kind)
	if !ok {
		return nil
	}
	switch p.Kind {
	case HTMLClass, HTMLModuleClass:
		return []Match{{Kind: kind, Text: "." + p.Text}}
	case HTMLID:
		return []Match{{Kind: kind, Text: "#" + p.Text}}
	case HTMLTag:
		return []Match{{Kind: kind, Text: strings.ToLower(p.Text)}}
	}
	matches := make([]Match, 0, len(p.Formatted))
	for _, f := range p.Formatted {
		matches = append(matches, Match{Kind: kind, Text: f})
	}
	return matches
}

// MatchesAny reports whether any of the part's definition keys is in matches.
func (p *Part) MatchesAny(matches []Match) bool {
	for _, own := range p.DefinitionMatches() {
		for _, m := range matches {
			if own == m {
				return true
			}
		}
	}
	return false
}

// Label strips the selector prefix from a definition-mode text, `.foo` to `foo`.
func Label(text string) string {
	if strings.HasPrefix(text, ".") || strings.HasPrefix(text, "#") {
		return text[1:]
	}
	return text
}

// SortByStart orders parts by start offset, keeping wrappers ahead of the
// details that share their start.
func SortByStart(parts []*Part) {
	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Start < parts[j].Start
	})
}
