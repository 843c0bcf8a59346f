// # internal/engine/service/service.go
package service

import (
	"sort"
	"strings"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
)

// Options controls what a service indexes beyond its parts.
type Options struct {
	// ClassNameSet builds the class-name multiset used by existence checks.
	ClassNameSet bool
}

// Service is an immutable index of the parts of one document version.
type Service struct {
	uri     string
	version int32
	lang    document.Language
	lines   *document.LineIndex
	parts   []*part.Part
	byKind  map[part.Kind][]*part.Part
	classes map[string]int
	imports []string
}

// New indexes parts, which must be ordered by start. imports are the
// resolved URIs of the document's import parts.
func New(doc *document.Document, parts []*part.Part, imports []string, opts Options) *Service {
	s := &Service{
		uri:     doc.URI,
		version: doc.Version,
		lang:    doc.Language(),
		lines:   doc.Lines(),
		parts:   parts,
		byKind:  make(map[part.Kind][]*part.Part),
		imports: imports,
	}
	for _, p := range parts {
		s.byKind[p.Kind] = append(s.byKind[p.Kind], p)
	}
	if opts.ClassNameSet {
		s.classes = make(map[string]int)
		for _, p := range s.byKind[part.CSSSelectorClass] {
			if !p.IsDefinition() {
				continue
			}
			for _, f := range p.Formatted {
				s.classes[part.Label(f)]++
			}
		}
	}
	return s
}

func (s *Service) URI() string                 { return s.uri }
func (s *Service) Version() int32              { return s.version }
func (s *Service) Language() document.Language { return s.lang }
func (s *Service) Parts() []*part.Part         { return s.parts }
func (s *Service) Lines() *document.LineIndex  { return s.lines }

// Imports returns the resolved URIs of the document's imports.
func (s *Service) Imports() []string { return s.imports }

// PartsOfKind returns the parts of one kind in start order.
func (s *Service) PartsOfKind(kind part.Kind) []*part.Part {
	return s.byKind[kind]
}

// Location returns the location of a part of this service.
func (s *Service) Location(p *part.Part) document.Location {
	return document.Location{URI: s.uri, Range: s.lines.RangeOf(p.Start, p.End)}
}

// PartAt returns the innermost part containing offset. A selector wrapper is
// narrowed to the detail under the offset when there is one.
func (s *Service) PartAt(offset int) *part.Part {
	idx := sort.Search(len(s.parts), func(i int) bool { return s.parts[i].Start > offset })
	for i := idx - 1; i >= 0; i-- {
		p := s.parts[i]
		if !p.Contains(offset) {
			continue
		}
		if p.Kind == part.CSSSelectorWrapper {
			if detail := s.detailAt(i, offset); detail != nil {
				return detail
			}
		}
		return p
	}
	return nil
}

func (s *Service) detailAt(wrapperIndex, offset int) *part.Part {
	wrapper := s.parts[wrapperIndex]
	var best *part.Part
	for i := wrapperIndex + 1; i < len(s.parts); i++ {
		p := s.parts[i]
		if p.Start > wrapper.End {
			break
		}
		if p.Kind.IsSelectorDetail() && p.Contains(offset) {
			best = p
		}
	}
	return best
}

// WrapperOf returns the selector wrapper a detail part belongs to.
func (s *Service) WrapperOf(detail *part.Part) *part.Part {
	if detail.Kind == part.CSSSelectorWrapper {
		return detail
	}
	idx := sort.Search(len(s.parts), func(i int) bool { return s.parts[i].Start > detail.Start })
	for i := idx - 1; i >= 0; i-- {
		p := s.parts[i]
		if p.Kind == part.CSSSelectorWrapper && p.Start <= detail.Start && detail.End <= p.End {
			return p
		}
	}
	return nil
}

// Definition is a definition hit: Range spans the whole rule, Selection the
// token itself.
type Definition struct {
	Part      *part.Part
	Location  document.Location
	Selection document.Range
}

// FindDefinitions returns definition parts whose formatted forms contain one
// of matches. from, when set, is excluded.
func (s *Service) FindDefinitions(matches []part.Match, from *part.Part) []Definition {
	var out []Definition
	for _, kind := range matchKinds(matches) {
		for _, p := range s.byKind[kind] {
			if p == from || !p.IsDefinition() {
				continue
			}
			if !formattedMatches(p, kind, matches) {
				continue
			}
			out = append(out, Definition{
				Part:      p,
				Location:  document.Location{URI: s.uri, Range: s.lines.RangeOf(p.Start, p.DefinitionEnd())},
				Selection: s.lines.RangeOf(p.Start, p.End),
			})
		}
	}
	return out
}

// HasDefinition reports whether any definition matches.
func (s *Service) HasDefinition(matches []part.Match) bool {
	return len(s.FindDefinitions(matches, nil)) > 0
}

// FindReferences returns reference parts whose definition keys intersect
// matches. Matching stylesheet selector details are included when
// includeSelectors is set.
func (s *Service) FindReferences(matches []part.Match, includeSelectors bool) []document.Location {
	var out []document.Location
	for _, p := range s.parts {
		switch {
		case p.Kind.IsHTMLReference(), p.Kind == part.CSSVariableReference:
		case includeSelectors && p.IsDefinition():
		default:
			continue
		}
		if p.MatchesAny(matches) {
			out = append(out, s.Location(p))
		}
	}
	return out
}

// ClassDefined checks the class-name multiset, falling back to a scan when
// the service was built without it.
func (s *Service) ClassDefined(name string) bool {
	if s.classes != nil {
		return s.classes[name] > 0
	}
	return s.HasDefinition([]part.Match{{Kind: part.CSSSelectorClass, Text: "." + name}})
}

// DefinitionLabels returns the distinct labels of definitions of kind, as
// used by completion: `.btn` gives `btn`.
func (s *Service) DefinitionLabels(kind part.Kind) []string {
	var labels []string
	for _, p := range s.byKind[kind] {
		if !p.IsDefinition() {
			continue
		}
		for _, f := range p.Formatted {
			labels = append(labels, part.Label(f))
		}
	}
	return labels
}

// ReferenceLabels returns the names referenced by markup parts of kind.
func (s *Service) ReferenceLabels(kind part.Kind) []string {
	labels := make([]string, 0, len(s.byKind[kind]))
	for _, p := range s.byKind[kind] {
		labels = append(labels, p.Text)
	}
	return labels
}

// Hover describes the rule behind a definition part.
type Hover struct {
	Selector string            `json:"selector"`
	Comment  string            `json:"comment,omitempty"`
	Location document.Location `json:"location"`
}

// FindHover returns the hover of the first matching definition.
func (s *Service) FindHover(matches []part.Match) (Hover, bool) {
	defs := s.FindDefinitions(matches, nil)
	if len(defs) == 0 {
		return Hover{}, false
	}
	p := defs[0].Part
	h := Hover{Selector: strings.Join(p.Formatted, ", "), Location: defs[0].Location}
	if wrapper := s.WrapperOf(p); wrapper != nil {
		h.Selector = strings.Join(wrapper.Formatted, ", ")
		h.Comment = wrapper.Comment
	}
	return h, true
}

func matchKinds(matches []part.Match) []part.Kind {
	var kinds []part.Kind
	seen := make(map[part.Kind]bool)
	for _, m := range matches {
		if !seen[m.Kind] {
			seen[m.Kind] = true
			kinds = append(kinds, m.Kind)
		}
	}
	return kinds
}

func formattedMatches(p *part.Part, kind part.Kind, matches []part.Match) bool {
	for _, m := range matches {
		if m.Kind == kind && p.HasFormatted(m.Text) {
			return true
		}
	}
	return false
}
