package service

import (
	"strings"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
)

// Symbol is a workspace symbol: a resolved selector or a variable.
type Symbol struct {
	Name     string            `json:"name"`
	Kind     part.Kind         `json:"kind"`
	Location document.Location `json:"location"`
}

// FindSymbols returns selectors and variable declarations matching query.
func (s *Service) FindSymbols(query string) []Symbol {
	var out []Symbol
	for _, p := range s.parts {
		if p.Kind != part.CSSSelectorWrapper && p.Kind != part.CSSVariableDeclaration {
			continue
		}
		for _, name := range p.Formatted {
			if MatchSymbol(name, query) {
				out = append(out, Symbol{
					Name:     name,
					Kind:     p.Kind,
					Location: document.Location{URI: s.uri, Range: s.lines.RangeOf(p.Start, p.DefinitionEnd())},
				})
			}
		}
	}
	return out
}

// MatchSymbol reports whether query occurs in name at a word start. A match
// counts when it starts the name, follows a non-alphanumeric character, or
// the query itself starts with one. Comparison ignores case.
func MatchSymbol(name, query string) bool {
	if query == "" {
		return true
	}
	name = strings.ToLower(name)
	query = strings.ToLower(query)
	queryAtBoundary := !isAlphaNumeric(query[0])

	from := 0
	for {
		i := strings.Index(name[from:], query)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || queryAtBoundary || !isAlphaNumeric(name[i-1]) {
			return true
		}
		from = i + 1
	}
}

func isAlphaNumeric(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
