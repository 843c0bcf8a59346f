// # internal/engine/parser/parser.go
package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
)

// Options tunes what the markup extractors emit.
type Options struct {
	// EmbeddedCSS parses `<style>` blocks of HTML documents.
	EmbeddedCSS bool
}

// Parser turns document text into parts. Parse is deterministic and never
// fails: malformed input yields a best-effort partial result.
type Parser struct {
	opts  Options
	html  *ParserPool
	js    *ParserPool
	tsx   *ParserPool
	pools map[document.Language]*ParserPool
}

func New(opts Options) *Parser {
	p := &Parser{
		opts: opts,
		html: NewParserPool(sitter.NewLanguage(tree_sitter_html.Language())),
		js:   NewParserPool(sitter.NewLanguage(tree_sitter_javascript.Language())),
		tsx:  NewParserPool(sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())),
	}
	p.pools = map[document.Language]*ParserPool{
		document.LanguageHTML: p.html,
		document.LanguageJSX:  p.js,
		document.LanguageTSX:  p.tsx,
	}
	return p
}

// Parse extracts the parts of text in the given language, ordered by start.
func (p *Parser) Parse(text string, lang document.Language) []*part.Part {
	switch lang {
	case document.LanguageCSS, document.LanguageSCSS, document.LanguageLESS:
		return parseStylesheet(text, 0, lang.SupportsLineComments())
	case document.LanguageSass:
		return parseSass(text, 0)
	case document.LanguageHTML:
		return p.parseHTML(text)
	case document.LanguageJSX:
		return p.parseJSX(text, p.js)
	case document.LanguageTSX:
		return p.parseJSX(text, p.tsx)
	}
	return nil
}

// Leased reports how many tree-sitter parsers are checked out for lang.
func (p *Parser) Leased(lang document.Language) int {
	if pool, ok := p.pools[lang]; ok {
		return pool.Stats()
	}
	return 0
}

func parseTree(pool *ParserPool, source []byte) *sitter.Tree {
	sp := pool.Get()
	if sp == nil {
		return nil
	}
	defer pool.Put(sp)
	return sp.Parse(source, nil)
}
