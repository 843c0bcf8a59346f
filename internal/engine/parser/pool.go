// # internal/engine/parser/pool.go
package parser

import (
	"log/slog"
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserPool recycles tree-sitter parser instances to avoid the per-document
// allocation overhead of sitter.NewParser() / parser.Close().
//
// Each pool is tied to a single grammar; Parser keeps one pool per markup
// language.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type ParserPool struct {
	lang   *sitter.Language
	pool   sync.Pool
	leased atomic.Int64
	err    error
}

// NewParserPool creates a pool for the given language grammar.
// The language must remain valid for the lifetime of the pool. A grammar
// built for an ABI this binding does not support leaves the pool disabled:
// Err reports why and Get returns nil.
func NewParserPool(lang *sitter.Language) *ParserPool {
	p := &ParserPool{lang: lang}
	sp := sitter.NewParser()
	if err := sp.SetLanguage(lang); err != nil {
		sp.Close()
		p.err = err
		slog.Error("tree-sitter grammar rejected", "abi_version", lang.AbiVersion(), "error", err)
		return p
	}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			if err := sp.SetLanguage(lang); err != nil {
				slog.Error("set parser language failed", "error", err)
			}
			return sp
		},
	}
	p.pool.Put(sp)
	return p
}

// Err returns the error that disabled the pool, if any.
func (p *ParserPool) Err() error {
	return p.err
}

// Get retrieves a parser configured for the pool's language, or nil when
// the grammar was rejected.
func (p *ParserPool) Get() *sitter.Parser {
	if p.err != nil {
		return nil
	}
	sp := p.pool.Get().(*sitter.Parser)
	// Ensure the language is set in case the parser was Reset() externally.
	if err := sp.SetLanguage(p.lang); err != nil {
		slog.Error("set parser language failed", "error", err)
	}
	p.leased.Add(1)
	return sp
}

// Put resets the parser and returns it to the pool. Callers must not use sp
// after calling Put.
func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.pool.Put(sp)
}

// Stats returns the number of currently leased parsers.
func (p *ParserPool) Stats() int {
	return int(p.leased.Load())
}
