package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"cssnav/internal/engine/part"
)

// NodeHandler processes a node for a language-specific extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries shared state/helpers used by all extractors.
type ExtractionContext struct {
	Source []byte
	Parts  []*part.Part

	// ModuleBindings maps a default-imported CSS module binding to its path.
	ModuleBindings map[string]string
}

func newExtractionContext(source []byte) *ExtractionContext {
	return &ExtractionContext{
		Source:         source,
		ModuleBindings: make(map[string]string),
	}
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	if handler, ok := e.handlers[node.Kind()]; ok {
		if handler(ctx, node) {
			return
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// ChildOfKind returns the first direct child of the given kind.
func (c *ExtractionContext) ChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// Add appends a part for text starting at byte offset start.
func (c *ExtractionContext) Add(kind part.Kind, text string, start int) {
	c.Parts = append(c.Parts, part.New(kind, text, start))
}

// AddClassNames splits a class attribute value into one part per name.
// Names carrying template syntax are skipped.
func (c *ExtractionContext) AddClassNames(kind part.Kind, value string, start int) {
	i := 0
	for i < len(value) {
		for i < len(value) && isSpaceByte(value[i]) {
			i++
		}
		j := i
		for j < len(value) && !isSpaceByte(value[j]) {
			j++
		}
		if j > i {
			name := value[i:j]
			if !strings.ContainsAny(name, "{}<>$()[]'\"`=") {
				c.Add(kind, name, start+i)
			}
		}
		i = j
	}
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
