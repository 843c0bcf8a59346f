package parser

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
)

func (p *Parser) parseJSX(text string, pool *ParserPool) []*part.Part {
	source := []byte(text)
	tree := parseTree(pool, source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	ctx := newExtractionContext(source)
	root := tree.RootNode()

	// Imports first so module bindings are known before any usage.
	NewExtractorEngine(map[string]NodeHandler{
		"import_statement": handleImportStatement,
	}).Walk(ctx, root)

	NewExtractorEngine(map[string]NodeHandler{
		"import_statement":         func(*ExtractionContext, *sitter.Node) bool { return true },
		"jsx_opening_element":      handleJSXElement,
		"jsx_self_closing_element": handleJSXElement,
		"member_expression":        handleModuleMember,
		"subscript_expression":     handleModuleSubscript,
	}).Walk(ctx, root)

	part.SortByStart(ctx.Parts)
	return ctx.Parts
}

func handleImportStatement(ctx *ExtractionContext, node *sitter.Node) bool {
	source := node.ChildByFieldName("source")
	fragment := ctx.ChildOfKind(source, "string_fragment")
	if fragment == nil {
		return true
	}
	path := ctx.Text(fragment)
	if !document.LanguageOfURI(stripQuery(path)).IsStylesheet() {
		return true
	}
	ctx.Add(part.CSSImportPath, path, int(fragment.StartByte()))

	clause := ctx.ChildOfKind(node, "import_clause")
	if clause == nil {
		return true
	}
	if ident := ctx.ChildOfKind(clause, "identifier"); ident != nil {
		ctx.ModuleBindings[ctx.Text(ident)] = path
	}
	if ns := ctx.ChildOfKind(clause, "namespace_import"); ns != nil {
		if ident := ctx.ChildOfKind(ns, "identifier"); ident != nil {
			ctx.ModuleBindings[ctx.Text(ident)] = path
		}
	}
	return true
}

func handleJSXElement(ctx *ExtractionContext, node *sitter.Node) bool {
	if name := node.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
		text := ctx.Text(name)
		if text != "" && unicode.IsLower(rune(text[0])) {
			ctx.Add(part.HTMLTag, text, int(name.StartByte()))
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		attr := node.Child(i)
		if attr == nil || attr.Kind() != "jsx_attribute" || attr.NamedChildCount() < 2 {
			continue
		}
		name := ctx.Text(attr.NamedChild(0))
		value, start, ok := jsxStaticString(ctx, attr.NamedChild(attr.NamedChildCount()-1))
		if !ok {
			continue
		}
		switch name {
		case "className", "class":
			ctx.AddClassNames(part.HTMLClass, value, start)
		case "id":
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				ctx.Add(part.HTMLID, trimmed, start+strings.Index(value, trimmed))
			}
		}
	}
	return false
}

// jsxStaticString reads `"x"`, `{"x"}` and `{`x`}` attribute values.
func jsxStaticString(ctx *ExtractionContext, node *sitter.Node) (string, int, bool) {
	if node == nil {
		return "", 0, false
	}
	if node.Kind() == "jsx_expression" {
		if node.NamedChildCount() != 1 {
			return "", 0, false
		}
		node = node.NamedChild(0)
	}
	switch node.Kind() {
	case "string":
	case "template_string":
		if ctx.ChildOfKind(node, "template_substitution") != nil {
			return "", 0, false
		}
	default:
		return "", 0, false
	}
	fragment := ctx.ChildOfKind(node, "string_fragment")
	if fragment == nil {
		return "", 0, false
	}
	return ctx.Text(fragment), int(fragment.StartByte()), true
}

func handleModuleMember(ctx *ExtractionContext, node *sitter.Node) bool {
	object := node.ChildByFieldName("object")
	if object == nil || object.Kind() != "identifier" {
		return false
	}
	if _, ok := ctx.ModuleBindings[ctx.Text(object)]; !ok {
		return false
	}
	if property := node.ChildByFieldName("property"); property != nil && property.Kind() == "property_identifier" {
		ctx.Add(part.HTMLModuleClass, ctx.Text(property), int(property.StartByte()))
	}
	return false
}

func handleModuleSubscript(ctx *ExtractionContext, node *sitter.Node) bool {
	object := node.ChildByFieldName("object")
	if object == nil || object.Kind() != "identifier" {
		return false
	}
	if _, ok := ctx.ModuleBindings[ctx.Text(object)]; !ok {
		return false
	}
	index := node.ChildByFieldName("index")
	if index == nil || index.Kind() != "string" {
		return false
	}
	if fragment := ctx.ChildOfKind(index, "string_fragment"); fragment != nil {
		ctx.Add(part.HTMLModuleClass, ctx.Text(fragment), int(fragment.StartByte()))
	}
	return false
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
