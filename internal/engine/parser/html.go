package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
)

type htmlAttribute struct {
	value string
	start int
}

func (p *Parser) parseHTML(text string) []*part.Part {
	source := []byte(text)
	tree := parseTree(p.html, source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	ctx := newExtractionContext(source)
	handlers := map[string]NodeHandler{
		"start_tag":        handleHTMLTag,
		"self_closing_tag": handleHTMLTag,
		"script_element": func(ctx *ExtractionContext, node *sitter.Node) bool {
			return true
		},
		"style_element": func(ctx *ExtractionContext, node *sitter.Node) bool {
			if p.opts.EmbeddedCSS {
				handleStyleElement(ctx, node)
			}
			return true
		},
	}
	NewExtractorEngine(handlers).Walk(ctx, tree.RootNode())

	part.SortByStart(ctx.Parts)
	return ctx.Parts
}

func handleHTMLTag(ctx *ExtractionContext, node *sitter.Node) bool {
	tagNode := ctx.ChildOfKind(node, "tag_name")
	if tagNode == nil {
		return true
	}
	tag := strings.ToLower(ctx.Text(tagNode))
	ctx.Add(part.HTMLTag, ctx.Text(tagNode), int(tagNode.StartByte()))

	attrs := htmlAttributes(ctx, node)
	if class, ok := attrs["class"]; ok {
		ctx.AddClassNames(part.HTMLClass, class.value, class.start)
	}
	if id, ok := attrs["id"]; ok {
		trimmed := strings.TrimSpace(id.value)
		if trimmed != "" && !strings.ContainsAny(trimmed, "{}<>$") {
			ctx.Add(part.HTMLID, trimmed, id.start+strings.Index(id.value, trimmed))
		}
	}
	if tag == "link" {
		rel := strings.ToLower(attrs["rel"].value)
		if href, ok := attrs["href"]; ok && strings.Contains(rel, "stylesheet") {
			path := strings.TrimSpace(href.value)
			if path != "" && !isExternalImport(path) {
				ctx.Add(part.CSSImportPath, path, href.start+strings.Index(href.value, path))
			}
		}
	}
	return true
}

// htmlAttributes collects the attributes of a start tag by lower-cased name.
// The first occurrence of a name wins.
func htmlAttributes(ctx *ExtractionContext, tag *sitter.Node) map[string]htmlAttribute {
	attrs := make(map[string]htmlAttribute)
	for i := uint(0); i < tag.ChildCount(); i++ {
		attr := tag.Child(i)
		if attr == nil || attr.Kind() != "attribute" {
			continue
		}
		name := strings.ToLower(ctx.Text(ctx.ChildOfKind(attr, "attribute_name")))
		if _, seen := attrs[name]; seen || name == "" {
			continue
		}
		value := ctx.ChildOfKind(attr, "attribute_value")
		if quoted := ctx.ChildOfKind(attr, "quoted_attribute_value"); quoted != nil {
			value = ctx.ChildOfKind(quoted, "attribute_value")
			if value == nil {
				attrs[name] = htmlAttribute{start: int(quoted.EndByte()) - 1}
				continue
			}
		}
		if value == nil {
			attrs[name] = htmlAttribute{start: int(attr.EndByte())}
			continue
		}
		attrs[name] = htmlAttribute{value: ctx.Text(value), start: int(value.StartByte())}
	}
	return attrs
}

// handleStyleElement parses the raw text of `<style>` as a stylesheet in
// place, honoring a `lang` attribute.
func handleStyleElement(ctx *ExtractionContext, node *sitter.Node) {
	lang := document.LanguageCSS
	if start := ctx.ChildOfKind(node, "start_tag"); start != nil {
		if l, ok := htmlAttributes(ctx, start)["lang"]; ok {
			if candidate := document.LanguageOfExtension(strings.TrimSpace(l.value)); candidate.IsStylesheet() {
				lang = candidate
			}
		}
	}
	raw := ctx.ChildOfKind(node, "raw_text")
	if raw == nil {
		return
	}
	text := ctx.Text(raw)
	base := int(raw.StartByte())
	var parts []*part.Part
	if lang == document.LanguageSass {
		parts = parseSass(text, base)
	} else {
		parts = parseStylesheet(text, base, lang.SupportsLineComments())
	}
	ctx.Parts = append(ctx.Parts, parts...)
}
