package parser

import (
	"regexp"
	"strings"

	"cssnav/internal/engine/part"
	"cssnav/internal/engine/selector"
)

var (
	variableDeclarationRE = regexp.MustCompile(`^(--[\w-]+)\s*:`)
	variableReferenceRE   = regexp.MustCompile(`var\(\s*(--[\w-]+)`)
	urlRE                 = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)`)
)

// at-rules whose body holds ordinary nested rules.
var transparentAtRules = map[string]bool{
	"media":     true,
	"supports":  true,
	"layer":     true,
	"container": true,
	"document":  true,
	"scope":     true,
}

var importAtRules = map[string]bool{
	"import":  true,
	"use":     true,
	"forward": true,
}

type ruleScope struct {
	// forms are the resolved selectors children nest under; nil at the top
	// level and under @at-root blocks.
	forms []string
	// inert scopes hold no selectors at all (@keyframes, @mixin bodies).
	inert bool
	parts []*part.Part
}

// ruleBuilder turns the open/close/statement events of a stylesheet scanner
// into parts. It is shared by the brace scanner and the indentation scanner.
type ruleBuilder struct {
	parts   []*part.Part
	stack   []*ruleScope
	comment string
	sass    bool
}

func newRuleBuilder(sass bool) *ruleBuilder {
	return &ruleBuilder{sass: sass}
}

func (b *ruleBuilder) current() *ruleScope {
	if len(b.stack) == 0 {
		return &ruleScope{}
	}
	return b.stack[len(b.stack)-1]
}

// setComment records a comment that may describe the next rule.
func (b *ruleBuilder) setComment(text string) {
	b.comment = text
}

func (b *ruleBuilder) takeComment() string {
	c := b.comment
	b.comment = ""
	return c
}

// openRule starts a block whose header text begins at offset start.
func (b *ruleBuilder) openRule(header string, start int) {
	trimmed := strings.TrimLeft(header, " \t\r\n\f")
	start += len(header) - len(trimmed)
	header = strings.TrimRight(trimmed, " \t\r\n\f")
	comment := b.takeComment()
	parent := b.current()

	if parent.inert || header == "" {
		b.push(&ruleScope{inert: parent.inert, forms: parent.forms})
		return
	}

	if strings.HasPrefix(header, "@") {
		name, rest := atRuleName(header)
		switch {
		case transparentAtRules[name]:
			b.push(&ruleScope{forms: parent.forms})
		case name == "at-root":
			if strings.TrimSpace(rest) == "" {
				b.push(&ruleScope{})
				return
			}
			offset := start + len(header) - len(strings.TrimLeft(rest, " \t"))
			b.selectorRule(strings.TrimLeft(rest, " \t"), offset, parent.forms, true, comment)
		default:
			b.push(&ruleScope{inert: true})
		}
		return
	}

	// Nested property namespaces, `font: { family: x }`.
	if strings.HasSuffix(header, ":") {
		b.push(&ruleScope{inert: true})
		return
	}

	b.selectorRule(header, start, parent.forms, false, comment)
}

func (b *ruleBuilder) selectorRule(header string, start int, parents []string, atRoot bool, comment string) {
	group := selector.Resolve(header, parents, atRoot)

	wrapper := &part.Part{
		Kind:      part.CSSSelectorWrapper,
		Text:      header,
		Start:     start,
		End:       start + len(header),
		DefEnd:    part.NoDefEnd,
		Formatted: group.Formatted,
		Comment:   comment,
	}
	scope := &ruleScope{forms: group.Formatted, parts: []*part.Part{wrapper}}
	b.parts = append(b.parts, wrapper)

	for _, d := range group.Details {
		detail := &part.Part{
			Kind:      d.Kind,
			Text:      d.Text,
			Start:     start + d.Offset,
			End:       start + d.Offset + len(d.Text),
			DefEnd:    part.NoDefEnd,
			Formatted: d.Formatted,
			Primary:   d.Primary,
		}
		scope.parts = append(scope.parts, detail)
		b.parts = append(b.parts, detail)
	}
	b.push(scope)
}

func (b *ruleBuilder) push(scope *ruleScope) {
	b.stack = append(b.stack, scope)
}

// closeRule ends the innermost block; end is the offset just past its body.
func (b *ruleBuilder) closeRule(end int) {
	if len(b.stack) == 0 {
		return
	}
	scope := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	for _, p := range scope.parts {
		p.DefEnd = end
	}
	b.comment = ""
}

// statement handles a declaration or block-less at-rule.
func (b *ruleBuilder) statement(text string, start int) {
	b.comment = ""
	trimmed := strings.TrimLeft(text, " \t\r\n\f")
	start += len(text) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r\n\f;")
	if trimmed == "" {
		return
	}

	if strings.HasPrefix(trimmed, "@") {
		name, _ := atRuleName(trimmed)
		if importAtRules[name] {
			b.importPaths(trimmed, start)
			return
		}
	}

	if m := variableDeclarationRE.FindStringSubmatchIndex(trimmed); m != nil {
		b.parts = append(b.parts, part.New(part.CSSVariableDeclaration, trimmed[m[2]:m[3]], start+m[2]))
	}
	for _, m := range variableReferenceRE.FindAllStringSubmatchIndex(trimmed, -1) {
		b.parts = append(b.parts, part.New(part.CSSVariableReference, trimmed[m[2]:m[3]], start+m[2]))
	}
}

// importPaths emits one import part per quoted or url() path of an
// @import/@use/@forward statement.
func (b *ruleBuilder) importPaths(text string, start int) {
	found := false
	emit := func(path string, offset int) {
		found = true
		if isExternalImport(path) {
			return
		}
		b.parts = append(b.parts, part.New(part.CSSImportPath, path, start+offset))
	}

	for _, m := range urlRE.FindAllStringSubmatchIndex(text, -1) {
		emit(text[m[2]:m[3]], m[2])
	}
	if !found {
		for i := 0; i < len(text); i++ {
			if text[i] != '"' && text[i] != '\'' {
				continue
			}
			end := strings.IndexByte(text[i+1:], text[i])
			if end < 0 {
				break
			}
			emit(text[i+1:i+1+end], i+1)
			i += end + 1
		}
	}

	// Indented Sass allows bare, comma separated paths.
	if !found && b.sass {
		_, rest := atRuleName(text)
		offset := len(text) - len(rest)
		for _, piece := range strings.Split(rest, ",") {
			path := strings.TrimSpace(piece)
			if path != "" {
				emit(path, offset+strings.Index(piece, path))
			}
			offset += len(piece) + 1
		}
	}
}

// flush closes any block left open by truncated input.
func (b *ruleBuilder) flush(end int) []*part.Part {
	for len(b.stack) > 0 {
		b.closeRule(end)
	}
	part.SortByStart(b.parts)
	return b.parts
}

func isExternalImport(path string) bool {
	return strings.HasPrefix(path, "sass:") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "//")
}

// atRuleName splits `@media screen` into `media` and ` screen`.
func atRuleName(text string) (string, string) {
	i := 1
	for i < len(text) {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == '"' || c == '\'' || c == ';' || c == '{' {
			break
		}
		i++
	}
	return strings.ToLower(text[1:i]), text[i:]
}
