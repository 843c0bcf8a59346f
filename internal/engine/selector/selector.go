// # internal/engine/selector/selector.go
package selector

import (
	"strings"

	"cssnav/internal/engine/part"
)

// Item is one comma-separated member of a selector group with its offset
// inside the group text.
type Item struct {
	Text   string
	Offset int
}

// Detail is a simple selector token inside an item, resolved against the
// ancestor forms.
type Detail struct {
	Kind      part.Kind
	Text      string
	Offset    int
	Formatted []string
	Primary   bool
}

// Group is a resolved selector group: every fully-qualified form plus the
// simple selector details of each item.
type Group struct {
	Formatted []string
	Details   []Detail
}

// Resolve combines the raw child group text with the ancestor forms.
// Items containing `&` substitute every ancestor form; other items are joined
// with a descendant space, or kept as-is under @at-root.
func Resolve(raw string, parents []string, atRoot bool) Group {
	var group Group
	seen := make(map[string]bool)
	add := func(form string) {
		if form == "" || seen[form] {
			return
		}
		seen[form] = true
		group.Formatted = append(group.Formatted, form)
	}

	for _, item := range Split(raw) {
		text := normalizeSpace(item.Text)
		switch {
		case len(parents) == 0:
			add(text)
		case strings.Contains(text, "&"):
			for _, parent := range parents {
				add(strings.ReplaceAll(text, "&", parent))
			}
		case atRoot:
			add(text)
		default:
			for _, parent := range parents {
				add(parent + " " + text)
			}
		}

		for _, tok := range Tokenize(item.Text) {
			detail, ok := resolveToken(tok, parents)
			if !ok {
				continue
			}
			detail.Offset += item.Offset
			group.Details = append(group.Details, detail)
		}
	}
	return group
}

func resolveToken(tok Token, parents []string) (Detail, bool) {
	if !strings.HasPrefix(tok.Text, "&") {
		return Detail{
			Kind:      kindOf(tok.Text),
			Text:      tok.Text,
			Offset:    tok.Offset,
			Formatted: []string{tok.Text},
			Primary:   tok.Primary,
		}, true
	}
	if len(parents) == 0 {
		return Detail{}, false
	}

	suffix := tok.Text[1:]
	detail := Detail{Text: tok.Text, Offset: tok.Offset, Primary: tok.Primary && suffix != ""}
	seen := make(map[string]bool)
	for _, parent := range parents {
		last := LastSimple(parent)
		if last == "" {
			continue
		}
		kind := kindOf(last)
		if detail.Kind == 0 {
			detail.Kind = kind
		}
		form := last + suffix
		if kind != detail.Kind || seen[form] {
			continue
		}
		seen[form] = true
		detail.Formatted = append(detail.Formatted, form)
	}
	if detail.Kind == 0 {
		return Detail{}, false
	}
	return detail, true
}

// LastSimple returns the last simple selector token of a resolved selector,
// `.p .a:hover` gives `.a`.
func LastSimple(selector string) string {
	tokens := Tokenize(selector)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1].Text
}

func kindOf(text string) part.Kind {
	switch {
	case strings.HasPrefix(text, "."):
		return part.CSSSelectorClass
	case strings.HasPrefix(text, "#"):
		return part.CSSSelectorID
	}
	return part.CSSSelectorTag
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
