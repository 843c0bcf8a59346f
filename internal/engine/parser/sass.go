package parser

import (
	"strings"

	"cssnav/internal/engine/part"
)

type sassLine struct {
	indent  int
	start   int
	end     int
	comment string
}

// parseSass scans indentation-structured Sass, feeding the same rule
// builder the brace scanner uses.
func parseSass(text string, base int) []*part.Part {
	lines := sassLines(text)
	b := newRuleBuilder(true)
	var indents []int
	prevEnd := 0

	for i, line := range lines {
		for len(indents) > 0 && indents[len(indents)-1] >= line.indent {
			b.closeRule(base + prevEnd)
			indents = indents[:len(indents)-1]
		}
		if line.comment != "" {
			b.setComment(line.comment)
		}

		content := text[line.start:line.end]
		isBlock := i+1 < len(lines) && lines[i+1].indent > line.indent
		if isBlock {
			b.openRule(sassShorthand(content), base+line.start)
			indents = append(indents, line.indent)
		} else {
			b.statement(content, base+line.start)
		}
		prevEnd = line.end
	}
	return b.flush(base + prevEnd)
}

// sassLines returns logical content lines: comments are folded into the
// following line and selector lists ending in `,` are joined.
func sassLines(text string) []sassLine {
	var out []sassLine
	pendingComment := ""
	commentIndent := -1
	joining := false

	offset := 0
	for _, raw := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(raw)
		line := strings.TrimRight(raw, "\r\n")

		content := strings.TrimLeft(line, " \t")
		if content == "" {
			continue
		}
		indent := len(line) - len(content)
		start := lineStart + indent

		// body lines of a multi-line comment
		if commentIndent >= 0 && indent > commentIndent {
			pendingComment = strings.TrimSpace(pendingComment + "\n" + strings.TrimSpace(strings.TrimSuffix(content, "*/")))
			continue
		}
		commentIndent = -1

		if strings.HasPrefix(content, "//") || strings.HasPrefix(content, "/*") {
			body := strings.TrimPrefix(strings.TrimPrefix(content, "//"), "/*")
			pendingComment = strings.TrimSpace(strings.TrimSuffix(body, "*/"))
			commentIndent = indent
			continue
		}

		end := start + len(stripTrailingComment(content))
		if joining && len(out) > 0 {
			out[len(out)-1].end = end
		} else {
			out = append(out, sassLine{indent: indent, start: start, end: end, comment: pendingComment})
			pendingComment = ""
		}
		joining = strings.HasSuffix(strings.TrimSpace(text[start:end]), ",")
	}
	return out
}

func stripTrailingComment(content string) string {
	inQuote := byte(0)
	for i := 0; i+1 < len(content); i++ {
		c := content[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '/' && content[i+1] == '/' && i > 0 && (content[i-1] == ' ' || content[i-1] == '\t'):
			return strings.TrimRight(content[:i], " \t")
		}
	}
	return strings.TrimRight(content, " \t")
}

// sassShorthand maps `=name` and `+name` to their @mixin and @include forms.
func sassShorthand(header string) string {
	switch {
	case strings.HasPrefix(header, "="):
		return "@mixin " + header[1:]
	case strings.HasPrefix(header, "+"):
		return "@include " + header[1:]
	}
	return header
}
