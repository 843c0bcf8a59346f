// # internal/engine/parser/css.go
package parser

import (
	"strings"

	"cssnav/internal/engine/part"
)

type comment struct {
	start int
	end   int
	text  string
}

// parseStylesheet scans brace-structured stylesheets (CSS, SCSS, LESS).
// base shifts every offset, for stylesheets embedded in markup.
func parseStylesheet(text string, base int, lineComments bool) []*part.Part {
	clean, comments := stripComments(text, lineComments)
	b := newRuleBuilder(false)

	segStart := 0
	depth := 0
	nextComment := 0

	// attach the last comment that ends right before the segment's content.
	attach := func(contentStart int) {
		for nextComment < len(comments) && comments[nextComment].end <= contentStart {
			c := comments[nextComment]
			if strings.TrimSpace(text[c.end:contentStart]) == "" {
				b.setComment(c.text)
			}
			nextComment++
		}
	}

	for i := 0; i < len(clean); i++ {
		switch c := clean[i]; c {
		case '\\':
			i++
		case '"', '\'':
			i = skipQuoted(clean, i)
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '#', '@', '$':
			if i+1 < len(clean) && clean[i+1] == '{' {
				i = skipInterpolation(clean, i+1)
			}
		case ';':
			if depth == 0 {
				b.statement(clean[segStart:i], base+segStart)
				segStart = i + 1
			}
		case '{':
			header := clean[segStart:i]
			attach(segStart + len(header) - len(strings.TrimLeft(header, " \t\r\n\f")))
			b.openRule(header, base+segStart)
			segStart = i + 1
			depth = 0
		case '}':
			if strings.TrimSpace(clean[segStart:i]) != "" {
				b.statement(clean[segStart:i], base+segStart)
			}
			b.closeRule(base + i + 1)
			segStart = i + 1
			depth = 0
		}
	}
	if strings.TrimSpace(clean[segStart:]) != "" {
		b.statement(clean[segStart:], base+segStart)
	}
	return b.flush(base + len(clean))
}

// stripComments blanks out comments with spaces so offsets are preserved,
// and returns the comment texts.
func stripComments(text string, lineComments bool) (string, []comment) {
	buf := []byte(text)
	var comments []comment
	depth := 0

	blank := func(from, to int) {
		for j := from; j < to; j++ {
			if buf[j] != '\n' {
				buf[j] = ' '
			}
		}
	}

	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\\':
			i++
		case c == '"' || c == '\'':
			i = skipQuoted(text, i)
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			stop := len(text)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			comments = append(comments, comment{start: i, end: stop, text: cleanBlockComment(text[i:stop])})
			blank(i, stop)
			i = stop - 1
		case lineComments && depth == 0 && c == '/' && i+1 < len(text) && text[i+1] == '/' && (i == 0 || isBoundary(text[i-1])):
			stop := strings.IndexByte(text[i:], '\n')
			if stop < 0 {
				stop = len(text)
			} else {
				stop += i
			}
			comments = append(comments, comment{start: i, end: stop, text: strings.TrimSpace(text[i+2 : stop])})
			blank(i, stop)
			i = stop - 1
		}
	}
	return string(buf), comments
}

func isBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', ';', '{', '}':
		return true
	}
	return false
}

func cleanBlockComment(raw string) string {
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// skipQuoted returns the index of the closing quote, or the last index.
func skipQuoted(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote, '\n':
			return j
		}
	}
	return len(s) - 1
}

// skipInterpolation returns the index of the `}` closing the brace at i.
func skipInterpolation(s string, i int) int {
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(s) - 1
}
