package selector

import "strings"

// Token is a simple selector (`div`, `.a`, `#b`, `&-x`) inside one item.
type Token struct {
	Text    string
	Offset  int
	Primary bool
}

// pseudo-elements allowed with the legacy single colon syntax.
var legacyPseudoElements = map[string]bool{
	"before":       true,
	"after":        true,
	"first-line":   true,
	"first-letter": true,
}

// Split breaks a selector group at top-level commas. Items are trimmed and
// empty items dropped.
func Split(raw string) []Item {
	var items []Item
	depth := 0
	start := 0
	flush := func(end int) {
		text := raw[start:end]
		trimmedLeft := strings.TrimLeft(text, " \t\r\n\f")
		offset := start + len(text) - len(trimmedLeft)
		trimmed := strings.TrimRight(trimmedLeft, " \t\r\n\f")
		if trimmed != "" {
			items = append(items, Item{Text: trimmed, Offset: offset})
		}
	}

	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; c {
		case '\\':
			i++
		case '"', '\'':
			i = skipString(raw, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(raw))
	return items
}

// Tokenize extracts the simple selectors of one item. Only the last simple
// selector of the last compound is primary, and only when no pseudo-element
// follows it.
func Tokenize(item string) []Token {
	s := strings.TrimRight(item, " \t\r\n\f")
	var tokens []Token
	compoundStart := 0
	combinator := false
	blocked := false
	depth := 0

	push := func(text string, offset int) {
		if combinator {
			compoundStart = len(tokens)
			combinator = false
		}
		blocked = false
		tokens = append(tokens, Token{Text: text, Offset: offset})
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\':
			i += 2
		case c == '"' || c == '\'':
			i = skipString(s, i)
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case depth > 0:
			i++
		case c == '[':
			i = skipBracket(s, i)
		case isSpace(c) || c == '>' || c == '+' || c == '~' || c == ',':
			combinator = true
			i++
		case c == ':':
			j := i + 1
			element := false
			if j < len(s) && s[j] == ':' {
				element = true
				j++
			}
			end := scanIdent(s, j)
			if !element && legacyPseudoElements[strings.ToLower(s[j:end])] {
				element = true
			}
			if element {
				if combinator {
					compoundStart = len(tokens)
					combinator = false
				}
				blocked = true
			}
			i = max(end, i+1)
		case c == '#' && i+1 < len(s) && s[i+1] == '{':
			i = scanIdent(s, i)
		case c == '.' || c == '#':
			end := scanIdent(s, i+1)
			if end > i+1 {
				push(s[i:end], i)
			}
			i = max(end, i+1)
		case c == '&':
			end := scanIdent(s, i+1)
			push(s[i:end], i)
			i = end
		case c == '%':
			i = max(scanIdent(s, i+1), i+1)
		case isIdentStart(c):
			end := scanIdent(s, i)
			push(s[i:end], i)
			i = end
		default:
			i++
		}
	}

	last := len(tokens) - 1
	if last >= 0 && last >= compoundStart && !combinator && !blocked {
		tokens[last].Primary = true
	}
	return tokens
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '-'
}

// scanIdent returns the end of an identifier starting at i. Escapes and
// `#{}` / `@{}` interpolations count as identifier characters.
func scanIdent(s string, i int) int {
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i += 2
		case (c == '#' || c == '@') && i+1 < len(s) && s[i+1] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return len(s)
			}
			i += end + 1
		case isIdentChar(c):
			i++
		default:
			return i
		}
	}
	return i
}

func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

func skipBracket(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '"', '\'':
			j = skipString(s, j) - 1
		case ']':
			return j + 1
		}
	}
	return len(s)
}
