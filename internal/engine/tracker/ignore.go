package tracker

import (
	"bufio"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreRule is one line of an ignore file, rewritten as a doublestar
// pattern relative to the walk root.
type ignoreRule struct {
	dir     string
	pattern string
	negate  bool
	dirOnly bool
}

// ignoreRules accumulates ignore-file rules while a walk descends. Later
// rules override earlier ones, as in git.
type ignoreRules struct {
	rules []ignoreRule
}

// replace swaps the rules of dir, a slash path relative to the walk root
// ("" for the root itself), for those parsed from the ignore files found
// there. A folder walked again keeps its position among the rules.
func (r *ignoreRules) replace(dir string, contents [][]byte) {
	var fresh []ignoreRule
	for _, content := range contents {
		fresh = append(fresh, parseIgnoreFile(dir, content)...)
	}

	at := -1
	kept := r.rules[:0:0]
	for _, rule := range r.rules {
		if rule.dir == dir {
			if at < 0 {
				at = len(kept)
			}
			continue
		}
		kept = append(kept, rule)
	}
	if at < 0 {
		at = len(kept)
	}
	r.rules = append(kept[:at:at], append(fresh, kept[at:]...)...)
}

func parseIgnoreFile(dir string, content []byte) []ignoreRule {
	var rules []ignoreRule
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rule, ok := parseIgnoreLine(dir, line); ok {
			rules = append(rules, rule)
		}
	}
	return rules
}

func parseIgnoreLine(dir, line string) (ignoreRule, bool) {
	rule := ignoreRule{dir: dir}
	if strings.HasPrefix(line, "!") {
		rule.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return ignoreRule{}, false
	}
	if !anchored && !strings.HasPrefix(line, "**") {
		line = "**/" + line
	}
	if dir != "" {
		line = path.Join(dir, line)
	}
	if !doublestar.ValidatePattern(line) {
		return ignoreRule{}, false
	}
	rule.pattern = line
	return rule, true
}

// ignored reports whether rel, a slash path relative to the walk root, is
// excluded by the loaded rules.
func (r *ignoreRules) ignored(rel string, isDir bool) bool {
	ignored := false
	for _, rule := range r.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(rule.pattern, rel); ok {
			ignored = !rule.negate
		}
	}
	return ignored
}

// ignoredPath is ignored applied to rel and each of its ancestor folders.
func (r *ignoreRules) ignoredPath(rel string, isDir bool) bool {
	if len(r.rules) == 0 {
		return false
	}
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if r.ignored(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return r.ignored(rel, isDir)
}
