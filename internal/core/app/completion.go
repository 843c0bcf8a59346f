package app

import (
	"regexp"
	"strings"

	"cssnav/internal/engine/document"
)

type completionContext int

const (
	contextNone completionContext = iota
	contextVariable
	contextSelectorClass
	contextSelectorID
	contextClassAttribute
	contextIDAttribute
	contextModuleClass
	contextTag
)

var (
	variablePrefix  = regexp.MustCompile(`var\(\s*--[\w-]*$`)
	selectorClass   = regexp.MustCompile(`(?:^|[\s,>+~{}(&])\.[\w-]*$`)
	selectorID      = regexp.MustCompile(`(?:^|[\s,>+~{}(&])#[\w-]*$`)
	declarationHead = regexp.MustCompile(`^\s*[\w-]+\s*:(?:\s|$)`)
	classAttribute  = regexp.MustCompile("\\b(?:class|className)\\s*=\\s*(?:\"|'|\\{\\s*[\"'`])[^\"'`]*$")
	idAttribute     = regexp.MustCompile(`\bid\s*=\s*["'][^"']*$`)
	openTag         = regexp.MustCompile(`<[a-zA-Z][\w-]*$`)
	memberAccess    = regexp.MustCompile(`([A-Za-z_$][\w$]*)\.[\w-]*$`)
	moduleImport    = regexp.MustCompile(`import\s+(?:\*\s+as\s+)?([A-Za-z_$][\w$]*)\s+from\s+["'][^"']+\.(?:css|scss|less|sass)["']`)
)

// completionContextOf classifies the text before the cursor.
func completionContextOf(before string, doc *document.Document) completionContext {
	lang := doc.Language()
	if lang.IsStylesheet() {
		return stylesheetContext(before)
	}

	switch {
	case classAttribute.MatchString(before):
		return contextClassAttribute
	case idAttribute.MatchString(before):
		return contextIDAttribute
	case openTag.MatchString(before):
		return contextTag
	}
	if lang == document.LanguageJSX || lang == document.LanguageTSX {
		if m := memberAccess.FindStringSubmatch(before); m != nil && moduleBindings(doc.Text)[m[1]] {
			return contextModuleClass
		}
	}
	return contextNone
}

func stylesheetContext(before string) completionContext {
	if variablePrefix.MatchString(before) {
		return contextVariable
	}
	// Colors and numbers inside a declaration are not selectors.
	segment := before[strings.LastIndexAny(before, "{};")+1:]
	if declarationHead.MatchString(segment) {
		return contextNone
	}
	switch {
	case selectorClass.MatchString(before):
		return contextSelectorClass
	case selectorID.MatchString(before):
		return contextSelectorID
	}
	return contextNone
}

// moduleBindings returns the names default-imported from stylesheets.
func moduleBindings(text string) map[string]bool {
	bindings := make(map[string]bool)
	for _, m := range moduleImport.FindAllStringSubmatch(text, -1) {
		bindings[m[1]] = true
	}
	return bindings
}
