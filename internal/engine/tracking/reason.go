package tracking

import "strings"

// Reason is the set of causes keeping a file tracked.
type Reason uint8

const (
	// ReasonIncluded marks files matched by the workspace globs.
	ReasonIncluded Reason = 1 << iota
	// ReasonOpened marks files open in the editor.
	ReasonOpened
	// ReasonImported marks files reached through another file's import.
	ReasonImported
	// ReasonAncestralIncluded is derived: some importer, transitively, is included.
	ReasonAncestralIncluded
)

func (r Reason) Has(bits Reason) bool {
	return r&bits != 0
}

// ImportOnly reports whether nothing but an import keeps the file tracked.
func (r Reason) ImportOnly() bool {
	return r == ReasonImported || r == 0
}

func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		bit  Reason
		name string
	}{
		{ReasonIncluded, "included"},
		{ReasonOpened, "opened"},
		{ReasonImported, "imported"},
		{ReasonAncestralIncluded, "ancestral-included"},
	} {
		if r.Has(n.bit) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}
