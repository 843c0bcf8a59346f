package ports

import (
	"context"

	"cssnav/internal/engine/document"
	"cssnav/internal/engine/servicemap"
	"cssnav/internal/engine/service"
	"cssnav/internal/engine/tracker"
)

// DocumentPosition addresses a cursor inside a document.
type DocumentPosition struct {
	URI      string
	Position document.Position
}

// Definition is a definition hit. Location spans the whole rule, Selection
// the matched token.
type Definition struct {
	Text      string            `json:"text"`
	Location  document.Location `json:"location"`
	Selection document.Range    `json:"selection"`
}

// CompletionItem is one completion label with the kind of name it completes.
type CompletionItem struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Completion kinds.
const (
	CompletionClass    = "class"
	CompletionID       = "id"
	CompletionTag      = "tag"
	CompletionVariable = "variable"
)

// ClassDiagnostic is a class referenced from markup that no stylesheet
// defines.
type ClassDiagnostic struct {
	Class    string            `json:"class"`
	Location document.Location `json:"location"`
}

// Stats summarizes both service maps.
type Stats struct {
	CSS  servicemap.Stats `json:"css"`
	HTML servicemap.Stats `json:"html"`
}

// QueryService exposes navigation queries for driving adapters. Per-file
// problems yield empty results; errors are reserved for bad requests.
type QueryService interface {
	Definition(ctx context.Context, pos DocumentPosition) ([]Definition, error)
	References(ctx context.Context, pos DocumentPosition) ([]document.Location, error)
	Hover(ctx context.Context, pos DocumentPosition) (*service.Hover, error)
	Completion(ctx context.Context, pos DocumentPosition) ([]CompletionItem, error)
	WorkspaceSymbols(ctx context.Context, query string) ([]service.Symbol, error)
	UndefinedClassReferences(ctx context.Context, uri string) ([]ClassDiagnostic, error)
	Stats(ctx context.Context) (Stats, error)
}

// DocumentLifecycle receives editor and disk notifications.
type DocumentLifecycle interface {
	OpenOrChangeDocument(doc *document.Document)
	SaveDocument(ctx context.Context, uri string)
	CloseDocument(uri string)
	HandleChanges(changes []tracker.FileChange)
}
