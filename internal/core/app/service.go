package app

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cssnav/internal/core/errors"
	"cssnav/internal/core/ports"
	"cssnav/internal/engine/document"
	"cssnav/internal/engine/part"
	"cssnav/internal/engine/service"
	"cssnav/internal/shared/observability"
	"cssnav/internal/shared/util"
)

type queryService struct {
	app *App
}

var _ ports.QueryService = (*queryService)(nil)

func NewQueryService(app *App) ports.QueryService {
	return &queryService{app: app}
}

func (a *App) QueryService() ports.QueryService {
	return NewQueryService(a)
}

func (s *queryService) start(ctx context.Context, name, uri string) (context.Context, trace.Span) {
	return observability.Tracer.Start(ctx, "queryService."+name, trace.WithAttributes(attribute.String("uri", uri)))
}

// partAt resolves the service of pos.URI and the part under the cursor.
func (s *queryService) partAt(ctx context.Context, pos ports.DocumentPosition) (*service.Service, *part.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	svc, _, err := s.app.serviceFor(ctx, pos.URI)
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.PartAt(svc.Lines().OffsetAt(pos.Position)), nil
}

func (s *queryService) Definition(ctx context.Context, pos ports.DocumentPosition) ([]ports.Definition, error) {
	ctx, span := s.start(ctx, "Definition", pos.URI)
	defer span.End()

	svc, p, err := s.partAt(ctx, pos)
	if err != nil || p == nil {
		return nil, err
	}
	matches := p.DefinitionMatches()
	if len(matches) == 0 {
		return nil, nil
	}

	var defs []service.Definition
	switch {
	case p.Kind == part.HTMLModuleClass:
		// Module classes only resolve against the modules the file imports.
		for _, imported := range s.importedStylesheets(ctx, svc) {
			defs = append(defs, imported.FindDefinitions(matches, nil)...)
		}
	case p.Kind.IsHTMLReference():
		defs = append(defs, s.app.CSS.FindDefinitions(ctx, matches, nil)...)
		// Embedded <style> rules of the same document.
		defs = append(defs, svc.FindDefinitions(matches, p)...)
	case p.Kind == part.CSSVariableReference:
		defs = append(defs, s.app.CSS.FindDefinitions(ctx, matches, nil)...)
		defs = append(defs, svc.FindDefinitions(matches, nil)...)
		for _, imported := range s.app.CSS.GetImportedServices(ctx, pos.URI) {
			defs = append(defs, imported.FindDefinitions(matches, nil)...)
		}
	default:
		return nil, nil
	}
	return uniqueDefinitions(defs), nil
}

// importedStylesheets returns the services of the stylesheets svc imports,
// parsed on demand when they are not tracked.
func (s *queryService) importedStylesheets(ctx context.Context, svc *service.Service) []*service.Service {
	var out []*service.Service
	for _, uri := range svc.Imports() {
		if !document.LanguageOfURI(uri).IsStylesheet() {
			continue
		}
		if imported, ok := s.app.CSS.ForceGetServiceByURI(ctx, uri); ok {
			out = append(out, imported)
		}
	}
	return out
}

func uniqueDefinitions(defs []service.Definition) []ports.Definition {
	seen := make(map[string]bool, len(defs))
	out := make([]ports.Definition, 0, len(defs))
	for _, d := range defs {
		key := locationKey(d.Location)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ports.Definition{Text: d.Part.Text, Location: d.Location, Selection: d.Selection})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessLocation(out[i].Location, out[j].Location)
	})
	return out
}

func (s *queryService) References(ctx context.Context, pos ports.DocumentPosition) ([]document.Location, error) {
	ctx, span := s.start(ctx, "References", pos.URI)
	defer span.End()

	_, p, err := s.partAt(ctx, pos)
	if err != nil || p == nil {
		return nil, err
	}
	if !p.Kind.IsHTMLReference() && !p.Kind.IsSelectorDetail() &&
		p.Kind != part.CSSVariableDeclaration && p.Kind != part.CSSVariableReference {
		return nil, nil
	}
	matches := p.DefinitionMatches()
	if len(matches) == 0 {
		return nil, nil
	}

	var locs []document.Location
	if p.Kind != part.CSSVariableDeclaration && p.Kind != part.CSSVariableReference {
		locs = append(locs, s.app.HTML.FindReferences(ctx, matches, false)...)
	}
	locs = append(locs, s.app.CSS.FindReferences(ctx, matches, true)...)
	return uniqueLocations(locs), nil
}

func uniqueLocations(locs []document.Location) []document.Location {
	seen := make(map[string]bool, len(locs))
	out := make([]document.Location, 0, len(locs))
	for _, l := range locs {
		key := locationKey(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return lessLocation(out[i], out[j]) })
	return out
}

func locationKey(l document.Location) string {
	return fmt.Sprintf("%s:%d:%d:%d:%d", l.URI, l.Range.Start.Line, l.Range.Start.Column, l.Range.End.Line, l.Range.End.Column)
}

func lessLocation(a, b document.Location) bool {
	if a.URI != b.URI {
		return a.URI < b.URI
	}
	if a.Range.Start.Line != b.Range.Start.Line {
		return a.Range.Start.Line < b.Range.Start.Line
	}
	return a.Range.Start.Column < b.Range.Start.Column
}

func (s *queryService) Hover(ctx context.Context, pos ports.DocumentPosition) (*service.Hover, error) {
	ctx, span := s.start(ctx, "Hover", pos.URI)
	defer span.End()

	svc, p, err := s.partAt(ctx, pos)
	if err != nil || p == nil {
		return nil, err
	}
	matches := p.DefinitionMatches()
	if len(matches) == 0 {
		return nil, nil
	}

	switch {
	case p.Kind.IsSelectorDetail():
		if h, ok := svc.FindHover(matches); ok {
			return &h, nil
		}
	case p.Kind == part.HTMLModuleClass:
		for _, imported := range s.importedStylesheets(ctx, svc) {
			if h, ok := imported.FindHover(matches); ok {
				return &h, nil
			}
		}
	case p.Kind.IsHTMLReference(), p.Kind == part.CSSVariableReference:
		if h, ok := s.app.CSS.FindHover(ctx, matches); ok {
			return &h, nil
		}
		if h, ok := svc.FindHover(matches); ok {
			return &h, nil
		}
	}
	return nil, nil
}

func (s *queryService) Completion(ctx context.Context, pos ports.DocumentPosition) ([]ports.CompletionItem, error) {
	ctx, span := s.start(ctx, "Completion", pos.URI)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	svc, doc, err := s.app.serviceFor(ctx, pos.URI)
	if err != nil {
		return nil, err
	}
	before := doc.Text[:doc.Lines().OffsetAt(pos.Position)]

	switch completionContextOf(before, doc) {
	case contextVariable:
		return items(s.app.CSS.GetDefinitionLabels(ctx, part.CSSVariableDeclaration), ports.CompletionVariable), nil
	case contextSelectorClass:
		return items(s.app.HTML.GetReferenceLabels(ctx, part.HTMLClass), ports.CompletionClass), nil
	case contextSelectorID:
		return items(s.app.HTML.GetReferenceLabels(ctx, part.HTMLID), ports.CompletionID), nil
	case contextClassAttribute:
		return items(s.app.CSS.GetDefinitionLabels(ctx, part.CSSSelectorClass), ports.CompletionClass), nil
	case contextIDAttribute:
		return items(s.app.CSS.GetDefinitionLabels(ctx, part.CSSSelectorID), ports.CompletionID), nil
	case contextModuleClass:
		set := make(map[string]bool)
		for _, imported := range s.importedStylesheets(ctx, svc) {
			for _, label := range imported.DefinitionLabels(part.CSSSelectorClass) {
				set[label] = true
			}
		}
		return items(util.SortedStringKeys(set), ports.CompletionClass), nil
	case contextTag:
		return items(s.app.CSS.GetDefinitionLabels(ctx, part.CSSSelectorTag), ports.CompletionTag), nil
	}
	return nil, nil
}

func items(labels []string, kind string) []ports.CompletionItem {
	out := make([]ports.CompletionItem, 0, len(labels))
	for _, label := range labels {
		out = append(out, ports.CompletionItem{Label: label, Kind: kind})
	}
	return out
}

func (s *queryService) WorkspaceSymbols(ctx context.Context, query string) ([]service.Symbol, error) {
	ctx, span := s.start(ctx, "WorkspaceSymbols", "")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbols := s.app.CSS.FindSymbols(ctx, query)
	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].Name != symbols[j].Name {
			return symbols[i].Name < symbols[j].Name
		}
		return lessLocation(symbols[i].Location, symbols[j].Location)
	})
	return symbols, nil
}

func (s *queryService) UndefinedClassReferences(ctx context.Context, uri string) ([]ports.ClassDiagnostic, error) {
	ctx, span := s.start(ctx, "UndefinedClassReferences", uri)
	defer span.End()

	if !s.app.Config.Service.ClassNameDiagnostics {
		return nil, errors.New(errors.CodeNotSupported, "class name diagnostics are disabled; set service.class_name_diagnostics")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	svc, _, err := s.app.serviceFor(ctx, uri)
	if err != nil {
		return nil, err
	}

	defined := make(map[string]bool)
	var out []ports.ClassDiagnostic
	for _, p := range svc.PartsOfKind(part.HTMLClass) {
		ok, seen := defined[p.Text]
		if !seen {
			ok = s.app.CSS.ClassDefined(ctx, p.Text) || svc.ClassDefined(p.Text)
			defined[p.Text] = ok
		}
		if !ok {
			out = append(out, ports.ClassDiagnostic{Class: p.Text, Location: svc.Location(p)})
		}
	}
	return out, nil
}

func (s *queryService) Stats(ctx context.Context) (ports.Stats, error) {
	if err := ctx.Err(); err != nil {
		return ports.Stats{}, err
	}
	return ports.Stats{CSS: s.app.CSS.Stats(), HTML: s.app.HTML.Stats()}, nil
}
