// # cmd/cssnav/render.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cssnav/internal/core/app"
	"cssnav/internal/core/ports"
	"cssnav/internal/engine/document"
	"cssnav/internal/engine/service"
	"cssnav/internal/shared/util"
)

// OutputFormat selects how command results are written.
type OutputFormat string

const (
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type renderer struct {
	out    io.Writer
	format OutputFormat
	root   string
}

func (r *renderer) json(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

func (r *renderer) line(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// location renders loc as path:line:column with the path relative to the
// workspace when possible.
func (r *renderer) location(loc document.Location) string {
	path := util.URIToPath(loc.URI)
	if rel := util.RelativeSlashPath(r.root, path); rel != "" {
		path = rel
	}
	return locationStyle.Render(path + ":" + formatPosition(loc.Range.Start))
}

func (r *renderer) empty(what string) {
	r.line("%s", statusStyle.Render("no "+what))
}

func (r *renderer) definitions(defs []ports.Definition) error {
	if defs == nil {
		defs = []ports.Definition{}
	}
	if r.format == FormatJSON {
		return r.json(defs)
	}
	if len(defs) == 0 {
		r.empty("definitions")
		return nil
	}
	for _, d := range defs {
		r.line("%s  %s", r.location(d.Location), labelStyle.Render(firstLine(d.Text)))
	}
	return nil
}

func (r *renderer) references(locs []document.Location) error {
	if locs == nil {
		locs = []document.Location{}
	}
	if r.format == FormatJSON {
		return r.json(locs)
	}
	if len(locs) == 0 {
		r.empty("references")
		return nil
	}
	r.line("%s", titleStyle.Render(fmt.Sprintf("%d references", len(locs))))
	for _, loc := range locs {
		r.line("  %s", r.location(loc))
	}
	return nil
}

func (r *renderer) hover(h *service.Hover) error {
	if r.format == FormatJSON {
		return r.json(h)
	}
	if h == nil {
		r.empty("hover")
		return nil
	}
	r.line("%s", labelStyle.Render(h.Selector))
	if h.Comment != "" {
		r.line("%s", h.Comment)
	}
	r.line("%s", r.location(h.Location))
	return nil
}

func (r *renderer) completion(items []ports.CompletionItem) error {
	if items == nil {
		items = []ports.CompletionItem{}
	}
	if r.format == FormatJSON {
		return r.json(items)
	}
	if len(items) == 0 {
		r.empty("completions")
		return nil
	}
	for _, it := range items {
		r.line("%-9s %s", statusStyle.Render(it.Kind), labelStyle.Render(it.Label))
	}
	return nil
}

func (r *renderer) symbols(symbols []service.Symbol) error {
	if symbols == nil {
		symbols = []service.Symbol{}
	}
	if r.format == FormatJSON {
		return r.json(symbols)
	}
	if len(symbols) == 0 {
		r.empty("symbols")
		return nil
	}
	for _, s := range symbols {
		r.line("%s  %s  %s", labelStyle.Render(s.Name), statusStyle.Render(s.Kind.String()), r.location(s.Location))
	}
	return nil
}

func (r *renderer) diagnostics(diags []ports.ClassDiagnostic) error {
	if diags == nil {
		diags = []ports.ClassDiagnostic{}
	}
	if r.format == FormatJSON {
		return r.json(diags)
	}
	if len(diags) == 0 {
		r.line("%s", labelStyle.Render("all classes are defined"))
		return nil
	}
	for _, d := range diags {
		r.line("%s  %s", r.location(d.Location), warnStyle.Render("undefined class "+d.Class))
	}
	return nil
}

type indexReport struct {
	Stats  ports.Stats      `json:"stats"`
	Health app.HealthStatus `json:"health"`
}

func (r *renderer) index(report indexReport) error {
	if r.format == FormatJSON {
		return r.json(report)
	}
	r.line("%s", titleStyle.Render("cssnav index of "+r.root))
	for _, row := range [][2]string{
		{"stylesheets", fmt.Sprintf("%d tracked, %d parsed, %d ignored", report.Stats.CSS.Tracked, report.Stats.CSS.Parsed, report.Stats.CSS.Ignored)},
		{"markup", fmt.Sprintf("%d tracked, %d parsed, %d ignored", report.Stats.HTML.Tracked, report.Stats.HTML.Parsed, report.Stats.HTML.Ignored)},
	} {
		r.line("  %-12s %s", row[0], row[1])
	}
	status := labelStyle.Render(report.Health.Status)
	if report.Health.Status != "up" {
		status = warnStyle.Render(report.Health.Status)
	}
	r.line("  %-12s %s", "status", status)
	return nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}
