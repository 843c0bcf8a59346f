package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cssnav/internal/core/config"
	"cssnav/internal/core/errors"
	"cssnav/internal/core/ports"
	"cssnav/internal/engine/document"
	"cssnav/internal/engine/service"
	"cssnav/internal/shared/util"
)

const (
	siteCSS   = ".btn { color: red; }\n#main { }\n"
	indexHTML = `<div id="main" class="btn missing"></div>`
	draftHTML = `<div class="b`
)

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"site.css":   siteCSS,
		"index.html": indexHTML,
		"draft.html": draftHTML,
		"notes.md":   "# notes",
	} {
		require.NoError(t, util.WriteStringWithDirs(filepath.Join(root, name), content, 0o644))
	}
	return root
}

func execute(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out, io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// cursor returns the 1-based line:column of needle in a single line text.
func cursor(t *testing.T, text, needle string) string {
	t.Helper()
	i := strings.Index(text, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q", needle)
	return "1:" + strconv.Itoa(i+1)
}

func TestDefinitionCommand(t *testing.T) {
	root := newWorkspace(t)
	html := filepath.Join(root, "index.html")

	out, err := execute(context.Background(), "--root", root, "--format", "json", "definition", html, cursor(t, indexHTML, "btn"))
	require.NoError(t, err)

	var defs []ports.Definition
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	require.Len(t, defs, 1)
	assert.Equal(t, util.PathToURI(filepath.Join(root, "site.css")), defs[0].Location.URI)
	assert.Equal(t, 0, defs[0].Location.Range.Start.Line)

	out, err = execute(context.Background(), "--root", root, "definition", html, cursor(t, indexHTML, "btn"))
	require.NoError(t, err)
	assert.Contains(t, out, "site.css:1:1")

	out, err = execute(context.Background(), "--root", root, "--format", "json", "definition", html, cursor(t, indexHTML, "missing"))
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestReferencesCommand(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(context.Background(), "--root", root, "--format", "json", "references", filepath.Join(root, "site.css"), "1:2")
	require.NoError(t, err)

	var locs []document.Location
	require.NoError(t, json.Unmarshal([]byte(out), &locs))
	var uris []string
	for _, loc := range locs {
		uris = append(uris, loc.URI)
	}
	assert.Contains(t, uris, util.PathToURI(filepath.Join(root, "index.html")))
}

func TestHoverCommand(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(context.Background(), "--root", root, "--format", "json", "hover", filepath.Join(root, "index.html"), cursor(t, indexHTML, "btn"))
	require.NoError(t, err)

	var h service.Hover
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, ".btn", h.Selector)
}

func TestCompleteCommand(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(context.Background(), "--root", root, "--format", "json", "complete", filepath.Join(root, "draft.html"), "1:"+strconv.Itoa(len(draftHTML)+1))
	require.NoError(t, err)

	var items []ports.CompletionItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Contains(t, items, ports.CompletionItem{Label: "btn", Kind: ports.CompletionClass})
}

func TestSymbolsCommand(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(context.Background(), "--root", root, "--format", "json", "symbols", "btn")
	require.NoError(t, err)

	var symbols []service.Symbol
	require.NoError(t, json.Unmarshal([]byte(out), &symbols))
	require.Len(t, symbols, 1)
	assert.Equal(t, ".btn", symbols[0].Name)

	out, err = execute(context.Background(), "--root", root, "symbols", "nothing-like-this")
	require.NoError(t, err)
	assert.Contains(t, out, "no symbols")
}

func TestDiagnosticsCommand(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(context.Background(), "--root", root, "--format", "json", "diagnostics", filepath.Join(root, "index.html"))
	require.NoError(t, err)

	var diags []ports.ClassDiagnostic
	require.NoError(t, json.Unmarshal([]byte(out), &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, "missing", diags[0].Class)
}

func TestIndexCommand(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(context.Background(), "--root", root, "--format", "json", "index")
	require.NoError(t, err)

	var report indexReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Stats.CSS.Tracked)
	assert.Equal(t, 2, report.Stats.HTML.Tracked)
	assert.Equal(t, "up", report.Health.Status)

	out, err = execute(context.Background(), "--root", root, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "stylesheets")
	assert.Contains(t, out, "1 tracked")
}

func TestCommandErrors(t *testing.T) {
	root := newWorkspace(t)

	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"unknown format", []string{"--format", "yaml", "index"}, errors.CodeValidationError},
		{"bad position", []string{"definition", filepath.Join(root, "index.html"), "0:1"}, errors.CodeValidationError},
		{"unsupported file", []string{"definition", filepath.Join(root, "notes.md"), "1:1"}, errors.CodeNotSupported},
		{"missing file", []string{"hover", filepath.Join(root, "gone.css"), "1:1"}, errors.CodeNotFound},
		{"missing config", []string{"--config", filepath.Join(root, "none.toml"), "index"}, errors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(context.Background(), append([]string{"--root", root}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestWatchCommand(t *testing.T) {
	root := newWorkspace(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := execute(ctx, "--root", root, "watch")
	require.NoError(t, err)
	assert.Contains(t, out, "watching "+root)
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    document.Position
		wantErr bool
	}{
		{in: "1:1", want: document.Position{Line: 0, Column: 0}},
		{in: "12:7", want: document.Position{Line: 11, Column: 6}},
		{in: "0:1", wantErr: true},
		{in: "1:0", wantErr: true},
		{in: "3", wantErr: true},
		{in: "a:b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePosition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, formatPosition(got))
		})
	}
}

func TestApplyReload(t *testing.T) {
	o := &cliOptions{level: new(slog.LevelVar)}

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	o.applyReload(cfg)
	assert.Equal(t, slog.LevelDebug, o.level.Level())

	cfg.Logging.Level = "bogus"
	o.applyReload(cfg)
	assert.Equal(t, slog.LevelDebug, o.level.Level())

	o.verbose = true
	cfg.Logging.Level = "error"
	o.applyReload(cfg)
	assert.Equal(t, slog.LevelDebug, o.level.Level())
}
