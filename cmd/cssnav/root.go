// # cmd/cssnav/root.go
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cssnav/internal/core/app"
	"cssnav/internal/core/config"
	"cssnav/internal/core/errors"
	"cssnav/internal/engine/document"
	"cssnav/internal/shared/util"
)

// cliOptions holds the persistent flags and the state PersistentPreRunE
// derives from them.
type cliOptions struct {
	configPath string
	root       string
	format     string
	verbose    bool

	out    io.Writer
	errOut io.Writer

	cfg        *config.Config
	loadedPath string
	level      *slog.LevelVar
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{
		out:    stdout,
		errOut: stderr,
		level:  new(slog.LevelVar),
	}

	cmd := &cobra.Command{
		Use:   "cssnav",
		Short: "cssnav - CSS class and id navigation for a workspace",
		Long: `cssnav indexes the stylesheets and markup of a workspace and answers
navigation queries: go to definition, find references, hover, completion,
workspace symbols and undefined class diagnostics.

Positions are given as line:column, both 1-based.`,
		Version:      VERSION,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("cssnav v{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default ./"+config.DefaultFileName+" when present)")
	flags.StringVar(&opts.root, "root", "", "Workspace folder, overrides workspace.start_path")
	flags.StringVar(&opts.format, "format", string(FormatHuman), "Output format: human or json")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newIndexCmd(opts),
		newDefinitionCmd(opts),
		newReferencesCmd(opts),
		newHoverCmd(opts),
		newCompleteCmd(opts),
		newSymbolsCmd(opts),
		newDiagnosticsCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// setup validates the flags, loads the config and installs the logger.
func (o *cliOptions) setup() error {
	switch OutputFormat(o.format) {
	case FormatHuman, FormatJSON:
	default:
		return errors.AddContext(
			errors.Newf(errors.CodeValidationError, "unsupported format %q", o.format),
			errors.CtxField, "format")
	}

	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return err
	}
	o.loadedPath = o.configPath
	if o.loadedPath == "" {
		if _, statErr := os.Stat(config.DefaultFileName); statErr == nil {
			o.loadedPath = config.DefaultFileName
		}
	}

	if o.root != "" {
		cfg.Workspace.StartPath = o.root
	}
	if abs, err := filepath.Abs(cfg.Workspace.StartPath); err == nil {
		cfg.Workspace.StartPath = abs
	}

	level, _ := config.ParseLevel(cfg.Logging.Level)
	if o.verbose {
		level = slog.LevelDebug
	}
	o.level.Set(level)
	slog.SetDefault(slog.New(slog.NewTextHandler(o.errOut, &slog.HandlerOptions{
		Level: o.level,
	})))

	o.cfg = cfg
	return nil
}

// newApp builds an App from the loaded config. Callers close it.
func (o *cliOptions) newApp() (*app.App, error) {
	return app.New(o.cfg)
}

func (o *cliOptions) renderer() *renderer {
	return &renderer{
		out:    o.out,
		format: OutputFormat(o.format),
		root:   o.cfg.Workspace.StartPath,
	}
}

// fileURI turns a command line path into a document URI.
func fileURI(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	return util.PathToURI(arg)
}

// parsePosition reads a 1-based line:column pair.
func parsePosition(arg string) (document.Position, error) {
	invalid := func() error {
		return errors.AddContext(
			errors.Newf(errors.CodeValidationError, "invalid position %q, want line:column", arg),
			errors.CtxField, "position")
	}

	lineText, colText, ok := strings.Cut(arg, ":")
	if !ok {
		return document.Position{}, invalid()
	}
	line, err := strconv.Atoi(lineText)
	if err != nil || line < 1 {
		return document.Position{}, invalid()
	}
	col, err := strconv.Atoi(colText)
	if err != nil || col < 1 {
		return document.Position{}, invalid()
	}
	return document.Position{Line: line - 1, Column: col - 1}, nil
}

// formatPosition renders pos as 1-based line:column.
func formatPosition(pos document.Position) string {
	return fmt.Sprintf("%d:%d", pos.Line+1, pos.Column+1)
}
