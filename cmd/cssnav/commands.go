// # cmd/cssnav/commands.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cssnav/internal/core/app"
	"cssnav/internal/core/config"
	"cssnav/internal/core/ports"
	"cssnav/internal/shared/observability"
	"cssnav/internal/ui/cli"
)

func newIndexCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Walk the workspace, parse every tracked file and print stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.Index(ctx); err != nil {
				return err
			}
			stats, err := a.QueryService().Stats(ctx)
			if err != nil {
				return err
			}
			return o.renderer().index(indexReport{
				Stats:  stats,
				Health: app.NewHealthService(a).Check(ctx),
			})
		},
	}
}

// positionCmd builds a command taking <file> <line:column>.
func positionCmd(o *cliOptions, use, short string, run func(context.Context, ports.QueryService, ports.DocumentPosition, *renderer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file> <line:column>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			a, err := o.newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd.Context(), a.QueryService(), ports.DocumentPosition{URI: fileURI(args[0]), Position: pos}, o.renderer())
		},
	}
}

func newDefinitionCmd(o *cliOptions) *cobra.Command {
	return positionCmd(o, "definition", "Find the definitions of the name under the cursor",
		func(ctx context.Context, qs ports.QueryService, pos ports.DocumentPosition, r *renderer) error {
			defs, err := qs.Definition(ctx, pos)
			if err != nil {
				return err
			}
			return r.definitions(defs)
		})
}

func newReferencesCmd(o *cliOptions) *cobra.Command {
	return positionCmd(o, "references", "Find the references of the name under the cursor",
		func(ctx context.Context, qs ports.QueryService, pos ports.DocumentPosition, r *renderer) error {
			locs, err := qs.References(ctx, pos)
			if err != nil {
				return err
			}
			return r.references(locs)
		})
}

func newHoverCmd(o *cliOptions) *cobra.Command {
	return positionCmd(o, "hover", "Describe the rule behind the name under the cursor",
		func(ctx context.Context, qs ports.QueryService, pos ports.DocumentPosition, r *renderer) error {
			h, err := qs.Hover(ctx, pos)
			if err != nil {
				return err
			}
			return r.hover(h)
		})
}

func newCompleteCmd(o *cliOptions) *cobra.Command {
	return positionCmd(o, "complete", "List completions at the cursor",
		func(ctx context.Context, qs ports.QueryService, pos ports.DocumentPosition, r *renderer) error {
			items, err := qs.Completion(ctx, pos)
			if err != nil {
				return err
			}
			return r.completion(items)
		})
}

func newSymbolsCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols [query]",
		Short: "Search selectors and variables across the workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			a, err := o.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			symbols, err := a.QueryService().WorkspaceSymbols(cmd.Context(), query)
			if err != nil {
				return err
			}
			return o.renderer().symbols(symbols)
		},
	}
}

func newDiagnosticsCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics <file>",
		Short: "Report classes used in a markup file that no stylesheet defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.cfg.Service.ClassNameDiagnostics = true
			a, err := o.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			diags, err := a.QueryService().UndefinedClassReferences(cmd.Context(), fileURI(args[0]))
			if err != nil {
				return err
			}
			return o.renderer().diagnostics(diags)
		},
	}
}

func newWatchCmd(o *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Index the workspace and keep it fresh until interrupted",
		Long: `watch indexes the workspace, follows disk changes and serves /metrics,
/health and /stats when observability.metrics_address is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.watch(ctx)
		},
	}
}

func (o *cliOptions) watch(ctx context.Context) error {
	shutdownTracing, err := observability.SetupTracing(ctx, o.cfg.Observability.OTLPEndpoint, VERSION)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := o.newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Index(ctx); err != nil {
		return err
	}
	if err := a.StartWatcher(); err != nil {
		return err
	}

	if addr := o.cfg.Observability.MetricsAddress; addr != "" {
		srv := cli.NewObservabilityServer(addr, app.NewHealthService(a), a.QueryService())
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	if o.loadedPath != "" {
		cw := config.NewWatcher(o.loadedPath, o.applyReload)
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "path", o.loadedPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	stats, _ := a.QueryService().Stats(ctx)
	slog.Info("watching workspace",
		"root", o.cfg.Workspace.StartPath,
		"stylesheets", stats.CSS.Tracked,
		"markup", stats.HTML.Tracked)
	o.renderer().line("%s", statusStyle.Render("watching "+o.cfg.Workspace.StartPath))

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// applyReload applies the log level of a reloaded config. Everything else
// needs a restart.
func (o *cliOptions) applyReload(cfg *config.Config) {
	if o.verbose {
		return
	}
	level, ok := config.ParseLevel(cfg.Logging.Level)
	if !ok {
		return
	}
	if level != o.level.Level() {
		o.level.Set(level)
		slog.Info("log level updated", "level", level.String())
	}
	slog.Info("config reloaded, workspace and service changes apply after restart")
}
