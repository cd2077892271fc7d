package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/archlens/config"
	"github.com/c360studio/archlens/engine"
	"github.com/c360studio/archlens/report"
	"github.com/c360studio/archlens/rule"
	"github.com/c360studio/archlens/scan"
	"github.com/c360studio/archlens/watch"
)

// appContext carries the resolved configuration shared by all subcommands.
type appContext struct {
	configPath string
	root       string
	logLevel   string
	format     string

	cfg    *config.Config
	logger *slog.Logger
}

// setup resolves logging, configuration, and the project root. Runs once
// before any subcommand.
func (a *appContext) setup() error {
	a.logger = newLogger(a.logLevel)

	if a.format != "text" && a.format != "json" {
		return fmt.Errorf("unknown output format %q", a.format)
	}

	var cfg *config.Config
	if a.configPath != "" {
		loaded, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		loaded, err := config.NewLoader(a.logger).Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if a.root != "" {
		cfg.Root = a.root
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absRoot)
	}
	cfg.Root = absRoot

	a.cfg = cfg
	return nil
}

func (a *appContext) engine() *engine.Engine {
	return engine.FromConfig(a.cfg, a.logger)
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// renderReport writes the report in the selected format and converts a
// failed run into errViolations for the exit code.
func (a *appContext) renderReport(w io.Writer, rep *report.Report) error {
	var err error
	if a.format == "json" {
		err = rep.RenderJSON(w)
	} else {
		err = rep.Render(w)
	}
	if err != nil {
		return err
	}
	if !rep.Success {
		return errViolations
	}
	return nil
}

// renderResults wraps ad-hoc check results in a report for rendering.
func (a *appContext) renderResults(w io.Writer, results ...rule.Result) error {
	rep := report.New(results, nil, false)
	if a.cfg.WarnEmptySelection {
		rep.WarnEmptySelections()
	}
	return a.renderReport(w, rep)
}

func newInitCmd(app *appContext) *cobra.Command {
	var user bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Init writes a default archlens.yaml into the project root. With --user
it creates the user-level config under ~/.config/archlens instead; an
existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user {
				path, err := config.NewLoader(app.logger).EnsureUserConfig()
				if err != nil {
					return fmt.Errorf("create user config: %w", err)
				}
				cmd.Printf("User config at %s\n", path)
				return nil
			}

			path := filepath.Join(app.cfg.Root, config.ProjectConfigFile)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists: %s", path)
			}
			if err := config.DefaultConfig().SaveToFile(path); err != nil {
				return fmt.Errorf("write project config: %w", err)
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&user, "user", false, "Create the user-level config instead of a project file")
	return cmd
}

func newRunCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate all configured rules",
		Long: `Run scans the project once and evaluates every rule from the
configuration file against the resulting module graph.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rules, err := app.cfg.StaticRules()
			if err != nil {
				return err
			}

			rep, err := app.engine().RunAll(ctx, app.cfg.Root, rules, app.cfg.MatrixDefs())
			if err != nil {
				if rep != nil {
					_ = app.renderReport(cmd.OutOrStdout(), rep)
				}
				return err
			}
			return app.renderReport(cmd.OutOrStdout(), rep)
		},
	}
}

func newLayerCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:     "layer <source-namespace> <target-namespace>",
		Short:   "Check that a source layer does not depend on a target layer",
		Example: "  archlens layer 'internal/*/domain' 'internal/*/infrastructure'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			res, err := app.engine().CheckLayerDependency(ctx, app.cfg.Root, args[0], args[1])
			if err != nil {
				return err
			}
			return app.renderResults(cmd.OutOrStdout(), res)
		},
	}
}

func newIsolationCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:     "isolation <namespace> <namespace>",
		Short:   "Check that two namespaces do not depend on each other",
		Example: "  archlens isolation 'internal/user/**' 'internal/order/**'",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			res, err := app.engine().CheckIsolation(ctx, app.cfg.Root, args[0], args[1])
			if err != nil {
				return err
			}
			return app.renderResults(cmd.OutOrStdout(), res)
		},
	}
}

func newNamingCmd(app *appContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:     "naming <namespace> <suffix>",
		Short:   "Check a naming convention over a namespace",
		Example: "  archlens naming 'internal/*/domain' Repository --kind interface",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			var symbolKind scan.SymbolKind
			if kind != "" {
				parsed, err := scan.ParseKind(kind)
				if err != nil {
					return err
				}
				symbolKind = parsed
			}

			res, err := app.engine().CheckNaming(ctx, app.cfg.Root, args[0], args[1], symbolKind)
			if err != nil {
				return err
			}
			return app.renderResults(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Require suffix-matching symbols to be this kind (interface, struct, function, type, const, var); without it every symbol must carry the suffix")
	return cmd
}

func newExportCmd(app *appContext) *cobra.Command {
	var (
		focus  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the module dependency graph in DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return app.engine().ExportGraph(ctx, app.cfg.Root, w, focus)
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "Restrict to modules matching this namespace plus direct neighbors")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newWatchCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run all configured rules whenever source files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rules, err := app.cfg.StaticRules()
			if err != nil {
				return err
			}
			eng := app.engine()
			out := cmd.OutOrStdout()

			runOnce := func() {
				rep, err := eng.RunAll(ctx, app.cfg.Root, rules, app.cfg.MatrixDefs())
				if err != nil {
					if ctx.Err() == nil {
						app.logger.Error("run failed", "error", err)
					}
					return
				}
				if err := app.renderReport(out, rep); err != nil && !errors.Is(err, errViolations) {
					app.logger.Error("render report", "error", err)
				}
			}

			watcher, err := watch.NewWatcher(watch.Config{
				Root:       app.cfg.Root,
				Extensions: scan.DefaultRegistry.Extensions(),
				Logger:     app.logger,
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer func() { _ = watcher.Stop() }()

			runOnce()
			for {
				select {
				case <-ctx.Done():
					app.logger.Info("Watch stopped")
					return nil
				case batch, ok := <-watcher.Changes():
					if !ok {
						return nil
					}
					app.logger.Info("Source changed, re-running checks", "files", len(batch))
					runOnce()
				}
			}
		},
	}
}
