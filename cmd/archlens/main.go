// Package main provides the archlens binary entry point.
// Archlens checks a source tree against declarative architecture rules:
// layer dependencies, domain isolation, and naming conventions.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	// Register language adapters via init()
	_ "github.com/c360studio/archlens/scan/golang"
	_ "github.com/c360studio/archlens/scan/python"
	_ "github.com/c360studio/archlens/scan/ts"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "archlens"
)

// errViolations signals that checks ran to completion and found breaches.
var errViolations = errors.New("architecture violations found")

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	app := &appContext{}

	cmd := &cobra.Command{
		Use:   "archlens",
		Short: "Architecture conformance checker",
		Long: `Archlens scans a source tree, classifies files into modules via
namespace templates, builds the module dependency graph, and evaluates
declarative architecture rules against it.

It checks:
- Layer dependencies (domain must not depend on infrastructure)
- Domain isolation (bounded contexts must not reach into each other)
- Naming conventions (symbols named *Repository must be interfaces)

Exit codes: 0 all rules pass, 1 violations or setup errors, 2 cancelled.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&app.root, "root", "", "Project root to analyze (default: config or git root)")
	flags.StringVar(&app.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVarP(&app.format, "format", "f", "text", "Output format (text, json)")

	cmd.AddCommand(
		newInitCmd(app),
		newRunCmd(app),
		newLayerCmd(app),
		newIsolationCmd(app),
		newNamingCmd(app),
		newExportCmd(app),
		newWatchCmd(app),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
