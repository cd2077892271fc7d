package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Config controls scanning scope and parallelism.
type Config struct {
	// Include restricts the scan to files matching at least one glob
	// (doublestar syntax, relative to the root). Empty means all files.
	Include []string

	// Exclude skips files and directories matching any glob. Simple names
	// ("vendor") match a path segment anywhere in the tree.
	Exclude []string

	// Workers bounds the parsing worker pool. Zero means NumCPU, capped.
	Workers int

	// Registry supplies the language adapters. Nil means DefaultRegistry.
	Registry *Registry

	// Logger for scan progress. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultExcludes lists directories skipped unless overridden: vendored,
// generated and tooling trees that would pollute the dependency graph.
var DefaultExcludes = []string{
	".git",
	"vendor",
	"node_modules",
	"dist",
	"build",
	"target",
	"testdata",
	"__pycache__",
	".venv",
	"venv",
}

// DefaultConfig returns a scanner config with the default excludes and a
// bounded worker pool.
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 2 {
		workers = 2
	}
	return Config{
		Exclude: DefaultExcludes,
		Workers: workers,
	}
}

// Scanner walks a project tree and extracts File descriptors through the
// registered language adapters. Each Scan call is an independent pass with
// no retained state.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
}

// NewScanner creates a scanner from a config, applying defaults for unset
// fields.
func NewScanner(cfg Config) *Scanner {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Exclude == nil {
		cfg.Exclude = def.Exclude
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg, logger: logger}
}

// Scan walks root, parses every file that has a registered adapter, and
// returns the merged result sorted by path. Files an adapter cannot parse
// become Warnings rather than failing the scan. Cancellation is checked
// between files; a cancelled scan returns the context's error.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("read project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", absRoot)
	}

	paths, err := s.collect(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scan candidates collected", "root", absRoot, "files", len(paths))

	result := &Result{Root: absRoot}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, rel := range paths {
		rel := rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			file, warning := s.parseOne(absRoot, rel)
			mu.Lock()
			defer mu.Unlock()
			if warning != nil {
				result.Warnings = append(result.Warnings, *warning)
				return nil
			}
			result.Files = append(result.Files, *file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic output regardless of worker completion order.
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	sort.Slice(result.Warnings, func(i, j int) bool { return result.Warnings[i].Path < result.Warnings[j].Path })

	s.logger.Debug("scan complete", "files", len(result.Files), "warnings", len(result.Warnings))
	return result, nil
}

// collect walks the tree and returns relative slash paths of files that have
// a registered adapter and pass the include/exclude filters.
func (s *Scanner) collect(ctx context.Context, absRoot string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if s.excluded(rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.excluded(rel, d.Name()) {
			return nil
		}
		if _, ok := s.cfg.Registry.ForExtension(path.Ext(rel)); !ok {
			return nil
		}
		if !s.included(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk project root: %w", err)
	}
	return paths, nil
}

func (s *Scanner) included(rel string) bool {
	if len(s.cfg.Include) == 0 {
		return true
	}
	for _, pattern := range s.cfg.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(rel, name string) bool {
	for _, pattern := range s.cfg.Exclude {
		pattern = strings.TrimSuffix(pattern, "/")
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
			continue
		}
		// Simple name: match the entry or any path segment.
		if name == pattern || rel == pattern {
			return true
		}
		if strings.HasPrefix(rel, pattern+"/") || strings.Contains(rel, "/"+pattern+"/") {
			return true
		}
	}
	return false
}

// parseOne reads and parses a single file, downgrading failures to warnings.
func (s *Scanner) parseOne(absRoot, rel string) (*File, *Warning) {
	adapter, ok := s.cfg.Registry.ForExtension(path.Ext(rel))
	if !ok {
		return nil, &Warning{Path: rel, Reason: "no adapter for extension"}
	}
	content, err := os.ReadFile(filepath.Join(absRoot, filepath.FromSlash(rel)))
	if err != nil {
		return nil, &Warning{Path: rel, Reason: fmt.Sprintf("read file: %v", err)}
	}
	file, err := adapter.ParseFile(rel, content)
	if err != nil {
		s.logger.Debug("extraction failed", "path", rel, "error", err)
		return nil, &Warning{Path: rel, Reason: fmt.Sprintf("extract imports: %v", err)}
	}
	return file, nil
}
