// Package engine runs the conformance pipeline: scan a project tree,
// classify files into modules, build the dependency graph, and evaluate
// rules into a report.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/archlens/config"
	"github.com/c360studio/archlens/modgraph"
	"github.com/c360studio/archlens/namespace"
	"github.com/c360studio/archlens/report"
	"github.com/c360studio/archlens/rule"
	"github.com/c360studio/archlens/scan"
)

// Options configures an Engine. Zero values fall back to defaults: a
// catch-all namespace template, the global adapter registry, and the
// default logger.
type Options struct {
	// Templates classify files into modules. Defaults to ["**"].
	Templates []string

	// ModulePrefix is stripped from import paths before resolution.
	ModulePrefix string

	// Include and Exclude are doublestar globs over root-relative paths.
	Include []string
	Exclude []string

	// Workers bounds scan parallelism. Zero means auto.
	Workers int

	// WarnEmptySelection flags rules whose selector matched no module.
	WarnEmptySelection bool

	Logger   *slog.Logger
	Registry *scan.Registry
}

// Engine executes conformance checks against a project tree. Each check
// runs the full pipeline, so results always reflect the tree as it is on
// disk at call time.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// New creates an engine with the given options.
func New(opts Options) *Engine {
	if len(opts.Templates) == 0 {
		opts.Templates = []string{"**"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = scan.DefaultRegistry
	}
	return &Engine{opts: opts, logger: opts.Logger}
}

// FromConfig creates an engine from a loaded configuration.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Engine {
	return New(Options{
		Templates:          cfg.Templates,
		ModulePrefix:       cfg.ModulePrefix,
		Include:            cfg.Include,
		Exclude:            cfg.Exclude,
		Workers:            cfg.Workers,
		WarnEmptySelection: cfg.WarnEmptySelection,
		Logger:             logger,
	})
}

// BuildGraph runs scan, classification, and graph construction for root.
func (e *Engine) BuildGraph(ctx context.Context, root string) (*modgraph.BuildResult, error) {
	classifier, err := modgraph.NewClassifier(e.opts.Templates, e.opts.ModulePrefix)
	if err != nil {
		return nil, rule.Setupf("build graph: %v", err)
	}

	scanner := scan.NewScanner(scan.Config{
		Include:  e.opts.Include,
		Exclude:  e.opts.Exclude,
		Workers:  e.opts.Workers,
		Registry: e.opts.Registry,
		Logger:   e.logger,
	})
	res, err := scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}

	built, err := modgraph.Build(res, classifier, e.opts.Registry)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("graph built",
		slog.Int("modules", built.Graph.ModuleCount()),
		slog.Int("edges", built.Graph.EdgeCount()),
		slog.Int("excluded", len(built.Unclassified)),
		slog.Int("unresolved", len(built.Unresolved)))
	for _, u := range built.Unresolved {
		e.logger.Warn("import target not classified",
			slog.String("file", u.File),
			slog.Int("line", u.Line),
			slog.String("target", u.Target))
	}
	return built, nil
}

// CheckLayerDependency verifies that modules in the source namespace do not
// depend on the target namespace.
func (e *Engine) CheckLayerDependency(ctx context.Context, root, source, target string) (rule.Result, error) {
	r, err := rule.New(
		fmt.Sprintf("layer:%s!>%s", source, target),
		rule.ResidesInNamespace(source),
		rule.ShouldNot,
		rule.HaveDependencyOn(target))
	if err != nil {
		return rule.Result{}, rule.Setupf("layer dependency check: %v", err)
	}
	return e.evaluateOne(ctx, root, r)
}

// CheckIsolation verifies that two namespaces are mutually isolated:
// neither may depend on the other. Violations from both directions merge
// into one result.
func (e *Engine) CheckIsolation(ctx context.Context, root, source, target string) (rule.Result, error) {
	built, err := e.BuildGraph(ctx, root)
	if err != nil {
		return rule.Result{}, err
	}

	merged := rule.Result{
		RuleID:         fmt.Sprintf("isolation:%s<!>%s", source, target),
		EmptySelection: true,
	}
	for _, pair := range [][2]string{{source, target}, {target, source}} {
		r, err := rule.New(
			fmt.Sprintf("isolation:%s!>%s", pair[0], pair[1]),
			rule.ResidesInNamespace(pair[0]),
			rule.ShouldNot,
			rule.HaveDependencyOn(pair[1]))
		if err != nil {
			return rule.Result{}, rule.Setupf("isolation check: %v", err)
		}
		res, err := rule.Evaluate(built.Graph, r)
		if err != nil {
			return rule.Result{}, err
		}
		merged.Violations = append(merged.Violations, res.Violations...)
		if !res.EmptySelection {
			merged.EmptySelection = false
		}
	}
	merged.Success = len(merged.Violations) == 0
	return merged, nil
}

// CheckNaming enforces a naming convention over the namespace. With a kind,
// every symbol whose name ends with suffix must be of that kind (a struct
// named UserRepository fails a Repository/interface check). With an empty
// kind, every symbol in the namespace must carry the suffix.
func (e *Engine) CheckNaming(ctx context.Context, root, ns, suffix string, kind scan.SymbolKind) (rule.Result, error) {
	assertion := rule.HaveNameEndingWith(suffix)
	if kind != "" {
		assertion = assertion.OfKind(kind)
	}
	r, err := rule.New(
		fmt.Sprintf("naming:%s~%s", ns, suffix),
		rule.ResidesInNamespace(ns),
		rule.Should,
		assertion)
	if err != nil {
		return rule.Result{}, rule.Setupf("naming check: %v", err)
	}
	return e.evaluateOne(ctx, root, r)
}

func (e *Engine) evaluateOne(ctx context.Context, root string, r rule.Rule) (rule.Result, error) {
	built, err := e.BuildGraph(ctx, root)
	if err != nil {
		return rule.Result{}, err
	}
	return rule.Evaluate(built.Graph, r)
}

// RunAll evaluates every rule against one shared graph build and assembles
// a report. Isolation-matrix definitions expand against the classified
// modules before evaluation. On cancellation it returns a cancelled report
// together with the context error; completed results are kept.
func (e *Engine) RunAll(ctx context.Context, root string, rules []rule.Rule, matrix []config.RuleDef) (*report.Report, error) {
	built, err := e.BuildGraph(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return report.New(nil, nil, true), err
		}
		return nil, err
	}

	all := append([]rule.Rule(nil), rules...)
	for _, def := range matrix {
		expanded, err := ExpandIsolationMatrix(built.Graph, def)
		if err != nil {
			return nil, err
		}
		all = append(all, expanded...)
	}

	var results []rule.Result
	for _, r := range all {
		if ctx.Err() != nil {
			rep := report.New(results, built.Unclassified, true)
			return rep, ctx.Err()
		}
		res, err := rule.Evaluate(built.Graph, r)
		if err != nil {
			return nil, err
		}
		if !res.Success {
			e.logger.Debug("rule failed",
				slog.String("rule", res.RuleID),
				slog.Int("violations", len(res.Violations)))
		}
		results = append(results, res)
	}

	rep := report.New(results, built.Unclassified, false)
	if e.opts.WarnEmptySelection {
		rep.WarnEmptySelections()
	}
	return rep, nil
}

// ExportGraph builds the graph for root and writes it in DOT format.
func (e *Engine) ExportGraph(ctx context.Context, root string, w io.Writer, focus string) error {
	built, err := e.BuildGraph(ctx, root)
	if err != nil {
		return err
	}
	return report.ExportGraph(w, built.Graph, focus)
}

// ExpandIsolationMatrix turns one isolation-matrix definition into concrete
// pairwise rules. The template must contain exactly one "*" segment; the
// names it captures across the graph's modules become the matrix axes, and
// every ordered pair of distinct names yields one should-not rule.
func ExpandIsolationMatrix(g *modgraph.Graph, def config.RuleDef) ([]rule.Rule, error) {
	p, err := namespace.Compile(def.Template)
	if err != nil {
		return nil, rule.Setupf("rule %s: %v", def.ID, err)
	}

	// Locate the single "*" segment and its index among the template's
	// capturing segments.
	capIndex, stars := -1, 0
	captures := 0
	for _, s := range strings.Split(strings.TrimSuffix(def.Template, "/"), "/") {
		if s == "*" {
			stars++
			capIndex = captures
		}
		if strings.ContainsAny(s, "*?[") {
			captures++
		}
	}
	if stars != 1 {
		return nil, rule.Setupf("rule %s: template must contain exactly one %q segment", def.ID, "*")
	}

	nameSet := map[string]bool{}
	for _, m := range g.Modules() {
		if m.External {
			continue
		}
		ok, caps := p.Match(m.ID)
		if !ok || capIndex >= len(caps) {
			continue
		}
		nameSet[caps[capIndex]] = true
	}
	names := make([]string, 0, len(nameSet))
	for n := range nameSet {
		names = append(names, n)
	}
	sort.Strings(names)

	var rules []rule.Rule
	for _, from := range names {
		for _, to := range names {
			if from == to {
				continue
			}
			r, err := rule.New(
				fmt.Sprintf("%s:%s!>%s", def.ID, from, to),
				rule.ResidesInNamespace(substituteCapture(def.Template, from)),
				rule.ShouldNot,
				rule.HaveDependencyOn(substituteCapture(def.Template, to)))
			if err != nil {
				return nil, rule.Setupf("rule %s: %v", def.ID, err)
			}
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// substituteCapture replaces the single "*" segment of a matrix template
// with a concrete captured name.
func substituteCapture(template, name string) string {
	segs := strings.Split(template, "/")
	for i, s := range segs {
		if s == "*" {
			segs[i] = name
			break
		}
	}
	return strings.Join(segs, "/")
}
