package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/archlens/modgraph"
	"github.com/c360studio/archlens/namespace"
	"github.com/c360studio/archlens/scan"
)

// SetupError marks an evaluation fault caused by the rule or its inputs
// rather than by the analyzed codebase. Callers distinguish it from
// violations: a setup error means the verdict is unknown, not failed.
type SetupError struct {
	msg string
}

func (e *SetupError) Error() string { return e.msg }

// Setupf builds a SetupError with fmt verbs.
func Setupf(format string, args ...any) error {
	return &SetupError{msg: fmt.Sprintf(format, args...)}
}

// Violation is one concrete breach of a rule, located as precisely as the
// assertion allows. Dependency breaches carry the edge provenance and
// target; naming breaches carry the offending symbol.
type Violation struct {
	Module string `json:"module"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Target string `json:"target,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Reason string `json:"reason"`
}

// Result is the outcome of evaluating one rule. Success is true exactly when
// Violations is empty; an empty selection succeeds vacuously and is flagged
// so callers can warn about rules that select nothing.
type Result struct {
	RuleID         string      `json:"rule_id"`
	Success        bool        `json:"success"`
	EmptySelection bool        `json:"empty_selection,omitempty"`
	Violations     []Violation `json:"violations,omitempty"`
}

// Evaluate checks one rule against a dependency graph. It never short
// circuits: every selected module is checked and every breach is reported.
// Synthetic external modules are never selected, though assertions may
// target them. A malformed rule or nil graph returns a SetupError.
func Evaluate(g *modgraph.Graph, r Rule) (Result, error) {
	if g == nil {
		return Result{}, Setupf("evaluate rule %s: nil graph", r.ID)
	}
	if err := r.Validate(); err != nil {
		return Result{}, Setupf("evaluate rule: %v", err)
	}

	sel, err := compileSelector(r.Selector)
	if err != nil {
		return Result{}, Setupf("evaluate rule %s: %v", r.ID, err)
	}
	check, err := compileAssertion(g, r.Assertion)
	if err != nil {
		return Result{}, Setupf("evaluate rule %s: %v", r.ID, err)
	}

	res := Result{RuleID: r.ID, EmptySelection: true}
	for _, m := range g.Modules() {
		if m.External || !sel(m) {
			continue
		}
		res.EmptySelection = false
		res.Violations = append(res.Violations, check(m, r.Quantifier)...)
	}

	sort.Slice(res.Violations, func(i, j int) bool {
		a, b := res.Violations[i], res.Violations[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Symbol < b.Symbol
	})
	res.Success = len(res.Violations) == 0
	return res, nil
}

type selectorFn func(*modgraph.Module) bool

func compileSelector(n SelectorNode) (selectorFn, error) {
	switch n.Op {
	case SelResidesInNamespace:
		p, err := namespace.Compile(n.Pattern)
		if err != nil {
			return nil, err
		}
		return func(m *modgraph.Module) bool {
			ok, _ := p.Match(m.ID)
			return ok
		}, nil
	case SelDeclaresNameEndingIn:
		suffix := n.Suffix
		return func(m *modgraph.Module) bool {
			for _, sym := range m.Symbols {
				if strings.HasSuffix(sym.Name, suffix) {
					return true
				}
			}
			return false
		}, nil
	case SelAnd, SelOr:
		children := make([]selectorFn, 0, len(n.Children))
		for _, c := range n.Children {
			fn, err := compileSelector(c)
			if err != nil {
				return nil, err
			}
			children = append(children, fn)
		}
		all := n.Op == SelAnd
		return func(m *modgraph.Module) bool {
			for _, fn := range children {
				if fn(m) != all {
					return !all
				}
			}
			return all
		}, nil
	default:
		return nil, fmt.Errorf("unknown selector operator %q", n.Op)
	}
}

type assertionFn func(*modgraph.Module, Quantifier) []Violation

func compileAssertion(g *modgraph.Graph, n AssertionNode) (assertionFn, error) {
	switch n.Op {
	case AssertDependencyOn:
		p, err := namespace.Compile(n.Pattern)
		if err != nil {
			return nil, err
		}
		return dependencyAssertion(g, p), nil
	case AssertNameEndingWith:
		return nameAssertion(n.Suffix, n.Kind), nil
	case AssertSymbolsOfKind:
		return kindAssertion(n.Kind), nil
	default:
		return nil, fmt.Errorf("unknown assertion operator %q", n.Op)
	}
}

func dependencyAssertion(g *modgraph.Graph, target *namespace.Pattern) assertionFn {
	return func(m *modgraph.Module, q Quantifier) []Violation {
		var out []Violation
		found := false
		for _, e := range g.EdgesFrom(m.ID) {
			ok, _ := target.Match(e.Target)
			if !ok {
				continue
			}
			found = true
			if q == ShouldNot {
				out = append(out, Violation{
					Module: m.ID,
					File:   e.File,
					Line:   e.Line,
					Target: e.Target,
					Reason: fmt.Sprintf("depends on %s", e.Target),
				})
			}
		}
		if q == Should && !found {
			out = append(out, Violation{
				Module: m.ID,
				Reason: fmt.Sprintf("missing required dependency on %s", target),
			})
		}
		return out
	}
}

// nameAssertion checks symbol names against the suffix. Without a kind the
// suffix itself is the obligation: Should requires every symbol to carry it,
// ShouldNot forbids it. With a kind the suffix selects the symbols and the
// kind becomes the obligation: a symbol whose name carries the suffix must be
// (Should) or must not be (ShouldNot) of that kind.
func nameAssertion(suffix string, kind scan.SymbolKind) assertionFn {
	if kind != "" {
		return nameKindAssertion(suffix, kind)
	}
	return func(m *modgraph.Module, q Quantifier) []Violation {
		var out []Violation
		for _, sym := range m.Symbols {
			matches := strings.HasSuffix(sym.Name, suffix)
			if matches == (q == Should) {
				continue
			}
			reason := fmt.Sprintf("%s %s does not end with %q", sym.Kind, sym.Name, suffix)
			if q == ShouldNot {
				reason = fmt.Sprintf("%s %s ends with %q", sym.Kind, sym.Name, suffix)
			}
			out = append(out, Violation{
				Module: m.ID,
				File:   sym.File,
				Line:   sym.Line,
				Symbol: sym.Name,
				Reason: reason,
			})
		}
		return out
	}
}

func nameKindAssertion(suffix string, kind scan.SymbolKind) assertionFn {
	return func(m *modgraph.Module, q Quantifier) []Violation {
		var out []Violation
		for _, sym := range m.Symbols {
			if !strings.HasSuffix(sym.Name, suffix) {
				continue
			}
			isKind := sym.Kind == kind
			if isKind == (q == Should) {
				continue
			}
			reason := fmt.Sprintf("%s is a %s, expected %s", sym.Name, sym.Kind, kind)
			if q == ShouldNot {
				reason = fmt.Sprintf("%s is a %s", sym.Name, sym.Kind)
			}
			out = append(out, Violation{
				Module: m.ID,
				File:   sym.File,
				Line:   sym.Line,
				Symbol: sym.Name,
				Reason: reason,
			})
		}
		return out
	}
}

func kindAssertion(kind scan.SymbolKind) assertionFn {
	return func(m *modgraph.Module, q Quantifier) []Violation {
		if q == Should {
			if m.HasKind(kind) {
				return nil
			}
			return []Violation{{
				Module: m.ID,
				Reason: fmt.Sprintf("declares no %s symbols", kind),
			}}
		}
		var out []Violation
		for _, sym := range m.Symbols {
			if sym.Kind != kind {
				continue
			}
			out = append(out, Violation{
				Module: m.ID,
				File:   sym.File,
				Line:   sym.Line,
				Symbol: sym.Name,
				Reason: fmt.Sprintf("declares %s %s", kind, sym.Name),
			})
		}
		return out
	}
}
