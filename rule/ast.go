// Package rule defines the declarative conformance rule model and its
// evaluator. A rule pairs a module selector with an assertion under a
// should or should-not quantifier; evaluation against a dependency graph
// yields a deterministic list of violations.
package rule

import (
	"fmt"

	"github.com/c360studio/archlens/namespace"
	"github.com/c360studio/archlens/scan"
)

// Quantifier states the expected polarity of an assertion over the selected
// modules.
type Quantifier string

const (
	// Should requires the assertion to hold for every selected module.
	Should Quantifier = "should"

	// ShouldNot requires the assertion to fail for every selected module.
	ShouldNot Quantifier = "should_not"
)

// Selector operators.
const (
	SelResidesInNamespace    = "resides_in_namespace"
	SelDeclaresNameEndingIn  = "declares_name_ending_with"
	SelAnd                   = "and"
	SelOr                    = "or"
)

// Assertion operators.
const (
	AssertDependencyOn   = "have_dependency_on"
	AssertNameEndingWith = "have_name_ending_with"
	AssertSymbolsOfKind  = "have_symbols_of_kind"
)

// SelectorNode is one node of a selector expression tree. Leaves carry a
// namespace pattern or a name suffix; And/Or nodes carry children.
type SelectorNode struct {
	Op       string
	Pattern  string
	Suffix   string
	Children []SelectorNode
}

// AssertionNode describes the condition checked against each selected
// module. On name assertions a set Kind shifts the obligation from the
// suffix to the kind: symbols carrying the suffix must be of that kind.
type AssertionNode struct {
	Op      string
	Pattern string
	Suffix  string
	Kind    scan.SymbolKind
}

// OfKind sets the kind a name assertion requires of suffix-matching symbols.
func (a AssertionNode) OfKind(kind scan.SymbolKind) AssertionNode {
	a.Kind = kind
	return a
}

// Rule is a complete conformance rule. Build rules through the package
// constructors so patterns are validated eagerly.
type Rule struct {
	ID         string
	Selector   SelectorNode
	Assertion  AssertionNode
	Quantifier Quantifier
}

// Validate checks the rule for construction faults: missing id, unknown
// operators, malformed namespace patterns, and empty operands. Evaluation
// reports the same faults as setup errors when handed an unvalidated rule.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has no id")
	}
	if r.Quantifier != Should && r.Quantifier != ShouldNot {
		return fmt.Errorf("rule %s: unknown quantifier %q", r.ID, r.Quantifier)
	}
	if err := validateSelector(r.Selector); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	if err := validateAssertion(r.Assertion); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}

func validateSelector(n SelectorNode) error {
	switch n.Op {
	case SelResidesInNamespace:
		if _, err := namespace.Compile(n.Pattern); err != nil {
			return fmt.Errorf("selector: %w", err)
		}
	case SelDeclaresNameEndingIn:
		if n.Suffix == "" {
			return fmt.Errorf("selector: empty name suffix")
		}
	case SelAnd, SelOr:
		if len(n.Children) == 0 {
			return fmt.Errorf("selector: %s with no operands", n.Op)
		}
		for _, child := range n.Children {
			if err := validateSelector(child); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("selector: unknown operator %q", n.Op)
	}
	return nil
}

func validateAssertion(n AssertionNode) error {
	switch n.Op {
	case AssertDependencyOn:
		if _, err := namespace.Compile(n.Pattern); err != nil {
			return fmt.Errorf("assertion: %w", err)
		}
	case AssertNameEndingWith:
		if n.Suffix == "" {
			return fmt.Errorf("assertion: empty name suffix")
		}
		if n.Kind != "" {
			if _, err := scan.ParseKind(string(n.Kind)); err != nil {
				return fmt.Errorf("assertion: %w", err)
			}
		}
	case AssertSymbolsOfKind:
		if _, err := scan.ParseKind(string(n.Kind)); err != nil {
			return fmt.Errorf("assertion: %w", err)
		}
	default:
		return fmt.Errorf("assertion: unknown operator %q", n.Op)
	}
	return nil
}
