package rule

import (
	"github.com/c360studio/archlens/scan"
)

// ResidesInNamespace selects modules whose id matches the namespace pattern.
func ResidesInNamespace(pattern string) SelectorNode {
	return SelectorNode{Op: SelResidesInNamespace, Pattern: pattern}
}

// DeclaresNameEndingWith selects modules declaring at least one symbol whose
// name ends with suffix.
func DeclaresNameEndingWith(suffix string) SelectorNode {
	return SelectorNode{Op: SelDeclaresNameEndingIn, Suffix: suffix}
}

// And selects modules matching every child selector.
func And(children ...SelectorNode) SelectorNode {
	return SelectorNode{Op: SelAnd, Children: children}
}

// Or selects modules matching at least one child selector.
func Or(children ...SelectorNode) SelectorNode {
	return SelectorNode{Op: SelOr, Children: children}
}

// HaveDependencyOn asserts an outgoing edge to a module matching the
// namespace pattern.
func HaveDependencyOn(pattern string) AssertionNode {
	return AssertionNode{Op: AssertDependencyOn, Pattern: pattern}
}

// HaveNameEndingWith asserts that the module's symbols end with suffix.
// Chaining OfKind changes the obligation: the suffix then selects the
// symbols, and each selected symbol must be of that kind.
func HaveNameEndingWith(suffix string) AssertionNode {
	return AssertionNode{Op: AssertNameEndingWith, Suffix: suffix}
}

// HaveSymbolsOfKind asserts that the module declares at least one symbol of
// the given kind.
func HaveSymbolsOfKind(kind scan.SymbolKind) AssertionNode {
	return AssertionNode{Op: AssertSymbolsOfKind, Kind: kind}
}

// New builds a validated rule.
func New(id string, selector SelectorNode, quantifier Quantifier, assertion AssertionNode) (Rule, error) {
	r := Rule{ID: id, Selector: selector, Assertion: assertion, Quantifier: quantifier}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// MustNew is New, panicking on error. For rules known valid at compile time.
func MustNew(id string, selector SelectorNode, quantifier Quantifier, assertion AssertionNode) Rule {
	r, err := New(id, selector, quantifier, assertion)
	if err != nil {
		panic(err)
	}
	return r
}
