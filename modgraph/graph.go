package modgraph

import (
	"sort"

	"github.com/c360studio/archlens/scan"
)

// SymbolRef is a top-level symbol attributed to its module, retaining file
// provenance for naming-rule violations.
type SymbolRef struct {
	Name string
	Kind scan.SymbolKind
	File string
	Line int
}

// Module is the unit rules reason about: a namespace path owning a set of
// files, their symbols, and the kind tags inferred from those symbols.
type Module struct {
	ID       string
	External bool

	// Kinds is the sorted distinct set of symbol kinds declared in the
	// module's files.
	Kinds []scan.SymbolKind

	// Files is the sorted list of file paths classified into this module.
	Files []string

	// Symbols are the module's top-level declarations sorted by
	// (file, line, name).
	Symbols []SymbolRef

	// Captures holds the wildcard segments captured by the owning
	// namespace template, enabling parameterized rule generation.
	Captures []string
}

// HasKind reports whether the module declares at least one symbol of kind k.
func (m *Module) HasKind(k scan.SymbolKind) bool {
	for _, kind := range m.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Edge is a dependency between two modules with the provenance of its first
// occurrence.
type Edge struct {
	Source string
	Target string
	File   string
	Line   int
}

// Graph is the immutable module dependency graph. It is built once per scan
// by Build and never mutated afterwards; all accessors return copies or
// read-only views, so a Graph is safe for concurrent evaluation.
type Graph struct {
	modules map[string]*Module
	order   []string          // sorted module ids
	edges   map[string][]Edge // source → edges sorted by target
}

// Modules returns all modules in id order.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.modules[id])
	}
	return out
}

// Module returns the module with the given id.
func (g *Graph) Module(id string) (*Module, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// ModuleCount returns the number of modules, external ones included.
func (g *Graph) ModuleCount() int { return len(g.modules) }

// EdgesFrom returns the outgoing edges of a module sorted by target.
func (g *Graph) EdgesFrom(id string) []Edge {
	edges := g.edges[id]
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// Edges returns every edge sorted by (source, target).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, id := range g.order {
		out = append(out, g.edges[id]...)
	}
	return out
}

// EdgeCount returns the total number of distinct edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.edges {
		n += len(edges)
	}
	return n
}

// freeze sorts every view of the graph so iteration order is a pure
// function of the tree's content.
func (g *Graph) freeze() {
	g.order = g.order[:0]
	for id := range g.modules {
		g.order = append(g.order, id)
	}
	sort.Strings(g.order)

	for _, m := range g.modules {
		sort.Strings(m.Files)
		sort.Slice(m.Symbols, func(i, j int) bool {
			a, b := m.Symbols[i], m.Symbols[j]
			if a.File != b.File {
				return a.File < b.File
			}
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Name < b.Name
		})
		sort.Slice(m.Kinds, func(i, j int) bool { return m.Kinds[i] < m.Kinds[j] })
	}

	for _, edges := range g.edges {
		sort.Slice(edges, func(i, j int) bool { return edges[i].Target < edges[j].Target })
	}
}
