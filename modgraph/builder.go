package modgraph

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/c360studio/archlens/scan"
)

// Unclassified records a scanned file excluded from the graph, either
// because no namespace template matched it or because extraction failed.
type Unclassified struct {
	Path   string
	Reason string
}

// UnresolvedImport records an import that points inside the project tree but
// at a directory no template claimed. Such imports produce no edge; calling
// them external would misstate their origin.
type UnresolvedImport struct {
	File   string
	Line   int
	Target string
}

// BuildResult pairs the immutable graph with the diagnostics of the build.
// Classification is total: every scanned file either belongs to exactly one
// module or appears in Unclassified, never both and never neither.
type BuildResult struct {
	Graph        *Graph
	Unclassified []Unclassified
	Unresolved   []UnresolvedImport
}

// Build folds a scan result into a dependency graph. It runs strictly after
// extraction completes and is the only writer the graph ever has.
//
// Duplicate (source, target) pairs collapse into one edge keeping the
// earliest occurrence as provenance, and self-edges are dropped. Imports
// from outside the project tree become edges to synthetic external modules;
// in-project imports that land in an unclassified directory are recorded as
// unresolved diagnostics instead.
func Build(res *scan.Result, classifier *Classifier, registry *scan.Registry) (*BuildResult, error) {
	if res == nil {
		return nil, fmt.Errorf("nil scan result")
	}
	if classifier == nil {
		return nil, fmt.Errorf("nil classifier")
	}
	if registry == nil {
		registry = scan.DefaultRegistry
	}

	g := &Graph{
		modules: make(map[string]*Module),
		edges:   make(map[string][]Edge),
	}
	out := &BuildResult{Graph: g}

	// Extraction warnings surface as diagnostics alongside unmatched files.
	for _, w := range res.Warnings {
		out.Unclassified = append(out.Unclassified, Unclassified{Path: w.Path, Reason: w.Reason})
	}

	// First pass: classify files into modules and collect symbols.
	owner := make(map[string]string, len(res.Files)) // file path → module id
	for _, f := range res.Files {
		moduleID := moduleIDFor(f.Path)
		_, captures, ok := classifier.Classify(moduleID)
		if !ok {
			out.Unclassified = append(out.Unclassified, Unclassified{Path: f.Path, Reason: UnmatchedReason})
			continue
		}

		m := g.modules[moduleID]
		if m == nil {
			m = &Module{ID: moduleID, Captures: captures}
			g.modules[moduleID] = m
		}
		m.Files = append(m.Files, f.Path)
		for _, sym := range f.Symbols {
			m.Symbols = append(m.Symbols, SymbolRef{Name: sym.Name, Kind: sym.Kind, File: f.Path, Line: sym.Line})
			if !m.HasKind(sym.Kind) {
				m.Kinds = append(m.Kinds, sym.Kind)
			}
		}
		owner[f.Path] = moduleID
	}

	// Directories covered by the scan, including ancestors. Imports landing
	// here without a classified module are in-project yet unresolved.
	projectDirs := make(map[string]bool)
	for _, f := range res.Files {
		for dir := moduleIDFor(f.Path); ; {
			projectDirs[dir] = true
			parent := path.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// Second pass: resolve imports into edges now that the module set is
	// known.
	type edgeKey struct{ source, target string }
	seen := make(map[edgeKey]bool)
	for _, f := range res.Files {
		sourceID, ok := owner[f.Path]
		if !ok {
			continue // unclassified files contribute no edges
		}
		adapter, err := registry.ForLanguage(f.Language)
		if err != nil {
			return nil, fmt.Errorf("resolve imports of %s: %w", f.Path, err)
		}
		fromDir := moduleIDFor(f.Path)
		for _, imp := range f.Imports {
			targetID, unresolved := resolveTarget(g, classifier, projectDirs, adapter, fromDir, imp.Path)
			if unresolved {
				out.Unresolved = append(out.Unresolved, UnresolvedImport{
					File:   f.Path,
					Line:   imp.Line,
					Target: targetID,
				})
				continue
			}
			if targetID == "" || targetID == sourceID {
				continue // unresolvable or self-edge
			}
			key := edgeKey{sourceID, targetID}
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, exists := g.modules[targetID]; !exists {
				g.modules[targetID] = &Module{ID: targetID, External: true}
			}
			g.edges[sourceID] = append(g.edges[sourceID], Edge{
				Source: sourceID,
				Target: targetID,
				File:   f.Path,
				Line:   imp.Line,
			})
		}
	}

	sort.Slice(out.Unclassified, func(i, j int) bool { return out.Unclassified[i].Path < out.Unclassified[j].Path })
	sort.Slice(out.Unresolved, func(i, j int) bool {
		a, b := out.Unresolved[i], out.Unresolved[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Target < b.Target
	})
	g.freeze()
	return out, nil
}

// moduleIDFor derives a file's module id: its slash directory, "." for root
// files.
func moduleIDFor(filePath string) string {
	return path.Dir(filePath)
}

// resolveTarget maps a raw import to a module id. Project-relative imports
// resolve to the longest classified module id they fall under. An import
// landing inside the project tree with no owning module is reported as
// unresolved; everything else becomes a synthetic external module.
func resolveTarget(g *Graph, classifier *Classifier, projectDirs map[string]bool, adapter scan.Adapter, fromDir, raw string) (target string, unresolved bool) {
	normalized := adapter.NormalizeImport(fromDir, raw)
	if normalized == "" {
		return "", false
	}
	stripped := strings.Trim(classifier.StripPrefix(normalized), "/")
	if stripped == "" {
		return "", false
	}

	// A stripped module prefix proves the import targets this project even
	// when the directory itself was not scanned.
	inProject := stripped != normalized

	// Longest-prefix match: "internal/user/infrastructure/db" may name the
	// module directory itself or a file inside it.
	candidate := stripped
	for {
		if _, ok := g.modules[candidate]; ok {
			return candidate, false
		}
		if projectDirs[candidate] {
			inProject = true
		}
		idx := strings.LastIndexByte(candidate, '/')
		if idx < 0 {
			break
		}
		candidate = candidate[:idx]
	}
	if inProject {
		return stripped, true
	}
	return ExternalModuleID(stripped), false
}
