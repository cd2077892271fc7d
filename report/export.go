package report

import (
	"fmt"
	"hash/fnv"
	"io"
	"sort"
	"strings"

	"github.com/c360studio/archlens/modgraph"
	"github.com/c360studio/archlens/namespace"
	"github.com/c360studio/archlens/rule"
)

// ExportGraph writes the dependency graph in DOT format. A non-empty focus
// pattern restricts the export to the matching modules plus their direct
// neighbors. Output is sorted, so identical graphs export byte-identically.
func ExportGraph(w io.Writer, g *modgraph.Graph, focus string) error {
	if g == nil {
		return rule.Setupf("export graph: nil graph")
	}

	var focusPattern *namespace.Pattern
	if focus != "" {
		p, err := namespace.Compile(focus)
		if err != nil {
			return rule.Setupf("export graph: %v", err)
		}
		focusPattern = p
	}

	focused := map[string]bool{}
	include := map[string]bool{}
	for _, m := range g.Modules() {
		if focusPattern == nil {
			include[m.ID] = true
			continue
		}
		if ok, _ := focusPattern.Match(m.ID); ok {
			focused[m.ID] = true
			include[m.ID] = true
		}
	}
	if focusPattern != nil {
		// Direct neighbors of focused modules stay visible.
		for _, e := range g.Edges() {
			if focused[e.Source] {
				include[e.Target] = true
			}
			if focused[e.Target] {
				include[e.Source] = true
			}
		}
	}

	ids := make([]string, 0, len(include))
	for id := range include {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	_, _ = fmt.Fprintln(w, "digraph modules {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	for _, id := range ids {
		m, ok := g.Module(id)
		if !ok {
			continue
		}
		attrs := ""
		if m.External {
			attrs = " style=dashed"
		}
		_, _ = fmt.Fprintf(w, "  %s [label=%s%s];\n", dotID(id), dotString(id), attrs)
	}
	for _, e := range g.Edges() {
		if !include[e.Source] || !include[e.Target] {
			continue
		}
		if focusPattern != nil && !focused[e.Source] && !focused[e.Target] {
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s -> %s;\n", dotID(e.Source), dotID(e.Target))
	}
	_, _ = fmt.Fprintln(w, "}")
	return nil
}

// dotID turns a module id into a safe DOT node identifier. Sanitizing alone
// would collide distinct ids like "a-b" and "a/b", so a hash of the original
// id keeps every node distinct.
func dotID(id string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	fmt.Fprintf(&b, "_%08x", h.Sum32())
	return b.String()
}

func dotString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
