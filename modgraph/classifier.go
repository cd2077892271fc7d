// Package modgraph classifies scanned files into modules via namespace
// templates and folds their imports into an immutable dependency graph.
package modgraph

import (
	"fmt"
	"strings"

	"github.com/c360studio/archlens/namespace"
)

// ExternalPrefix marks synthetic modules for out-of-project imports.
const ExternalPrefix = "external:"

// UnmatchedReason is the diagnostic reason recorded for files no template
// claims.
const UnmatchedReason = "classification:unmatched"

// Classifier maps module ids (file directories) to the namespace template
// that owns them. When several templates match, the most specific one wins:
// the greater literal-segment count, then the longer literal prefix, then
// the earlier template in configuration order.
type Classifier struct {
	templates    []*namespace.Pattern
	modulePrefix string
}

// NewClassifier compiles the namespace templates. modulePrefix, when set,
// is stripped from import paths before resolution (e.g. a Go module path).
// A malformed template is a setup fault and fails construction.
func NewClassifier(templates []string, modulePrefix string) (*Classifier, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("no namespace templates configured")
	}
	c := &Classifier{modulePrefix: strings.TrimSuffix(modulePrefix, "/")}
	for _, raw := range templates {
		p, err := namespace.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile namespace template: %w", err)
		}
		c.templates = append(c.templates, p)
	}
	return c, nil
}

// Classify resolves the owning template for a module id. It returns the
// template's captured wildcard segments and false when no template matches.
func (c *Classifier) Classify(moduleID string) (template *namespace.Pattern, captures []string, ok bool) {
	for _, p := range c.templates {
		matched, caps := p.Match(moduleID)
		if !matched {
			continue
		}
		if template == nil || namespace.MoreSpecific(p, template) {
			template = p
			captures = caps
		}
	}
	return template, captures, template != nil
}

// StripPrefix removes the configured module prefix from a normalized import
// path. It returns the input unchanged when the prefix does not apply.
func (c *Classifier) StripPrefix(importPath string) string {
	if c.modulePrefix == "" {
		return importPath
	}
	if importPath == c.modulePrefix {
		return "."
	}
	if rest, found := strings.CutPrefix(importPath, c.modulePrefix+"/"); found {
		return rest
	}
	return importPath
}

// ExternalModuleID derives the synthetic module id for an out-of-project
// import: "external:" plus the first path segment of the normalized import.
func ExternalModuleID(normalized string) string {
	root := normalized
	if idx := strings.IndexByte(root, '/'); idx >= 0 {
		root = root[:idx]
	}
	return ExternalPrefix + root
}
