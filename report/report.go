// Package report assembles evaluation outcomes into an immutable run report
// and renders it as text, JSON, or a DOT graph export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/c360studio/archlens/modgraph"
	"github.com/c360studio/archlens/rule"
)

// Status is the terminal state of a conformance run.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Diagnostic is a non-fatal observation from the run, such as a file whose
// imports could not be extracted or one that no template claimed.
type Diagnostic struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report is the write-once outcome of one conformance run. Build it with New
// and treat it as read-only afterwards; rendering never mutates it.
type Report struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Success   bool      `json:"success"`

	// Results holds one entry per evaluated rule, in evaluation order.
	Results []rule.Result `json:"results"`

	// Diagnostics lists files excluded from analysis, sorted by path.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// EmptySelectionWarnings names rules whose selector matched no module,
	// emitted only when the run opts into the warning.
	EmptySelectionWarnings []string `json:"empty_selection_warnings,omitempty"`
}

// New assembles a report from rule results and build diagnostics. A
// cancelled run keeps whatever results completed but its status stays
// cancelled regardless of their outcomes.
func New(results []rule.Result, unclassified []modgraph.Unclassified, cancelled bool) *Report {
	r := &Report{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Results:   results,
	}
	for _, u := range unclassified {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{Path: u.Path, Reason: u.Reason})
	}

	r.Success = true
	for _, res := range results {
		if !res.Success {
			r.Success = false
			break
		}
	}
	switch {
	case cancelled:
		r.Status = StatusCancelled
		r.Success = false
	case r.Success:
		r.Status = StatusPassed
	default:
		r.Status = StatusFailed
	}
	return r
}

// WarnEmptySelections records a warning for every rule whose selector
// matched no module. Call at most once, before rendering.
func (r *Report) WarnEmptySelections() {
	for _, res := range r.Results {
		if res.EmptySelection {
			r.EmptySelectionWarnings = append(r.EmptySelectionWarnings, res.RuleID)
		}
	}
}

// ViolationCount returns the total number of violations across all rules.
func (r *Report) ViolationCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Violations)
	}
	return n
}

// Render writes the human-readable report.
func (r *Report) Render(w io.Writer) error {
	_, _ = fmt.Fprintf(w, "run %s  %s\n\n", r.RunID, r.Timestamp.Format(time.RFC3339))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Result", "Violations"})
	for _, res := range r.Results {
		verdict := "pass"
		if !res.Success {
			verdict = "FAIL"
		}
		if res.EmptySelection {
			verdict = "pass (empty selection)"
		}
		t.AppendRow(table.Row{res.RuleID, verdict, len(res.Violations)})
	}
	t.Render()

	for _, res := range r.Results {
		if len(res.Violations) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "\n%s:\n", res.RuleID)
		for _, v := range res.Violations {
			loc := v.Module
			if v.File != "" {
				loc = fmt.Sprintf("%s:%d", v.File, v.Line)
			}
			_, _ = fmt.Fprintf(w, "  %s  %s\n", loc, v.Reason)
		}
	}

	if len(r.EmptySelectionWarnings) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, id := range r.EmptySelectionWarnings {
			_, _ = fmt.Fprintf(w, "warning: rule %s selected no modules\n", id)
		}
	}
	if len(r.Diagnostics) > 0 {
		_, _ = fmt.Fprintf(w, "\n%d file(s) excluded from analysis:\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			_, _ = fmt.Fprintf(w, "  %s  (%s)\n", d.Path, d.Reason)
		}
	}

	_, _ = fmt.Fprintf(w, "\n%s: %d rule(s), %d violation(s)\n", r.Status, len(r.Results), r.ViolationCount())
	return nil
}

// RenderJSON writes the report as indented JSON.
func (r *Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
