// Package report renders the provenance of include/exclude decisions:
// which sources were loaded, and which rule decided each path.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/raptar-dev/raptar/internal/rules"
	"github.com/raptar-dev/raptar/internal/walk"
)

// Reporter aggregates rule sources and per-path decisions for the
// verbose report. Every decision is traceable to an origin.
type Reporter struct {
	sources []rules.SourceInfo
	set     *rules.RuleSet
}

// New builds a reporter over the loaded sources and the composed set.
func New(sources []rules.SourceInfo, set *rules.RuleSet) *Reporter {
	return &Reporter{sources: sources, set: set}
}

// WriteSources lists the rule sources actually loaded, in priority
// order, with counts of contributed rules.
func (r *Reporter) WriteSources(w io.Writer) {
	if len(r.sources) == 0 {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintln(w, bold("Rule sources:"))
	for _, s := range r.sources {
		fmt.Fprintf(w, "  [%d] %s (%d rules)\n", s.Level, cyan(s.Label), s.Rules)
	}
}

// WriteRules dumps every compiled rule grouped under its source, with
// a +/- indicator for include/exclude.
func (r *Reporter) WriteRules(w io.Writer) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	last := ""
	for _, rule := range r.set.Rules() {
		src := sourceLabel(rule.Origin)
		if src != last {
			fmt.Fprintf(w, "Rules (%s):\n", src)
			last = src
		}
		indicator := red("-")
		if rule.Action == rules.ActionInclude {
			indicator = green("+")
		}
		fmt.Fprintf(w, "  %s %s\n", indicator, rule.RawPattern)
	}
}

// WriteDecisions prints one line per excluded path, and one per path
// whose winning rule is an include rule (a negated pattern or a pattern
// from an include source), each attributed to its origin.
func (r *Reporter) WriteDecisions(w io.Writer, res *walk.Result) {
	dim := color.New(color.Faint).SprintFunc()

	if len(res.Excluded) > 0 {
		fmt.Fprintln(w, color.New(color.Bold, color.FgYellow).Sprint("Files excluded:"))
		for _, ex := range res.Excluded {
			fmt.Fprintf(w, "  %s %s\n", dim(ex.RelPath), dim("("+ex.Rule.Origin.String()+")"))
		}
	}

	first := true
	for _, e := range res.Entries {
		if e.Decision.Rule == nil || e.Decision.Action != rules.ActionInclude {
			continue
		}
		if first {
			fmt.Fprintln(w, color.New(color.Bold, color.FgGreen).Sprint("Files included by rule:"))
			first = false
		}
		fmt.Fprintf(w, "  included by %s %s\n", e.RelPath, dim("("+e.Decision.Rule.Origin.String()+")"))
	}
}

// sourceLabel collapses an origin down to its source (without the line
// number) for grouping.
func sourceLabel(o rules.Origin) string {
	switch o.Kind {
	case rules.OriginEcosystem:
		return "ecosystem " + o.Name
	case rules.OriginIgnoreFile, rules.OriginConfigUse, rules.OriginCLIIgnoreFile:
		return o.Name
	default:
		return o.String()
	}
}
