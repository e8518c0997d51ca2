package rules

import (
	"log/slog"
	"sort"
	"strings"
)

// Rule is one compiled ignore rule. Immutable once built.
type Rule struct {
	// RawPattern is the pattern text as written, for diagnostics.
	RawPattern string
	// Negated is true when the pattern began with '!'. The Action field
	// already folds negation together with the source's base action.
	Negated  bool
	DirOnly  bool
	Anchored bool
	// Base is the directory relative to the archive root at which
	// matching is rooted; "" for root-level sources.
	Base   string
	Action Action
	Origin Origin

	segs      []segment
	baseParts []string
	seq       int
}

// Match reports whether the rule matches the slash-separated path
// relative to the archive root. DirOnly filtering is the evaluator's
// job; Match only applies the pattern.
func (r *Rule) Match(rel string, isDir bool) bool {
	parts := splitPath(rel)
	sub, ok := r.rebase(parts)
	if !ok {
		return false
	}
	return r.matchParts(sub)
}

// rebase strips the rule's base directory from the candidate segments.
// Returns false when the candidate is not strictly beneath the base.
func (r *Rule) rebase(parts []string) ([]string, bool) {
	if len(r.baseParts) == 0 {
		return parts, true
	}
	if len(parts) <= len(r.baseParts) {
		return nil, false
	}
	for i, bp := range r.baseParts {
		if parts[i] != bp {
			return nil, false
		}
	}
	return parts[len(r.baseParts):], true
}

func (r *Rule) matchParts(parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	if r.Anchored {
		return matchSegments(r.segs, parts, 0, 0)
	}

	// Unanchored patterns have a single segment; it floats over every
	// path segment (a match on a non-final segment means the candidate
	// lives inside a matched directory).
	s := r.segs[0]
	if s.kind == segDoubleStar {
		return true
	}
	for _, part := range parts {
		if matchOneSegment(s, part) {
			return true
		}
	}
	return false
}

// Decision is the outcome of evaluating one path. Rule is nil when no
// rule matched and the default include applied.
type Decision struct {
	Action Action
	Rule   *Rule
}

// Include reports whether the decided path stays in the archive.
func (d Decision) Include() bool {
	return d.Rule == nil || d.Action == ActionInclude
}

// RuleSet holds compiled rules ordered by ascending priority level,
// then load order. Evaluation iterates in reverse so the strongest
// matching rule is found first; the result is identical to a forward
// last-match-wins scan.
type RuleSet struct {
	rules           []*Rule
	nextSeq         int
	maxIncludeLevel int
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// AddPattern compiles one lexed pattern line and appends it. Blank and
// comment lines are ignored; malformed patterns are logged with their
// origin and dropped, never aborting the run. Callers feed lines
// through LexLine first so escaped trailing spaces survive.
func (rs *RuleSet) AddPattern(raw string, base string, action Action, origin Origin) bool {
	p := raw
	if p == "" || strings.HasPrefix(p, "#") {
		return false
	}

	negated := false
	if strings.HasPrefix(p, "!") {
		negated = true
		p = p[1:]
	}

	c, err := compilePattern(p)
	if err != nil {
		slog.Warn("dropping malformed pattern", "pattern", raw, "origin", origin.String(), "error", err)
		return false
	}

	if negated {
		if action == ActionExclude {
			action = ActionInclude
		} else {
			action = ActionExclude
		}
	}

	r := &Rule{
		RawPattern: raw,
		Negated:    negated,
		DirOnly:    c.dirOnly,
		Anchored:   c.anchored,
		Base:       base,
		Action:     action,
		Origin:     origin,
		segs:       c.segs,
		baseParts:  splitPath(base),
		seq:        rs.nextSeq,
	}
	rs.nextSeq++
	rs.rules = append(rs.rules, r)
	return true
}

// Sort establishes the total evaluation order: ascending priority
// level, then insertion order within a level. Must be called once after
// loading and before Decide.
func (rs *RuleSet) Sort() {
	sort.SliceStable(rs.rules, func(i, j int) bool {
		li, lj := rs.rules[i].Origin.Level(), rs.rules[j].Origin.Level()
		if li != lj {
			return li < lj
		}
		return rs.rules[i].seq < rs.rules[j].seq
	})
	rs.maxIncludeLevel = 0
	for _, r := range rs.rules {
		if r.Action == ActionInclude && r.Origin.Level() > rs.maxIncludeLevel {
			rs.maxIncludeLevel = r.Origin.Level()
		}
	}
}

// Decide evaluates a slash-separated path relative to the archive root.
// Rules are scanned strongest-first; the first match decides. With no
// match the default is include with a nil rule.
func (rs *RuleSet) Decide(rel string, isDir bool) Decision {
	parts := splitPath(rel)
	for i := len(rs.rules) - 1; i >= 0; i-- {
		r := rs.rules[i]
		if r.DirOnly && !isDir {
			continue
		}
		sub, ok := r.rebase(parts)
		if !ok {
			continue
		}
		if r.matchParts(sub) {
			return Decision{Action: r.Action, Rule: r}
		}
	}
	return Decision{Action: ActionInclude}
}

// MaxIncludeLevel returns the highest priority level among
// include-action rules, or 0 when the set has none. The walker uses it
// to decide whether an excluded directory must still be descended.
func (rs *RuleSet) MaxIncludeLevel() int {
	return rs.maxIncludeLevel
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

func splitPath(rel string) []string {
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}
