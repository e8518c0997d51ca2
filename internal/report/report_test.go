package report

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raptar-dev/raptar/internal/rules"
	"github.com/raptar-dev/raptar/internal/walk"
)

func init() {
	color.NoColor = true
}

func buildSet(t *testing.T) (*rules.RuleSet, []rules.SourceInfo) {
	t.Helper()
	rs := rules.NewRuleSet()
	require.True(t, rs.AddPattern("*.log", "", rules.ActionExclude, rules.Origin{Kind: rules.OriginIgnoreFile, Name: ".gitignore", Line: 1}))
	require.True(t, rs.AddPattern("!important.log", "", rules.ActionExclude, rules.Origin{Kind: rules.OriginIgnoreFile, Name: ".gitignore", Line: 2}))
	require.True(t, rs.AddPattern("*.bak", "", rules.ActionExclude, rules.Origin{Kind: rules.OriginCLIExclude}))
	rs.Sort()

	sources := []rules.SourceInfo{
		{Level: 2, Label: ".gitignore", Rules: 2},
		{Level: 7, Label: "--with-exclude", Rules: 1},
	}
	return rs, sources
}

func TestWriteSources(t *testing.T) {
	rs, sources := buildSet(t)
	rep := New(sources, rs)

	var sb strings.Builder
	rep.WriteSources(&sb)

	out := sb.String()
	assert.Contains(t, out, "[2] .gitignore (2 rules)")
	assert.Contains(t, out, "[7] --with-exclude (1 rules)")

	// Priority order preserved.
	assert.Less(t, strings.Index(out, ".gitignore"), strings.Index(out, "--with-exclude"))
}

func TestWriteRules(t *testing.T) {
	rs, sources := buildSet(t)
	rep := New(sources, rs)

	var sb strings.Builder
	rep.WriteRules(&sb)

	out := sb.String()
	assert.Contains(t, out, "Rules (.gitignore):")
	assert.Contains(t, out, "- *.log")
	assert.Contains(t, out, "+ !important.log")
	assert.Contains(t, out, "Rules (--with-exclude):")
	assert.Contains(t, out, "- *.bak")
}

func TestWriteDecisions(t *testing.T) {
	rs, sources := buildSet(t)
	rep := New(sources, rs)

	excluded := rs.Decide("a.log", false)
	require.NotNil(t, excluded.Rule)
	included := rs.Decide("important.log", false)
	require.NotNil(t, included.Rule)

	res := &walk.Result{
		Entries: []walk.Entry{
			{RelPath: "important.log", Kind: walk.KindFile, Decision: included},
			{RelPath: "plain.txt", Kind: walk.KindFile},
		},
		Excluded: []walk.Excluded{
			{RelPath: "a.log", Rule: excluded.Rule},
		},
	}

	var sb strings.Builder
	rep.WriteDecisions(&sb, res)

	out := sb.String()
	assert.Contains(t, out, "a.log (.gitignore:1)")
	assert.Contains(t, out, "included by important.log (.gitignore:2)")
	assert.NotContains(t, out, "plain.txt", "default includes are not reported")
}
