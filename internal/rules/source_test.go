package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLexLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
		ok   bool
	}{
		{"plain", "*.log", "*.log", true},
		{"blank", "", "", false},
		{"spaces only", "   ", "", false},
		{"comment", "# note", "", false},
		{"crlf", "*.log\r", "*.log", true},
		{"trailing spaces stripped", "*.log   ", "*.log", true},
		{"escaped trailing space kept", `pattern\ `, `pattern\ `, true},
		{"escaped hash kept", `\#literal`, `\#literal`, true},
		{"escaped bang kept", `\!literal`, `\!literal`, true},
		{"tabs stripped", "*.log\t\t", "*.log", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := LexLine(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.out, out)
			}
		})
	}
}

func TestLoad_RootIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n!important.log\n")
	writeFile(t, root, ".ignore", "*.tmp\n")

	res := Load(LoaderOptions{Root: root})

	require.Equal(t, 3, res.Set.Len())
	assert.Len(t, res.Sources, 2)
	assert.Equal(t, ".gitignore", res.Sources[0].Label)
	assert.Equal(t, 2, res.Sources[0].Rules)
	assert.Equal(t, ".ignore", res.Sources[1].Label)

	abs, _ := filepath.Abs(filepath.Join(root, ".gitignore"))
	assert.True(t, res.LoadedFiles[abs])

	d := res.Set.Decide("x.tmp", false)
	assert.Equal(t, ActionExclude, d.Action)
	assert.Equal(t, ".ignore:1", d.Rule.Origin.String())
}

func TestLoad_BOMAndCRLF(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "\ufeff*.log\r\n# comment\r\n\r\n*.tmp\r\n")

	res := Load(LoaderOptions{Root: root})
	require.Equal(t, 2, res.Set.Len())
	assert.Equal(t, "*.log", res.Set.Rules()[0].RawPattern)
	assert.Equal(t, 1, res.Set.Rules()[0].Origin.Line)
	assert.Equal(t, 4, res.Set.Rules()[1].Origin.Line, "line numbers count blank and comment lines")
}

func TestLoad_LevelOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "!keep.pyc\n")
	extra := writeFile(t, root, ".dockerignore", "*.bak\n")

	res := Load(LoaderOptions{
		Root:          root,
		Ecosystems:    []EcosystemSource{{Name: "Python", Text: "*.pyc\n"}},
		ConfigUse:     []string{extra},
		AlwaysExclude: []string{".git/**"},
		AlwaysInclude: []string{"keep/**"},
		WithExclude:   []string{"*.log"},
		WithInclude:   []string{"important.log"},
	})

	var levels []int
	for _, r := range res.Set.Rules() {
		levels = append(levels, r.Origin.Level())
	}
	assert.Equal(t, []int{1, 2, 3, 5, 6, 7, 8}, levels)

	// Level 2 negation beats the level 1 ecosystem exclude.
	assert.Equal(t, ActionInclude, res.Set.Decide("keep.pyc", false).Action)
}

func TestLoad_WithoutIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n")
	extra := writeFile(t, root, ".dockerignore", "*.bak\n")

	res := Load(LoaderOptions{
		Root:               root,
		ConfigUse:          []string{extra},
		WithIgnoreFile:     []string{extra},
		WithoutIgnoreFiles: true,
		WithExclude:        []string{"*.tmp"},
	})

	// Only the CLI pattern survives; all file-derived sources suppressed.
	require.Equal(t, 1, res.Set.Len())
	assert.Equal(t, OriginCLIExclude, res.Set.Rules()[0].Origin.Kind)
}

func TestLoad_WithoutIgnoreFileByName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n")
	writeFile(t, root, ".ignore", "*.tmp\n")

	res := Load(LoaderOptions{
		Root:              root,
		WithoutIgnoreFile: []string{"gitignore"}, // dot-insensitive
	})

	require.Equal(t, 1, res.Set.Len())
	assert.Equal(t, ".ignore", res.Set.Rules()[0].Origin.Name)
}

func TestLoad_SuppressAlwaysPatterns(t *testing.T) {
	res := Load(LoaderOptions{
		Root:                 t.TempDir(),
		AlwaysExclude:        []string{".git/**"},
		AlwaysInclude:        []string{"keep.txt"},
		WithoutExcludeAlways: true,
		WithoutIncludeAlways: true,
	})
	assert.Equal(t, 0, res.Set.Len())
}

func TestLoad_SubdirIgnoreFileGetsBase(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	path := writeFile(t, filepath.Join(root, "sub"), ".myignore", "*.tmp\n")

	res := Load(LoaderOptions{Root: root, WithIgnoreFile: []string{path}})
	require.Equal(t, 1, res.Set.Len())
	assert.Equal(t, "sub", res.Set.Rules()[0].Base)

	assert.Equal(t, ActionExclude, res.Set.Decide("sub/x.tmp", false).Action)
	assert.True(t, res.Set.Decide("x.tmp", false).Include(), "rule is rooted at its file's directory")
}

func TestLoad_UnreadableFileSkipped(t *testing.T) {
	root := t.TempDir()
	res := Load(LoaderOptions{
		Root:      root,
		ConfigUse: []string{filepath.Join(root, "missing-ignore")},
	})
	assert.Equal(t, 0, res.Set.Len())
	assert.Empty(t, res.Sources)
}

func TestOriginLabels(t *testing.T) {
	tests := []struct {
		origin Origin
		label  string
	}{
		{Origin{Kind: OriginEcosystem, Name: "Rust", Line: 2}, "ecosystem Rust:2"},
		{Origin{Kind: OriginIgnoreFile, Name: ".gitignore", Line: 7}, ".gitignore:7"},
		{Origin{Kind: OriginConfigUse, Name: "/etc/ignore", Line: 1}, "/etc/ignore:1"},
		{Origin{Kind: OriginConfigAlwaysExclude, Index: 0}, "config always_exclude"},
		{Origin{Kind: OriginConfigAlwaysInclude, Index: 1}, "config always_include"},
		{Origin{Kind: OriginCLIExclude, Index: 0}, "--with-exclude"},
		{Origin{Kind: OriginCLIInclude, Index: 0}, "--with-include"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.label, tt.origin.String())
	}
}
