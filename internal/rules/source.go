package rules

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// EcosystemSource is one resolved ecosystem template: a name and its
// embedded gitignore-syntax text.
type EcosystemSource struct {
	Name string
	Text string
}

// LoaderOptions carries everything the source loader needs: the
// resolved archive root, the configuration record's pattern lists, and
// the CLI argument record. Ignore-file paths are already resolved by
// the caller.
type LoaderOptions struct {
	Root string

	Ecosystems     []EcosystemSource // level 1, in --with-ecosystem order
	ConfigUse      []string          // level 3 file paths
	WithIgnoreFile []string          // level 4 file paths

	WithoutIgnoreFile    []string
	WithoutIgnoreFiles   bool
	WithoutExcludeAlways bool
	WithoutIncludeAlways bool

	AlwaysExclude []string // level 5 patterns
	AlwaysInclude []string // level 6 patterns
	WithExclude   []string // level 7 patterns
	WithInclude   []string // level 8 patterns
}

// SourceInfo summarizes one loaded rule source for the verbose report.
type SourceInfo struct {
	Level int
	Label string
	Rules int
}

// LoadResult is the composed rule set plus bookkeeping for the reporter
// and the walker's nested-ignore-file warning.
type LoadResult struct {
	Set     *RuleSet
	Sources []SourceInfo
	// LoadedFiles holds absolute paths of every ignore file that was
	// actually parsed, so the walker does not warn about them.
	LoadedFiles map[string]bool
}

// Load collects rule text from all eight precedence levels in order and
// compiles it into a sorted rule set.
func Load(opts LoaderOptions) *LoadResult {
	res := &LoadResult{
		Set:         NewRuleSet(),
		LoadedFiles: make(map[string]bool),
	}

	// Level 1: ecosystem templates, in argument order.
	for _, eco := range opts.Ecosystems {
		n := res.addText(eco.Text, "", Origin{Kind: OriginEcosystem, Name: eco.Name})
		res.addSource(1, "ecosystem "+eco.Name, n)
	}

	// Level 2: root .gitignore and .ignore, in that order.
	if !opts.WithoutIgnoreFiles {
		for _, name := range []string{".gitignore", ".ignore"} {
			if suppressed(name, opts.WithoutIgnoreFile) {
				continue
			}
			path := filepath.Join(opts.Root, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			res.loadFile(path, name, opts, OriginIgnoreFile, 2)
		}

		// Level 3: config ignore.use files.
		for _, path := range opts.ConfigUse {
			if suppressed(filepath.Base(path), opts.WithoutIgnoreFile) {
				continue
			}
			res.loadFile(path, path, opts, OriginConfigUse, 3)
		}

		// Level 4: --with-ignorefile files.
		for _, path := range opts.WithIgnoreFile {
			if suppressed(filepath.Base(path), opts.WithoutIgnoreFile) {
				continue
			}
			res.loadFile(path, path, opts, OriginCLIIgnoreFile, 4)
		}
	}

	// Levels 5-8: bare pattern lists.
	if !opts.WithoutExcludeAlways {
		n := res.addPatterns(opts.AlwaysExclude, ActionExclude, OriginConfigAlwaysExclude)
		if len(opts.AlwaysExclude) > 0 {
			res.addSource(5, "config always_exclude", n)
		}
	}
	if !opts.WithoutIncludeAlways {
		n := res.addPatterns(opts.AlwaysInclude, ActionInclude, OriginConfigAlwaysInclude)
		if len(opts.AlwaysInclude) > 0 {
			res.addSource(6, "config always_include", n)
		}
	}
	n := res.addPatterns(opts.WithExclude, ActionExclude, OriginCLIExclude)
	if len(opts.WithExclude) > 0 {
		res.addSource(7, "--with-exclude", n)
	}
	n = res.addPatterns(opts.WithInclude, ActionInclude, OriginCLIInclude)
	if len(opts.WithInclude) > 0 {
		res.addSource(8, "--with-include", n)
	}

	res.Set.Sort()
	return res
}

// loadFile reads one ignore file and adds its rules. Unreadable files
// are warned about and skipped; the run continues.
func (res *LoadResult) loadFile(path, label string, opts LoaderOptions, kind OriginKind, level int) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("cannot read ignore file", "path", path, "error", err)
		return
	}

	base := fileBase(path, opts.Root)
	n := 0
	for i, line := range splitLines(string(data)) {
		p, ok := LexLine(line)
		if !ok {
			continue
		}
		origin := Origin{Kind: kind, Name: label, Line: i + 1}
		if res.Set.AddPattern(p, base, ActionExclude, origin) {
			n++
		}
	}

	if abs, err := filepath.Abs(path); err == nil {
		res.LoadedFiles[abs] = true
	}
	res.addSource(level, label, n)
}

// addText adds rules from an in-memory gitignore blob (ecosystems).
func (res *LoadResult) addText(text, base string, origin Origin) int {
	n := 0
	for i, line := range splitLines(text) {
		p, ok := LexLine(line)
		if !ok {
			continue
		}
		origin.Line = i + 1
		if res.Set.AddPattern(p, base, ActionExclude, origin) {
			n++
		}
	}
	return n
}

func (res *LoadResult) addPatterns(patterns []string, action Action, kind OriginKind) int {
	n := 0
	for i, raw := range patterns {
		p, ok := LexLine(raw)
		if !ok {
			continue
		}
		if res.Set.AddPattern(p, "", action, Origin{Kind: kind, Index: i}) {
			n++
		}
	}
	return n
}

func (res *LoadResult) addSource(level int, label string, rules int) {
	res.Sources = append(res.Sources, SourceInfo{Level: level, Label: label, Rules: rules})
}

// fileBase computes a rule base directory for an ignore file: the
// file's directory relative to the archive root when it lives inside
// the tree, "" otherwise (patterns then root at the archive root).
func fileBase(path, root string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absRoot, filepath.Dir(abs))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

// suppressed matches --without-ignorefile names against a source file's
// basename, tolerating a missing leading dot on either side.
func suppressed(base string, without []string) bool {
	for _, w := range without {
		if w == base || "."+w == base || w == "."+base {
			return true
		}
	}
	return false
}

// LexLine applies the gitignore line lexing shared by every source:
// CR stripping, blank and comment dropping, and trailing-space removal
// unless the last space is backslash-escaped. Leading "\!" and "\#"
// escapes are preserved for the pattern compiler.
func LexLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	line = trimTrailingSpaces(line)
	if line == "" || line[0] == '#' {
		return "", false
	}
	return line, true
}

func trimTrailingSpaces(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		if len(s) >= 2 && s[len(s)-2] == '\\' {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// splitLines splits a rule blob into lines, stripping a UTF-8 BOM at
// the head. CR handling happens per line in LexLine.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
