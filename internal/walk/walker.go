// Package walk drives the depth-first traversal of the archive root,
// evaluating every candidate path against the composed rule set and
// producing an ordered, deterministic stream of entries.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/raptar-dev/raptar/internal/rules"
)

// EntryKind is the archive entry type.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
	KindSymlink
)

func (k EntryKind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	}
	return "file"
}

// Entry is one path selected for the archive, with the metadata
// snapshot the encoder needs and the provenance of its inclusion.
type Entry struct {
	// Path is the absolute on-disk path.
	Path string
	// RelPath is the slash-separated path relative to the archive root.
	RelPath    string
	Kind       EntryKind
	Size       int64
	Mode       fs.FileMode
	ModTime    time.Time
	UID        int
	GID        int
	LinkTarget string
	// Decision records the rule that produced the inclusion; a nil rule
	// means no rule matched and the default include applied.
	Decision rules.Decision
}

// Excluded is one path dropped from the archive, with the rule that
// decided it.
type Excluded struct {
	RelPath string
	Rule    *rules.Rule
}

// Options configures a walk.
type Options struct {
	// Root is the resolved absolute archive root.
	Root  string
	Rules *rules.RuleSet
	// Dereference follows symlinks instead of archiving them as links.
	Dereference bool
	// LoadedIgnoreFiles suppresses the nested-ignore-file warning for
	// files that were explicitly loaded.
	LoadedIgnoreFiles map[string]bool
}

// Result is the ordered entry stream plus the exclusion trail.
type Result struct {
	Entries  []Entry
	Excluded []Excluded
}

type walker struct {
	opts    Options
	res     *Result
	visited map[devIno]bool // dereference loop detection
}

// Walk traverses the tree rooted at opts.Root. Directory entries are
// evaluated in byte order, so the stream is deterministic for a given
// file system state. An unreadable root is fatal; unreadable interior
// entries are warned about and skipped.
func Walk(ctx context.Context, opts Options) (*Result, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("read archive root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive root %q is not a directory", opts.Root)
	}

	w := &walker{
		opts:    opts,
		res:     &Result{},
		visited: make(map[devIno]bool),
	}
	if opts.Dereference {
		if di, ok := statDevIno(info); ok {
			w.visited[di] = true
		}
	}

	if err := w.walkDir(ctx, opts.Root, "", nil); err != nil {
		return nil, err
	}
	return w.res, nil
}

// walkDir processes one directory. excludedBy carries the nearest
// ancestor's excluding rule when this subtree is only being descended
// to honor potential re-includes; inside such a subtree a child
// survives only when its own winning rule is an include.
func (w *walker) walkDir(ctx context.Context, dir, rel string, excludedBy *rules.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirents, err := os.ReadDir(dir) // sorted by filename, byte order
	if err != nil {
		if rel == "" {
			return fmt.Errorf("read archive root: %w", err)
		}
		slog.Warn("cannot read directory", "path", dir, "error", err)
		return nil
	}

	for _, de := range dirents {
		name := de.Name()
		childPath := filepath.Join(dir, name)
		childRel := path.Join(rel, name)

		w.warnNestedIgnoreFile(name, childPath, rel)

		var info fs.FileInfo
		if w.opts.Dereference {
			info, err = os.Stat(childPath)
			if err != nil {
				return fmt.Errorf("dereference %q: %w", childRel, err)
			}
		} else {
			info, err = os.Lstat(childPath)
			if err != nil {
				slog.Warn("cannot stat entry", "path", childRel, "error", err)
				continue
			}
		}

		isDir := info.IsDir()
		d := w.opts.Rules.Decide(childRel, isDir)

		if excludedBy != nil {
			// Inside an excluded subtree only an explicit include wins.
			if d.Rule == nil || d.Action != rules.ActionInclude {
				ex := d.Rule
				if ex == nil || ex.Action != rules.ActionExclude {
					ex = excludedBy
				}
				w.exclude(childRel, ex)
				if isDir {
					if err := w.descendExcluded(ctx, childPath, childRel, ex); err != nil {
						return err
					}
				}
				continue
			}
		}

		if !d.Include() {
			w.exclude(childRel, d.Rule)
			if isDir {
				if err := w.descendExcluded(ctx, childPath, childRel, d.Rule); err != nil {
					return err
				}
			}
			continue
		}

		if isDir && !w.enterDir(childRel, info) {
			continue
		}

		entry, ok := w.makeEntry(childPath, childRel, info, d)
		if !ok {
			continue
		}
		w.res.Entries = append(w.res.Entries, entry)

		if isDir {
			if err := w.walkDir(ctx, childPath, childRel, nil); err != nil {
				return err
			}
		}
	}

	return nil
}

// descendExcluded walks into an excluded directory when a later rule
// could re-include a descendant. The criterion: the rule set holds an
// include-action rule whose priority level is at least the excluding
// rule's level. The directory itself is never emitted.
func (w *walker) descendExcluded(ctx context.Context, dir, rel string, ex *rules.Rule) error {
	if w.opts.Rules.MaxIncludeLevel() < ex.Origin.Level() {
		return nil
	}
	if !w.enterDirPath(dir, rel) {
		return nil
	}
	return w.walkDir(ctx, dir, rel, ex)
}

func (w *walker) exclude(rel string, r *rules.Rule) {
	w.res.Excluded = append(w.res.Excluded, Excluded{RelPath: rel, Rule: r})
}

// makeEntry snapshots one included path. Unreadable symlink targets are
// warned about and the entry skipped.
func (w *walker) makeEntry(abs, rel string, info fs.FileInfo, d rules.Decision) (Entry, bool) {
	kind := KindFile
	switch {
	case info.IsDir():
		kind = KindDir
	case info.Mode()&fs.ModeSymlink != 0:
		kind = KindSymlink
	}

	e := Entry{
		Path:     abs,
		RelPath:  rel,
		Kind:     kind,
		Mode:     info.Mode(),
		ModTime:  info.ModTime(),
		Decision: d,
	}
	e.UID, e.GID = statOwner(info)

	switch kind {
	case KindFile:
		e.Size = info.Size()
	case KindSymlink:
		target, err := os.Readlink(abs)
		if err != nil {
			slog.Warn("cannot read symlink target", "path", rel, "error", err)
			return Entry{}, false
		}
		e.LinkTarget = target
	}
	return e, true
}

// enterDir guards descent under --dereference with a device/inode set;
// revisiting a directory closes a symlink loop and is skipped with a
// warning.
func (w *walker) enterDir(rel string, info fs.FileInfo) bool {
	if !w.opts.Dereference {
		return true
	}
	di, ok := statDevIno(info)
	if !ok {
		return true
	}
	if w.visited[di] {
		slog.Warn("symlink loop detected, skipping", "path", rel)
		return false
	}
	w.visited[di] = true
	return true
}

func (w *walker) enterDirPath(dir, rel string) bool {
	if !w.opts.Dereference {
		return true
	}
	info, err := os.Stat(dir)
	if err != nil {
		slog.Warn("cannot stat directory", "path", rel, "error", err)
		return false
	}
	return w.enterDir(rel, info)
}

// warnNestedIgnoreFile reports .gitignore/.ignore files in
// subdirectories; they are not auto-applied.
func (w *walker) warnNestedIgnoreFile(name, abs, parentRel string) {
	if name != ".gitignore" && name != ".ignore" {
		return
	}
	if parentRel == "" {
		return
	}
	if absPath, err := filepath.Abs(abs); err == nil && w.opts.LoadedIgnoreFiles[absPath] {
		return
	}
	slog.Warn("nested ignore file not processed", "path", path.Join(parentRel, name))
}
