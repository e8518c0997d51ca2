// Package archiver wires the pipeline together: rule loading, the
// walk, provenance reporting and archive encoding.
package archiver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/raptar-dev/raptar/internal/archive"
	"github.com/raptar-dev/raptar/internal/config"
	"github.com/raptar-dev/raptar/internal/ecosystem"
	"github.com/raptar-dev/raptar/internal/report"
	"github.com/raptar-dev/raptar/internal/rules"
	"github.com/raptar-dev/raptar/internal/utils"
	"github.com/raptar-dev/raptar/internal/walk"
)

// Options is the CLI argument record.
type Options struct {
	// Path is the archive root (default: current directory).
	Path   string
	Output string
	Format archive.Format

	Preview bool
	Size    bool

	WithExclude    []string
	WithInclude    []string
	WithIgnoreFile []string
	WithEcosystem  []string

	WithoutIgnoreFile    []string
	WithoutIgnoreFiles   bool
	WithoutExcludeAlways bool
	WithoutIncludeAlways bool

	Dereference   bool
	PreserveOwner bool
	Reproducible  bool
	Quiet         bool
	Verbose       bool
}

// Run executes the full pipeline: load rules, walk, then preview or
// encode.
func Run(ctx context.Context, opts Options, cfg *config.Config) error {
	root, err := utils.ResolvePath(opts.Path)
	if err != nil {
		return Usagef("resolve path %q: %v", opts.Path, err)
	}
	if !utils.DirExists(root) {
		return Usagef("path does not exist or is not a directory: %s", opts.Path)
	}
	if _, err := os.ReadDir(root); err != nil {
		return Usagef("cannot read archive root %s: %v", opts.Path, err)
	}

	res, rep, err := loadRules(root, opts, cfg)
	if err != nil {
		return err
	}

	if opts.Verbose {
		rep.WriteSources(os.Stdout)
		rep.WriteRules(os.Stdout)
	}

	walkRes, err := walk.Walk(ctx, walk.Options{
		Root:              root,
		Rules:             res.Set,
		Dereference:       opts.Dereference,
		LoadedIgnoreFiles: res.LoadedFiles,
	})
	if err != nil {
		return err
	}

	var output string
	if !opts.Preview {
		output = outputPath(root, opts)
		excludeOutputFile(walkRes, root, output, opts.Quiet)
	}

	if len(walkRes.Entries) == 0 {
		fmt.Println(color.YellowString("No files to archive!"))
		return nil
	}

	if opts.Preview || opts.Size {
		writePreview(os.Stdout, walkRes, opts)
		if opts.Verbose {
			rep.WriteDecisions(os.Stdout, walkRes)
		}
		if opts.Preview {
			return nil
		}
	} else if opts.Verbose {
		rep.WriteDecisions(os.Stdout, walkRes)
	}

	if !opts.Quiet {
		fmt.Printf("Creating %s with %d files...\n", color.CyanString(output), len(walkRes.Entries))
	}

	if err := archive.Create(ctx, output, opts.Format, walkRes.Entries, archive.WriteOptions{
		Reproducible:  opts.Reproducible,
		PreserveOwner: opts.PreserveOwner,
	}); err != nil {
		return err
	}

	if !opts.Quiet {
		writeSummary(os.Stdout, output, walkRes.Entries)
	}
	return nil
}

// loadRules resolves every rule source and composes the rule set. An
// unknown ecosystem name is a configuration error.
func loadRules(root string, opts Options, cfg *config.Config) (*rules.LoadResult, *report.Reporter, error) {
	var ecosystems []rules.EcosystemSource
	for _, name := range opts.WithEcosystem {
		text, err := ecosystem.Lookup(name)
		if err != nil {
			return nil, nil, &ExitError{Code: ExitUsage, Err: err}
		}
		ecosystems = append(ecosystems, rules.EcosystemSource{Name: name, Text: text})
	}

	configUse := resolveIgnoreFiles(root, cfg.Ignore.Use, "configured ignore file")
	cliFiles := resolveIgnoreFiles(root, opts.WithIgnoreFile, "ignore file")

	res := rules.Load(rules.LoaderOptions{
		Root:                 root,
		Ecosystems:           ecosystems,
		ConfigUse:            configUse,
		WithIgnoreFile:       cliFiles,
		WithoutIgnoreFile:    opts.WithoutIgnoreFile,
		WithoutIgnoreFiles:   opts.WithoutIgnoreFiles,
		WithoutExcludeAlways: opts.WithoutExcludeAlways,
		WithoutIncludeAlways: opts.WithoutIncludeAlways,
		AlwaysExclude:        cfg.Ignore.AlwaysExclude,
		AlwaysInclude:        cfg.Ignore.AlwaysInclude,
		WithExclude:          opts.WithExclude,
		WithInclude:          opts.WithInclude,
	})

	return res, report.New(res.Sources, res.Set), nil
}

func resolveIgnoreFiles(root string, requested []string, what string) []string {
	search := config.FindIgnoreFiles(root, requested)
	for _, name := range search.NotFound {
		slog.Warn(what+" not found", "name", name)
	}
	return search.Found
}

// outputPath determines the archive file name: -o when given, otherwise
// the root directory's name plus the format extension.
func outputPath(root string, opts Options) string {
	if opts.Output != "" {
		return opts.Output
	}
	name := filepath.Base(root)
	if name == "/" || name == "." {
		name = "archive"
	}
	return name + "." + opts.Format.Extension()
}

// excludeOutputFile drops the output archive itself from the entry
// stream, so archiving into the tree never feeds the archive to itself.
func excludeOutputFile(res *walk.Result, root, output string, quiet bool) {
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return
	}
	kept := res.Entries[:0]
	removed := false
	for _, e := range res.Entries {
		if e.Path == absOutput {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	res.Entries = kept
	if removed && !quiet {
		slog.Info("excluding output file from archive", "path", output)
	}
}
