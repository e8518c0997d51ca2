package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/raptar-dev/raptar/internal/archive"
	"github.com/raptar-dev/raptar/internal/archiver"
	"github.com/raptar-dev/raptar/internal/config"
	"github.com/raptar-dev/raptar/internal/ecosystem"
	"github.com/raptar-dev/raptar/internal/version"
)

var (
	red  = color.New(color.FgHiRed, color.Bold).SprintFunc()
	cyan = color.New(color.FgHiCyan).SprintFunc()
)

var flags struct {
	output  string
	format  string
	preview bool
	size    bool

	withExclude    []string
	withInclude    []string
	withIgnoreFile []string
	withEcosystem  []string

	withoutExcludeAlways bool
	withoutIncludeAlways bool
	withoutIgnoreFiles   bool
	withoutIgnoreFile    []string

	listEcosystems bool
	dereference    bool
	preserveOwner  bool
	reproducible   bool
	quiet          bool
	verbose        bool

	showConfig bool
	initConfig bool
	editConfig bool
}

var rootCmd = &cobra.Command{
	Use:     "raptar [path]",
	Short:   "A smart archive tool that respects .gitignore and friends",
	Version: version.Detailed(),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return &archiver.ExitError{Code: archiver.ExitUsage, Err: err}
		}

		cmd.SilenceUsage = true

		if handled, err := runConfigCommands(cfg); handled || err != nil {
			return err
		}
		if flags.listEcosystems {
			printEcosystemList()
			return nil
		}

		applyConfigDefaults(cmd, cfg)

		format, err := archive.ParseFormat(flags.format)
		if err != nil {
			return archiver.Usagef("%v", err)
		}

		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		if !flags.quiet && !flags.preview && !config.Exists() {
			fmt.Fprintf(os.Stderr, "Running with defaults. Use %s to customize.\n", cyan("--edit-config"))
		}

		opts := archiver.Options{
			Path:                 path,
			Output:               flags.output,
			Format:               format,
			Preview:              flags.preview,
			Size:                 flags.size,
			WithExclude:          flags.withExclude,
			WithInclude:          flags.withInclude,
			WithIgnoreFile:       flags.withIgnoreFile,
			WithEcosystem:        flags.withEcosystem,
			WithoutIgnoreFile:    flags.withoutIgnoreFile,
			WithoutIgnoreFiles:   flags.withoutIgnoreFiles,
			WithoutExcludeAlways: flags.withoutExcludeAlways,
			WithoutIncludeAlways: flags.withoutIncludeAlways,
			Dereference:          flags.dereference,
			PreserveOwner:        flags.preserveOwner,
			Reproducible:         flags.reproducible,
			Quiet:                flags.quiet,
			Verbose:              flags.verbose,
		}
		return archiver.Run(cmd.Context(), opts, cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.SortFlags = false

	f.StringVarP(&flags.output, "output", "o", "", "Output file (defaults to directory name with appropriate extension)")
	f.StringVarP(&flags.format, "format", "f", "", "Output format: tar, tar.gz, tar.bz2, tar.zst, zip")
	f.BoolVarP(&flags.preview, "preview", "p", false, "Show what would be included without creating an archive")
	f.BoolVarP(&flags.size, "size", "s", false, "Show size estimation")

	f.StringArrayVar(&flags.withExclude, "with-exclude", nil, "Add exclude pattern (gitignore syntax, repeatable)")
	f.StringArrayVar(&flags.withInclude, "with-include", nil, "Add include pattern, overrides exclusions (repeatable)")
	f.StringArrayVar(&flags.withIgnoreFile, "with-ignorefile", nil, "Add gitignore-format file to honor (repeatable)")
	f.StringArrayVar(&flags.withEcosystem, "with-ecosystem", nil, "Use ecosystem gitignore template, e.g. Rust, Python, Node (repeatable)")

	f.BoolVar(&flags.withoutExcludeAlways, "without-exclude-always", false, "Disable config always_exclude patterns")
	f.BoolVar(&flags.withoutIncludeAlways, "without-include-always", false, "Disable config always_include patterns")
	f.BoolVar(&flags.withoutIgnoreFiles, "without-ignorefiles", false, "Disable all ignore files (.gitignore, .ignore, etc.)")
	f.StringArrayVar(&flags.withoutIgnoreFile, "without-ignorefile", nil, "Disable a specific ignore file by name (repeatable)")

	f.BoolVar(&flags.listEcosystems, "list-ecosystems", false, "List available ecosystem templates")
	f.BoolVar(&flags.dereference, "dereference", false, "Follow symlinks instead of archiving them as links")
	f.BoolVar(&flags.preserveOwner, "preserve-owner", false, "Preserve file ownership (uid/gid)")
	f.BoolVarP(&flags.reproducible, "reproducible", "r", false, "Deterministic ordering and zero timestamps")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "Minimal output")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Show rules and exclusion reasons")

	f.BoolVar(&flags.showConfig, "show-config", false, "Show config file location and current settings")
	f.BoolVar(&flags.initConfig, "init-config", false, "Initialize config file with defaults")
	f.BoolVar(&flags.editConfig, "edit-config", false, "Open config file in $EDITOR (creates if missing)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &archiver.ExitError{Code: archiver.ExitUsage, Err: err}
	})
	rootCmd.SilenceErrors = true
}

// applyConfigDefaults fills flag values the CLI left unset from the
// config's [defaults] section.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config) {
	if flags.format == "" {
		flags.format = cfg.Defaults.Format
		if flags.format == "" {
			flags.format = archive.DefaultFormat.Extension()
		}
	}
	if cfg.Defaults.Reproducible && !cmd.Flags().Changed("reproducible") {
		flags.reproducible = true
	}
	if cfg.Defaults.Dereference && !cmd.Flags().Changed("dereference") {
		flags.dereference = true
	}
	if cfg.Defaults.PreserveOwner && !cmd.Flags().Changed("preserve-owner") {
		flags.preserveOwner = true
	}
}

// runConfigCommands handles --init-config, --edit-config and
// --show-config. Returns handled=true when one of them ran.
func runConfigCommands(cfg *config.Config) (bool, error) {
	green := color.New(color.FgGreen).SprintFunc()

	switch {
	case flags.initConfig:
		path, err := config.Init()
		if err != nil {
			return true, err
		}
		fmt.Printf("Created config file: %s\n", green(path))
		return true, nil

	case flags.editConfig:
		path, err := config.Edit()
		if err != nil {
			return true, err
		}
		fmt.Printf("Opened: %s\n", green(path))
		return true, nil

	case flags.showConfig:
		config.Show(os.Stdout, cfg)
		return true, nil
	}

	return false, nil
}

func printEcosystemList() {
	names := ecosystem.Names()
	if len(names) == 0 {
		fmt.Println("No ecosystem templates available.")
		return
	}

	fmt.Println(color.New(color.Bold).Sprint("Available ecosystem templates:"))
	fmt.Println()
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println()
	fmt.Printf("%d ecosystems available. Use %s to apply.\n", len(names), cyan("--with-ecosystem <NAME>"))
}

func main() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(archiver.ExitCode(err))
	}
}
