package config

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"

	"github.com/raptar-dev/raptar/internal/utils"
)

const defaultConfigText = `# raptar configuration
# Location: ~/.config/raptar/config.toml

[ignore]
# Additional ignore files to honor by default (any gitignore-format file)
# use = [".dockerignore", ".npmignore"]

# Patterns to ALWAYS exclude, regardless of other ignore files.
# Uses gitignore syntax. Use ** to match directory contents.
# Can be disabled per-run with --without-exclude-always
always_exclude = [
    # Version control internals
    ".git/",
    ".hg/",
    ".svn/",

    # IDE/Editor directories
    ".idea/**",
    ".vscode/**",
    "*.swp",

    # OS files
    ".DS_Store",
    "Thumbs.db",
]

# Patterns to ALWAYS include (force include).
# Overrides 'always_exclude' patterns and ignore files.
# CLI --with-include takes highest priority.
# always_include = ["important.log", "dist/release.tar.gz"]

[defaults]
# Default output format (tar, tar.gz, tar.bz2, tar.zst, zip)
# format = "tar.gz"

# Always create reproducible archives
# reproducible = false

# Follow symlinks by default
# dereference = false

# Preserve file ownership by default
# preserve_owner = false
`

// Init writes a commented default config file and returns its path.
func Init() (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureParent(path); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(defaultConfigText), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Edit opens the config file in $EDITOR (falling back to $VISUAL, then
// vi), creating it first when missing.
func Edit() (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if !utils.FileExists(path) {
		if _, err := Init(); err != nil {
			return "", err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("open editor %q: %w", editor, err)
	}
	return path, nil
}

// Show dumps the effective settings to w.
func Show(w io.Writer, cfg *Config) {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	fmt.Fprintln(w, bold("raptar configuration"))
	fmt.Fprintln(w)

	if path, err := Path(); err == nil {
		if utils.FileExists(path) {
			fmt.Fprintf(w, "Config file: %s\n", green(path))
		} else {
			fmt.Fprintf(w, "Config file: %s %s\n", path, dim("(not created)"))
			fmt.Fprintf(w, "  Run %s to create and edit\n", cyan("raptar --edit-config"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold("Current settings:"))

	if len(cfg.Ignore.Use) == 0 {
		fmt.Fprintf(w, "  ignore.use: %s (only .gitignore and .ignore)\n", dim("[]"))
	} else {
		fmt.Fprintf(w, "  ignore.use: %v\n", cfg.Ignore.Use)
	}

	fmt.Fprintf(w, "  ignore.always_exclude: %d patterns\n", len(cfg.Ignore.AlwaysExclude))
	for _, p := range cfg.Ignore.AlwaysExclude {
		fmt.Fprintf(w, "    %s\n", dim(p))
	}
	if len(cfg.Ignore.AlwaysInclude) == 0 {
		fmt.Fprintf(w, "  ignore.always_include: %s (no force-includes)\n", dim("[]"))
	} else {
		fmt.Fprintf(w, "  ignore.always_include: %d patterns\n", len(cfg.Ignore.AlwaysInclude))
		for _, p := range cfg.Ignore.AlwaysInclude {
			fmt.Fprintf(w, "    %s\n", dim(p))
		}
	}

	if cfg.Defaults.Format != "" {
		fmt.Fprintf(w, "  defaults.format: %s\n", cfg.Defaults.Format)
	}
	fmt.Fprintf(w, "  defaults.reproducible: %v\n", cfg.Defaults.Reproducible)
	fmt.Fprintf(w, "  defaults.dereference: %v\n", cfg.Defaults.Dereference)
	fmt.Fprintf(w, "  defaults.preserve_owner: %v\n", cfg.Defaults.PreserveOwner)
}
