// Package config loads the raptar configuration record from
// ~/.config/raptar/config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

// DefaultAlwaysExclude holds exclusions that almost nobody wants in an
// archive; they apply when no config file overrides them. Directory
// patterns so the trees are pruned whole.
var DefaultAlwaysExclude = []string{".git/", ".hg/", ".svn/"}

// Config is the plain configuration record the pipeline consumes.
type Config struct {
	Ignore   IgnoreConfig   `mapstructure:"ignore"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// IgnoreConfig configures persistent rule sources.
type IgnoreConfig struct {
	// Use lists additional gitignore-format files, loaded at precedence
	// level 3. Entries may be names (dot-insensitive), paths, or globs.
	Use []string `mapstructure:"use"`
	// AlwaysExclude patterns apply at level 5 regardless of ignore files.
	AlwaysExclude []string `mapstructure:"always_exclude"`
	// AlwaysInclude patterns apply at level 6, overriding AlwaysExclude.
	AlwaysInclude []string `mapstructure:"always_include"`
}

// DefaultsConfig supplies flag defaults when the CLI omits them.
type DefaultsConfig struct {
	Format        string `mapstructure:"format"`
	Reproducible  bool   `mapstructure:"reproducible"`
	Dereference   bool   `mapstructure:"dereference"`
	PreserveOwner bool   `mapstructure:"preserve_owner"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ignore: IgnoreConfig{
			AlwaysExclude: append([]string(nil), DefaultAlwaysExclude...),
		},
	}
}

// Path returns the config file location. Always
// ~/.config/raptar/config.toml for consistency across platforms.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "raptar", "config.toml"), nil
}

// Exists reports whether a config file is present.
func Exists() bool {
	path, err := Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config file. A missing file yields the defaults; an
// unparseable file is a configuration error and the caller exits with
// code 2 before writing anything.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file through viper.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config read %q: %w", path, err)
	}

	cfg := Default()
	if v.IsSet("ignore.always_exclude") {
		cfg.Ignore.AlwaysExclude = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config parse %q: %w", path, err)
	}
	return cfg, nil
}

// IgnoreFileSearch is the result of resolving requested ignore files.
type IgnoreFileSearch struct {
	Found    []string
	NotFound []string
}

// FindIgnoreFiles resolves requested ignore file names against the
// archive root. Absolute paths are taken as-is; entries containing a
// separator are tried relative to the working directory, then the root;
// glob entries are expanded beneath the root; bare names get a leading
// dot when missing and are looked up in the root.
func FindIgnoreFiles(root string, requested []string) IgnoreFileSearch {
	var search IgnoreFileSearch

	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if strings.ContainsAny(name, "*?[") {
			matches, err := doublestar.Glob(os.DirFS(root), filepath.ToSlash(name))
			if err != nil || len(matches) == 0 {
				search.NotFound = append(search.NotFound, name)
				continue
			}
			for _, m := range matches {
				search.Found = append(search.Found, filepath.Join(root, filepath.FromSlash(m)))
			}
			continue
		}

		if filepath.IsAbs(name) {
			if fileExists(name) {
				search.Found = append(search.Found, name)
			} else {
				search.NotFound = append(search.NotFound, name)
			}
			continue
		}

		if strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/') {
			if fileExists(name) {
				search.Found = append(search.Found, name)
				continue
			}
			rooted := filepath.Join(root, name)
			if fileExists(rooted) {
				search.Found = append(search.Found, rooted)
			} else {
				search.NotFound = append(search.NotFound, name)
			}
			continue
		}

		filename := name
		if !strings.HasPrefix(filename, ".") {
			filename = "." + filename
		}
		rooted := filepath.Join(root, filename)
		if fileExists(rooted) {
			search.Found = append(search.Found, rooted)
		} else {
			search.NotFound = append(search.NotFound, name)
		}
	}

	return search
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
