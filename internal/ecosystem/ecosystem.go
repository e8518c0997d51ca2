// Package ecosystem bundles gitignore templates for common project
// types into the binary. Templates are data, not code: the rule engine
// treats them like any other gitignore source, at the lowest precedence
// level.
package ecosystem

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed templates/*.gitignore
var templates embed.FS

// ErrUnknown wraps an unrecognized ecosystem name.
type ErrUnknown struct {
	Name string
}

func (e *ErrUnknown) Error() string {
	return fmt.Sprintf("unknown ecosystem: %s (run --list-ecosystems to see available options)", e.Name)
}

var byName map[string]string // lower(name) -> template text

func init() {
	byName = make(map[string]string)
	entries, err := templates.ReadDir("templates")
	if err != nil {
		return
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".gitignore")
		data, err := templates.ReadFile("templates/" + e.Name())
		if err != nil {
			continue
		}
		byName[strings.ToLower(name)] = string(data)
	}
}

// Lookup returns the template text for an ecosystem name,
// case-insensitively.
func Lookup(name string) (string, error) {
	text, ok := byName[strings.ToLower(name)]
	if !ok {
		return "", &ErrUnknown{Name: name}
	}
	return text, nil
}

// Names returns all bundled ecosystem names, sorted case-insensitively.
func Names() []string {
	entries, err := templates.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".gitignore"))
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}
