// Package theme maps render-state severities to bar colors. Themes are
// registered by name; users can override built-ins with TOML files.
package theme

import (
	"sort"
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
)

// Theme is a complete color palette. All values are hex colors like
// "#a3be8c"; an empty string means "let the bar use its default foreground".
type Theme struct {
	Name string

	// Per-severity foreground colors.
	Idle     string
	Info     string
	Good     string
	Warning  string
	Critical string
	Error    string

	// Background, when set, is applied to every block record.
	Background string
}

// Color returns the foreground color for a severity.
func (t Theme) Color(s blocks.State) string {
	switch s {
	case blocks.StateInfo:
		return t.Info
	case blocks.StateGood:
		return t.Good
	case blocks.StateWarning:
		return t.Warning
	case blocks.StateCritical:
		return t.Critical
	case blocks.StateError:
		return t.Error
	default:
		return t.Idle
	}
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	registerBuiltins()
}

// Get returns a named theme, falling back to the default palette when the
// name is unknown.
func Get(name string) Theme {
	mu.RLock()
	defer mu.RUnlock()
	if t, ok := registry[strings.ToLower(name)]; ok {
		return t
	}
	return registry["default"]
}

// Names returns all registered theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterTheme adds or replaces a named theme.
func RegisterTheme(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
