package theme

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// tomlTheme is the TOML-serializable representation of a Theme.
type tomlTheme struct {
	Name       string     `toml:"name"`
	Background string     `toml:"background"`
	State      tomlStates `toml:"state"`
}

type tomlStates struct {
	Idle     string `toml:"idle"`
	Info     string `toml:"info"`
	Good     string `toml:"good"`
	Warning  string `toml:"warning"`
	Critical string `toml:"critical"`
	Error    string `toml:"error"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFile reads a theme from a TOML file, registers it, and returns it.
// The theme name defaults to the file stem when the document omits one.
func LoadFile(path string) (Theme, error) {
	var tt tomlTheme
	if _, err := toml.DecodeFile(path, &tt); err != nil {
		return Theme{}, fmt.Errorf("decode theme %s: %w", path, err)
	}

	name := tt.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	t := Theme{
		Name:       name,
		Background: tt.Background,
		Idle:       tt.State.Idle,
		Info:       tt.State.Info,
		Good:       tt.State.Good,
		Warning:    tt.State.Warning,
		Critical:   tt.State.Critical,
		Error:      tt.State.Error,
	}
	if err := t.validate(); err != nil {
		return Theme{}, fmt.Errorf("theme %s: %w", path, err)
	}

	RegisterTheme(t)
	return t, nil
}

// LoadDir registers every *.toml theme under dir. Missing directories are
// fine, and an individual bad file is logged and skipped: one broken user
// theme must not take the bar down at startup.
func LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		if _, err := LoadFile(filepath.Join(dir, e.Name())); err != nil {
			slog.Warn("skipping unusable theme file", "file", e.Name(), "error", err)
		}
	}
	return nil
}

// validate rejects malformed color values early.
func (t Theme) validate() error {
	fields := map[string]string{
		"idle":       t.Idle,
		"info":       t.Info,
		"good":       t.Good,
		"warning":    t.Warning,
		"critical":   t.Critical,
		"error":      t.Error,
		"background": t.Background,
	}
	for field, v := range fields {
		if v != "" && !hexColor.MatchString(v) {
			return fmt.Errorf("state %s: invalid color %q", field, v)
		}
	}
	return nil
}
