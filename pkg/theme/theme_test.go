package theme

import (
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
)

func TestGetBuiltins(t *testing.T) {
	for _, name := range []string{"default", "plain", "gruvbox", "solarized"} {
		if got := Get(name); got.Name != name {
			t.Errorf("Get(%q).Name = %q", name, got.Name)
		}
	}
}

func TestGetUnknownFallsBackToDefault(t *testing.T) {
	got := Get("no-such-theme")
	if got.Name != "default" {
		t.Errorf("Get fallback = %q, want %q", got.Name, "default")
	}
}

func TestGetCaseInsensitive(t *testing.T) {
	if got := Get("Gruvbox"); got.Name != "gruvbox" {
		t.Errorf("Get(%q).Name = %q, want %q", "Gruvbox", got.Name, "gruvbox")
	}
}

func TestColorMapping(t *testing.T) {
	th := Theme{
		Idle:     "#111111",
		Info:     "#222222",
		Good:     "#333333",
		Warning:  "#444444",
		Critical: "#555555",
		Error:    "#666666",
	}
	tests := []struct {
		state blocks.State
		want  string
	}{
		{blocks.StateIdle, "#111111"},
		{blocks.StateInfo, "#222222"},
		{blocks.StateGood, "#333333"},
		{blocks.StateWarning, "#444444"},
		{blocks.StateCritical, "#555555"},
		{blocks.StateError, "#666666"},
		{blocks.State(99), "#111111"},
	}
	for _, tt := range tests {
		if got := th.Color(tt.state); got != tt.want {
			t.Errorf("Color(%v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestZeroThemeEmitsNoColors(t *testing.T) {
	var th Theme
	for s := blocks.StateIdle; s <= blocks.StateError; s++ {
		if got := th.Color(s); got != "" {
			t.Errorf("zero theme Color(%v) = %q, want empty", s, got)
		}
	}
}

func TestLoadFile(t *testing.T) {
	doc := `
name = "custom"
background = "#1d2021"

[state]
idle = "#ebdbb2"
good = "#b8bb26"
critical = "#fb4934"
`
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	th, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if th.Name != "custom" {
		t.Errorf("Name = %q, want %q", th.Name, "custom")
	}
	if th.Background != "#1d2021" || th.Good != "#b8bb26" || th.Critical != "#fb4934" {
		t.Errorf("palette = %+v", th)
	}

	// The loaded theme is registered.
	if got := Get("custom"); got.Good != "#b8bb26" {
		t.Errorf("Get after LoadFile = %+v", got)
	}
}

func TestLoadFileNameDefaultsToStem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midnight.toml")
	if err := os.WriteFile(path, []byte("[state]\nidle = \"#aabbcc\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	th, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if th.Name != "midnight" {
		t.Errorf("Name = %q, want the file stem %q", th.Name, "midnight")
	}
}

func TestLoadFileRejectsBadColor(t *testing.T) {
	tests := []string{
		"[state]\nidle = \"red\"\n",
		"[state]\ngood = \"#12345\"\n",
		"background = \"#gggggg\"\n",
	}
	for _, doc := range tests {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Errorf("LoadFile accepted invalid color in %q", doc)
		}
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dusk.toml"), []byte("[state]\nidle = \"#101010\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a theme"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if got := Get("dusk"); got.Idle != "#101010" {
		t.Errorf("Get(%q) = %+v, theme from dir not registered", "dusk", got)
	}
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("state = [not toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ember.toml"), []byte("[state]\nidle = \"#202020\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadDir(dir); err != nil {
		t.Fatalf("LoadDir with one broken file = %v, want nil", err)
	}
	if got := Get("ember"); got.Idle != "#202020" {
		t.Errorf("Get(%q) = %+v, good theme not registered alongside broken file", "ember", got)
	}
}

func TestLoadDirMissingIsFine(t *testing.T) {
	if err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Errorf("LoadDir on a missing directory = %v, want nil", err)
	}
}

func TestNamesIncludesBuiltinsSorted(t *testing.T) {
	names := Names()
	seen := map[string]bool{}
	for i, n := range names {
		seen[n] = true
		if i > 0 && names[i-1] > n {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
	for _, want := range []string{"default", "plain", "gruvbox", "solarized"} {
		if !seen[want] {
			t.Errorf("Names() missing builtin %q: %v", want, names)
		}
	}
}
