// Package config provides TOML/YAML configuration for bar-pulse. The order
// of [[block]] tables in the file is the display order of the bar; each
// block's position in the slice becomes its fixed slot for the process
// lifetime.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration document.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Theme   ThemeConfig   `toml:"theme" yaml:"theme"`
	Blocks  []Block       `toml:"block" yaml:"blocks"`
}

// GeneralConfig holds engine-wide settings.
type GeneralConfig struct {
	// Debounce is how long the aggregator coalesces updates before a flush.
	Debounce Duration `toml:"debounce" yaml:"debounce"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// UpdateBuffer is the capacity of the shared updates channel.
	UpdateBuffer int `toml:"update_buffer" yaml:"update_buffer"`
}

// ThemeConfig selects the color palette.
type ThemeConfig struct {
	// Name is a built-in theme name, or the stem of a TOML file under
	// the themes config directory.
	Name string `toml:"name" yaml:"name"`

	// File, when set, loads the theme from an explicit TOML path and takes
	// precedence over Name.
	File string `toml:"file" yaml:"file"`
}

// Block configures one block instance. Kind selects the implementation; the
// remaining fields are a flat superset of all per-kind settings, and each
// implementation reads only the ones it understands.
type Block struct {
	Kind string `toml:"kind" yaml:"kind"`

	// Name overrides the block's reported name (defaults to Kind). Click
	// events are matched by instance tag first, then by name.
	Name string `toml:"name" yaml:"name"`

	// Interval is the polling cadence for timer-driven blocks.
	Interval Duration `toml:"interval" yaml:"interval"`

	// Format / FormatAlt are display templates for blocks that take one
	// (clock layout strings, script output wrappers).
	Format    string `toml:"format" yaml:"format"`
	FormatAlt string `toml:"format_alt" yaml:"format_alt"`

	// Device names the hardware unit: battery ("BAT0"), backlight
	// ("intel_backlight"), or ALSA device ("default").
	Device string `toml:"device" yaml:"device"`

	// Driver picks the event source for blocks that have more than one
	// (battery: "sysfs" or "upower").
	Driver string `toml:"driver" yaml:"driver"`

	// Warning / Critical are severity thresholds in percent. Their meaning
	// is per-kind: battery treats values at or below them as urgent, cpu
	// and memory values at or above.
	Warning  int `toml:"warning" yaml:"warning"`
	Critical int `toml:"critical" yaml:"critical"`

	// Volume block settings.
	Mixer          string `toml:"mixer" yaml:"mixer"`
	StepWidth      int    `toml:"step_width" yaml:"step_width"`
	MaxVolume      int    `toml:"max_volume" yaml:"max_volume"`
	NaturalMapping bool   `toml:"natural_mapping" yaml:"natural_mapping"`
	ShowWhenMuted  bool   `toml:"show_when_muted" yaml:"show_when_muted"`

	// Command is the script block's shell command.
	Command string `toml:"command" yaml:"command"`

	// Interface restricts the network block to one interface. Empty means
	// the first non-loopback interface that is up.
	Interface string `toml:"interface" yaml:"interface"`

	// Kubernetes block settings.
	Kubeconfig string `toml:"kubeconfig" yaml:"kubeconfig"`
	Context    string `toml:"context" yaml:"context"`

	// Socket is a custom daemon socket path (vpn block).
	Socket string `toml:"socket" yaml:"socket"`
}

// DefaultDebounce is the flush coalescing window used when the config does
// not set general.debounce. 50ms absorbs the burst of updates that follows a
// forced refresh without adding visible latency.
const DefaultDebounce = 50 * time.Millisecond

// DefaultUpdateBuffer is the default updates channel capacity.
const DefaultUpdateBuffer = 64

// DefaultConfig returns the configuration used when no file exists: a plain
// clock-only bar.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Debounce:     Duration{DefaultDebounce},
			LogLevel:     "info",
			UpdateBuffer: DefaultUpdateBuffer,
		},
		Theme: ThemeConfig{
			Name: "default",
		},
		Blocks: []Block{
			{Kind: "clock"},
		},
	}
}

// Validate checks structural invariants that do not depend on which block
// kinds are registered: a non-empty block list, a kind on every block, and
// unique names where names are given explicitly.
func (c *Config) Validate() error {
	if len(c.Blocks) == 0 {
		return fmt.Errorf("no blocks configured")
	}
	seen := make(map[string]int)
	for i, b := range c.Blocks {
		if b.Kind == "" {
			return fmt.Errorf("block %d: missing kind", i)
		}
		if b.Name != "" {
			if prev, dup := seen[b.Name]; dup {
				return fmt.Errorf("block %d: name %q already used by block %d", i, b.Name, prev)
			}
			seen[b.Name] = i
		}
	}
	if c.General.Debounce.Duration < 0 {
		return fmt.Errorf("general.debounce must not be negative")
	}
	return nil
}
