package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/bar-pulse/config.toml
//  2. $XDG_CONFIG_HOME/bar-pulse/config.yaml
//  3. ~/.config/bar-pulse/config.toml
//  4. ~/.config/bar-pulse/config.yaml
//
// If no file exists, returns DefaultConfig().
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFromFile reads configuration from a specific path. The decoder is
// chosen by file extension: .yaml/.yml uses YAML, everything else TOML.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return LoadYAML(f)
	}
	return LoadTOML(f)
}

// LoadTOML decodes a TOML configuration document.
func LoadTOML(r io.Reader) (*Config, error) {
	cfg := emptyConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadYAML decodes a YAML configuration document.
func LoadYAML(r io.Reader) (*Config, error) {
	cfg := emptyConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// emptyConfig returns a Config carrying the general defaults but no blocks,
// so a file's [[block]] list fully replaces the default clock.
func emptyConfig() *Config {
	cfg := DefaultConfig()
	cfg.Blocks = nil
	return cfg
}

// applyDefaults fills zero-valued general settings after decode.
func applyDefaults(cfg *Config) {
	if cfg.General.Debounce.Duration == 0 {
		cfg.General.Debounce = Duration{DefaultDebounce}
	}
	if cfg.General.UpdateBuffer <= 0 {
		cfg.General.UpdateBuffer = DefaultUpdateBuffer
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.Theme.Name == "" {
		cfg.Theme.Name = "default"
	}
	if len(cfg.Blocks) == 0 {
		cfg.Blocks = DefaultConfig().Blocks
	}
}

// configSearchPaths returns candidate config file locations in priority
// order.
func configSearchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "bar-pulse"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "bar-pulse"))
	}

	var paths []string
	for _, d := range dirs {
		paths = append(paths,
			filepath.Join(d, "config.toml"),
			filepath.Join(d, "config.yaml"),
		)
	}
	return paths
}
