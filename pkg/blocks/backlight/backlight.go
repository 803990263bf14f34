// Package backlight provides the screen brightness block. The sysfs
// brightness file is watched with fsnotify so changes made by hotkeys or
// other tools appear immediately; the wheel adjusts brightness by writing
// the file back, which needs the usual video-group permissions.
package backlight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// Defaults.
const (
	DefaultInterval = 60 * time.Second
	DefaultStep     = 5
)

// Config controls the backlight block.
type Config struct {
	// Device is the directory name under /sys/class/backlight. Empty
	// selects the first device found.
	Device string

	// Step is the wheel increment in percent.
	Step int

	// Interval is the fallback re-read cadence; sysfs does not always
	// deliver inotify events for attribute writes.
	Interval time.Duration
}

// Block renders screen brightness as a percentage.
type Block struct {
	cfg  Config
	root string // sysfs root, overridable for tests
	poke chan struct{}
}

func init() {
	blocks.Register("backlight", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{
			Device:   cfg.Device,
			Step:     cfg.StepWidth,
			Interval: cfg.Interval.Duration,
		}), nil
	})
}

// New creates a backlight block.
func New(cfg Config) *Block {
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{
		cfg:  cfg,
		root: "/sys/class/backlight",
		poke: make(chan struct{}, 1),
	}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "backlight" }

// Refresh forces an immediate re-read.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// Run watches the device's brightness file and re-renders on change. The
// watcher is released on every exit path.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	dir, err := b.deviceDir()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Join(dir, "brightness")); err != nil {
		return fmt.Errorf("watch brightness: %w", err)
	}

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		emit(b.read(dir))
		select {
		case <-watcher.Events:
		case err := <-watcher.Errors:
			if err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// deviceDir resolves the configured or first available backlight device.
func (b *Block) deviceDir() (string, error) {
	if b.cfg.Device != "" {
		return filepath.Join(b.root, b.cfg.Device), nil
	}
	entries, err := os.ReadDir(b.root)
	if err != nil || len(entries) == 0 {
		return "", fmt.Errorf("no backlight device under %s", b.root)
	}
	return filepath.Join(b.root, entries[0].Name()), nil
}

// read renders the current brightness percentage.
func (b *Block) read(dir string) blocks.RenderState {
	cur, err1 := readIntFile(filepath.Join(dir, "brightness"))
	max, err2 := readIntFile(filepath.Join(dir, "max_brightness"))
	if err1 != nil || err2 != nil || max <= 0 {
		return blocks.RenderState{FullText: "bl n/a", State: blocks.StateError}
	}
	pct := cur * 100 / max
	return blocks.RenderState{
		FullText:  fmt.Sprintf("bl %d%%", pct),
		ShortText: fmt.Sprintf("%d%%", pct),
		State:     blocks.StateIdle,
	}
}

// OnClick steps brightness with the wheel.
func (b *Block) OnClick(ev protocol.ClickEvent) {
	var delta int
	switch ev.Button {
	case protocol.ButtonWheelUp:
		delta = b.cfg.Step
	case protocol.ButtonWheelDown:
		delta = -b.cfg.Step
	default:
		return
	}

	dir, err := b.deviceDir()
	if err != nil {
		return
	}
	cur, err1 := readIntFile(filepath.Join(dir, "brightness"))
	max, err2 := readIntFile(filepath.Join(dir, "max_brightness"))
	if err1 != nil || err2 != nil || max <= 0 {
		return
	}

	target := cur + max*delta/100
	if target < 0 {
		target = 0
	}
	if target > max {
		target = max
	}
	// Best effort: without write permission the display simply stays put.
	_ = os.WriteFile(filepath.Join(dir, "brightness"), []byte(strconv.Itoa(target)), 0o644)
	b.Refresh()
}

func readIntFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(raw)))
}
