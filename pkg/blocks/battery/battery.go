// Package battery provides the battery block. Two drivers are available:
// "sysfs" polls /sys/class/power_supply on an interval, and "upower"
// subscribes to PropertiesChanged signals from the UPower display device on
// the system D-Bus, re-rendering only when the daemon reports a change.
package battery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
)

// Defaults.
const (
	DefaultDevice   = "BAT0"
	DefaultInterval = 10 * time.Second
	DefaultWarning  = 25
	DefaultCritical = 10
)

// Config controls the battery block.
type Config struct {
	// Device is the power-supply name under /sys/class/power_supply
	// (sysfs driver only; upower always uses the display device).
	Device string

	// Driver is "sysfs" (default) or "upower".
	Driver string

	// Interval is the sysfs polling cadence and the upower fallback
	// re-read cadence.
	Interval time.Duration

	// Warning and Critical are charge percentages at or below which the
	// block escalates severity while discharging.
	Warning  int
	Critical int
}

// Block renders battery charge and direction.
type Block struct {
	cfg  Config
	poke chan struct{}

	sysfsRoot string // overridable for tests
}

func init() {
	blocks.Register("battery", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{
			Device:   cfg.Device,
			Driver:   cfg.Driver,
			Interval: cfg.Interval.Duration,
			Warning:  cfg.Warning,
			Critical: cfg.Critical,
		})
	})
}

// New creates a battery block. Unknown drivers are rejected at construction
// so a config typo fails startup.
func New(cfg Config) (*Block, error) {
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Warning <= 0 {
		cfg.Warning = DefaultWarning
	}
	if cfg.Critical <= 0 {
		cfg.Critical = DefaultCritical
	}
	switch cfg.Driver {
	case "", "sysfs", "upower":
	default:
		return nil, fmt.Errorf("unknown battery driver %q", cfg.Driver)
	}
	return &Block{
		cfg:       cfg,
		poke:      make(chan struct{}, 1),
		sysfsRoot: "/sys/class/power_supply",
	}, nil
}

// Name returns the block identifier.
func (b *Block) Name() string { return "battery" }

// Run dispatches to the configured driver.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	if b.cfg.Driver == "upower" {
		return b.runUpower(ctx, emit)
	}
	return b.runSysfs(ctx, emit)
}

// Refresh forces an immediate re-read.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// runSysfs polls capacity and status files. Read failures degrade the block
// for that cycle; a machine without the device (desktop, removed battery)
// keeps showing n/a and retrying.
func (b *Block) runSysfs(ctx context.Context, emit blocks.EmitFunc) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		capacity, status, err := b.readSysfs()
		if err != nil {
			emit(blocks.RenderState{
				FullText: "bat n/a",
				State:    blocks.StateError,
			})
		} else {
			emit(b.render(capacity, status))
		}
		select {
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *Block) readSysfs() (int, string, error) {
	dir := filepath.Join(b.sysfsRoot, b.cfg.Device)

	capRaw, err := os.ReadFile(filepath.Join(dir, "capacity"))
	if err != nil {
		return 0, "", fmt.Errorf("read capacity: %w", err)
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(string(capRaw)))
	if err != nil {
		return 0, "", fmt.Errorf("parse capacity: %w", err)
	}

	statusRaw, err := os.ReadFile(filepath.Join(dir, "status"))
	if err != nil {
		return 0, "", fmt.Errorf("read status: %w", err)
	}
	return capacity, strings.TrimSpace(string(statusRaw)), nil
}

// render maps charge and direction onto text and severity. Severity only
// escalates while discharging; a charging battery at 5% is not urgent.
func (b *Block) render(capacity int, status string) blocks.RenderState {
	var arrow string
	state := blocks.StateIdle

	switch status {
	case "Charging":
		arrow = "+"
		state = blocks.StateGood
	case "Full":
		state = blocks.StateGood
	case "Discharging":
		arrow = "-"
		switch {
		case capacity <= b.cfg.Critical:
			state = blocks.StateCritical
		case capacity <= b.cfg.Warning:
			state = blocks.StateWarning
		}
	}

	return blocks.RenderState{
		FullText:  fmt.Sprintf("bat %d%%%s", capacity, arrow),
		ShortText: fmt.Sprintf("%d%%", capacity),
		State:     state,
	}
}
