// Package sysmetrics provides the timer-driven system metric blocks: cpu,
// memory, and load. All three read through gopsutil, so they work on both
// Linux and Darwin without /proc parsing.
package sysmetrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
)

// Defaults shared by the metric blocks.
const (
	DefaultInterval = 2 * time.Second
	DefaultWarning  = 70
	DefaultCritical = 90
)

// Config controls one metric block.
type Config struct {
	Interval time.Duration

	// Warning and Critical are utilisation thresholds in percent.
	Warning  int
	Critical int
}

func (c *Config) fillDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Warning <= 0 {
		c.Warning = DefaultWarning
	}
	if c.Critical <= 0 {
		c.Critical = DefaultCritical
	}
}

func init() {
	blocks.Register("cpu", func(cfg config.Block) (blocks.Block, error) {
		return NewCPU(fromBlockConfig(cfg)), nil
	})
	blocks.Register("memory", func(cfg config.Block) (blocks.Block, error) {
		return NewMemory(fromBlockConfig(cfg)), nil
	})
	blocks.Register("load", func(cfg config.Block) (blocks.Block, error) {
		return NewLoad(fromBlockConfig(cfg)), nil
	})
}

func fromBlockConfig(cfg config.Block) Config {
	return Config{
		Interval: cfg.Interval.Duration,
		Warning:  cfg.Warning,
		Critical: cfg.Critical,
	}
}

// metricBlock is the shared poll loop; sample produces one render.
type metricBlock struct {
	name   string
	cfg    Config
	poke   chan struct{}
	sample func(ctx context.Context) (blocks.RenderState, error)
}

// Name returns the block identifier.
func (m *metricBlock) Name() string { return m.name }

// Run polls the metric on the configured interval. A sampling failure
// degrades the block for that cycle; the next tick retries.
func (m *metricBlock) Run(ctx context.Context, emit blocks.EmitFunc) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		rs, err := m.sample(ctx)
		if err != nil {
			rs = blocks.RenderState{
				FullText: m.name + " n/a",
				State:    blocks.StateError,
			}
		}
		emit(rs)
		select {
		case <-ticker.C:
		case <-m.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// Refresh forces an immediate re-sample.
func (m *metricBlock) Refresh() {
	select {
	case m.poke <- struct{}{}:
	default:
	}
}

// severity maps a utilisation percentage onto the configured thresholds.
func (c Config) severity(percent float64) blocks.State {
	switch {
	case percent >= float64(c.Critical):
		return blocks.StateCritical
	case percent >= float64(c.Warning):
		return blocks.StateWarning
	default:
		return blocks.StateIdle
	}
}

// NewCPU creates a block showing aggregate CPU utilisation.
func NewCPU(cfg Config) blocks.Block {
	cfg.fillDefaults()
	m := &metricBlock{name: "cpu", cfg: cfg, poke: make(chan struct{}, 1)}
	m.sample = func(ctx context.Context) (blocks.RenderState, error) {
		// Interval 0 compares against the previous call instead of
		// sleeping, which keeps the sample non-blocking after the first.
		percents, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return blocks.RenderState{}, fmt.Errorf("cpu percent: %w", err)
		}
		return renderCPU(cfg, percents)
	}
	return m
}

// renderCPU formats an aggregate utilisation sample. An empty sample set is
// an error of its own; it arrives with a nil error from the collector.
func renderCPU(cfg Config, percents []float64) (blocks.RenderState, error) {
	if len(percents) == 0 {
		return blocks.RenderState{}, errors.New("cpu percent: no samples")
	}
	total := percents[0]
	return blocks.RenderState{
		FullText:  fmt.Sprintf("cpu %.0f%%", total),
		ShortText: fmt.Sprintf("%.0f%%", total),
		State:     cfg.severity(total),
	}, nil
}

// NewMemory creates a block showing used/total physical memory.
func NewMemory(cfg Config) blocks.Block {
	cfg.fillDefaults()
	m := &metricBlock{name: "memory", cfg: cfg, poke: make(chan struct{}, 1)}
	m.sample = func(ctx context.Context) (blocks.RenderState, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return blocks.RenderState{}, fmt.Errorf("virtual memory: %w", err)
		}
		return blocks.RenderState{
			FullText:  fmt.Sprintf("mem %s/%s", FormatBytes(vm.Used), FormatBytes(vm.Total)),
			ShortText: fmt.Sprintf("%.0f%%", vm.UsedPercent),
			State:     cfg.severity(vm.UsedPercent),
		}, nil
	}
	return m
}

// NewLoad creates a block showing the 1/5/15 minute load averages. The
// severity thresholds are interpreted against the 1-minute average scaled
// by CPU count.
func NewLoad(cfg Config) blocks.Block {
	cfg.fillDefaults()
	m := &metricBlock{name: "load", cfg: cfg, poke: make(chan struct{}, 1)}
	m.sample = func(ctx context.Context) (blocks.RenderState, error) {
		avg, err := load.AvgWithContext(ctx)
		if err != nil {
			return blocks.RenderState{}, fmt.Errorf("load avg: %w", err)
		}
		cores, err := cpu.CountsWithContext(ctx, true)
		if err != nil || cores <= 0 {
			cores = 1
		}
		percent := avg.Load1 / float64(cores) * 100
		return blocks.RenderState{
			FullText:  fmt.Sprintf("load %.2f %.2f %.2f", avg.Load1, avg.Load5, avg.Load15),
			ShortText: fmt.Sprintf("%.2f", avg.Load1),
			State:     cfg.severity(percent),
		}, nil
	}
	return m
}

// FormatBytes renders a byte count with a binary unit suffix, one decimal.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}
