// Package clock provides a timer-driven date/time block. A left click
// toggles between the primary and alternate layout.
package clock

import (
	"context"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// Default layouts, in Go reference-time notation.
const (
	DefaultFormat    = "Mon 02 Jan 15:04"
	DefaultFormatAlt = "2006-01-02 15:04:05"
	DefaultInterval  = time.Second
)

// Config controls the clock block.
type Config struct {
	Format    string
	FormatAlt string
	Interval  time.Duration
}

// Block renders the current time.
type Block struct {
	cfg Config

	mu  sync.Mutex
	alt bool

	poke chan struct{}
}

func init() {
	blocks.Register("clock", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{
			Format:    cfg.Format,
			FormatAlt: cfg.FormatAlt,
			Interval:  cfg.Interval.Duration,
		}), nil
	})
}

// New creates a clock block, filling zero-valued settings with defaults.
func New(cfg Config) *Block {
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.FormatAlt == "" {
		cfg.FormatAlt = DefaultFormatAlt
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{
		cfg:  cfg,
		poke: make(chan struct{}, 1),
	}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "clock" }

// Run emits the formatted time on every tick, click toggle, or forced
// refresh.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		emit(b.render(time.Now()))
		select {
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// OnClick toggles the layout on a left click.
func (b *Block) OnClick(ev protocol.ClickEvent) {
	if ev.Button != protocol.ButtonLeft {
		return
	}
	b.mu.Lock()
	b.alt = !b.alt
	b.mu.Unlock()
	b.Refresh()
}

// Refresh forces an immediate re-render.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

func (b *Block) render(now time.Time) blocks.RenderState {
	b.mu.Lock()
	layout := b.cfg.Format
	if b.alt {
		layout = b.cfg.FormatAlt
	}
	b.mu.Unlock()

	return blocks.RenderState{
		FullText:  now.Format(layout),
		ShortText: now.Format("15:04"),
		State:     blocks.StateIdle,
	}
}
