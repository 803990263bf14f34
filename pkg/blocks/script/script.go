// Package script provides the user-command block: an arbitrary shell
// command run on an interval, its first output line shown in the bar. Click
// events re-run the command with the button number in BLOCK_BUTTON, the
// i3blocks convention, so existing i3blocks scripts work unchanged.
package script

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// Defaults.
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// Exit codes with protocol meaning, per the i3blocks convention.
const (
	exitUrgent = 33
)

// Config controls a script block.
type Config struct {
	// Command is run through `sh -c`.
	Command string

	// Name labels the block; click routing by name uses it. Defaults to
	// "script".
	Name string

	// Interval between runs.
	Interval time.Duration
}

// Block runs a user command and renders its output.
type Block struct {
	cfg  Config
	poke chan int // carries BLOCK_BUTTON for click-triggered runs
}

func init() {
	blocks.Register("script", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{
			Command:  cfg.Command,
			Name:     cfg.Name,
			Interval: cfg.Interval.Duration,
		})
	})
}

// New creates a script block. An empty command is a configuration error.
func New(cfg Config) (*Block, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("script block requires a command")
	}
	if cfg.Name == "" {
		cfg.Name = "script"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{cfg: cfg, poke: make(chan int, 1)}, nil
}

// Name returns the configured block name.
func (b *Block) Name() string { return b.cfg.Name }

// Refresh re-runs the command without a button.
func (b *Block) Refresh() {
	select {
	case b.poke <- 0:
	default:
	}
}

// OnClick re-runs the command with the button number exported.
func (b *Block) OnClick(ev protocol.ClickEvent) {
	select {
	case b.poke <- ev.Button:
	default:
	}
}

// Run executes the command on the interval and on every poke.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	button := 0
	for {
		emit(b.runOnce(ctx, button))
		button = 0
		select {
		case <-ticker.C:
		case button = <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// runOnce executes the command once, bounded by a timeout so a hung script
// cannot wedge the block.
func (b *Block) runOnce(ctx context.Context, button int) blocks.RenderState {
	runCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", b.cfg.Command)
	cmd.Env = append(os.Environ(), fmt.Sprintf("BLOCK_BUTTON=%d", button))

	out, err := cmd.Output()
	exitCode := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			return blocks.RenderState{
				FullText: b.cfg.Name + " n/a",
				State:    blocks.StateError,
			}
		}
	}
	return render(b.cfg.Name, string(out), exitCode)
}

// render maps command output and exit code onto a snapshot. Line one is the
// full text, line two (if any) the short text. Exit 33 marks the block
// urgent; any other non-zero exit is an error.
func render(name, out string, exitCode int) blocks.RenderState {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	full := strings.TrimSpace(lines[0])
	short := ""
	if len(lines) > 1 {
		short = strings.TrimSpace(lines[1])
	}

	state := blocks.StateIdle
	switch {
	case exitCode == exitUrgent:
		state = blocks.StateCritical
	case exitCode != 0:
		state = blocks.StateError
		if full == "" {
			full = name + " n/a"
		}
	}
	return blocks.RenderState{
		FullText:  full,
		ShortText: short,
		State:     state,
	}
}
