// Package volume provides the ALSA volume block. Volume and mute state are
// read with amixer; a long-running `alsactl monitor` subprocess is the event
// source, so external volume changes (media keys, other mixers) show up
// immediately. Right click toggles mute, the wheel steps the volume.
package volume

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// Defaults.
const (
	DefaultMixer    = "Master"
	DefaultDevice   = "default"
	DefaultStep     = 5
	DefaultInterval = 30 * time.Second
)

// Config controls the volume block.
type Config struct {
	// Mixer is the ALSA simple control name.
	Mixer string

	// Device is the ALSA device amixer talks to.
	Device string

	// Step is the wheel increment in percent, clamped to [1,50].
	Step int

	// MaxVolume caps wheel-up, in percent. Zero means uncapped.
	MaxVolume int

	// NaturalMapping passes -M to amixer (mapped volume scale).
	NaturalMapping bool

	// ShowWhenMuted renders the percentage even while muted instead of the
	// fixed MUTE text.
	ShowWhenMuted bool

	// Interval is the fallback re-read cadence used when the monitor
	// subprocess cannot be started.
	Interval time.Duration
}

// Block renders and adjusts mixer volume.
type Block struct {
	cfg  Config
	poke chan struct{}

	mu     sync.Mutex
	volume int
	muted  bool
}

func init() {
	blocks.Register("volume", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{
			Mixer:          cfg.Mixer,
			Device:         cfg.Device,
			Step:           cfg.StepWidth,
			MaxVolume:      cfg.MaxVolume,
			NaturalMapping: cfg.NaturalMapping,
			ShowWhenMuted:  cfg.ShowWhenMuted,
			Interval:       cfg.Interval.Duration,
		}), nil
	})
}

// New creates a volume block with defaults filled in.
func New(cfg Config) *Block {
	if cfg.Mixer == "" {
		cfg.Mixer = DefaultMixer
	}
	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.Step > 50 {
		cfg.Step = 50
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{cfg: cfg, poke: make(chan struct{}, 1)}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "volume" }

// Refresh forces an immediate re-read.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// Run re-renders on every mixer event. The monitor subprocess is tied to
// ctx, so cancellation kills it and its pipe; if it cannot start at all
// (alsactl missing) the block degrades to interval polling.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	events, monErr := b.startMonitor(ctx)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := b.read(ctx); err != nil {
			emit(blocks.RenderState{FullText: "vol n/a", State: blocks.StateError})
		} else {
			emit(b.renderLocked())
		}

		if monErr == nil {
			select {
			case _, ok := <-events:
				if !ok {
					// Monitor died; fall back to the ticker.
					monErr = fmt.Errorf("monitor exited")
				}
			case <-ticker.C:
			case <-b.poke:
			case <-ctx.Done():
				return nil
			}
		} else {
			select {
			case <-ticker.C:
			case <-b.poke:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// startMonitor launches `stdbuf -oL alsactl monitor` and signals on every
// output chunk.
func (b *Block) startMonitor(ctx context.Context) (<-chan struct{}, error) {
	cmd := exec.CommandContext(ctx, "stdbuf", "-oL", "alsactl", "monitor")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe alsactl monitor: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start alsactl monitor: %w", err)
	}

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer cmd.Wait()
		r := bufio.NewReader(stdout)
		buf := make([]byte, 1024)
		for {
			if _, err := r.Read(buf); err != nil {
				return
			}
			select {
			case events <- struct{}{}:
			default:
			}
		}
	}()
	return events, nil
}

// read refreshes volume and mute state from amixer.
func (b *Block) read(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, "amixer", b.getArgs()...).Output()
	if err != nil {
		return fmt.Errorf("run amixer: %w", err)
	}
	vol, muted, err := parseAmixer(string(out))
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.volume, b.muted = vol, muted
	b.mu.Unlock()
	return nil
}

func (b *Block) getArgs() []string {
	args := b.baseArgs()
	return append(args, "get", b.cfg.Mixer)
}

func (b *Block) baseArgs() []string {
	var args []string
	if b.cfg.NaturalMapping {
		args = append(args, "-M")
	}
	return append(args, "-D", b.cfg.Device)
}

// parseAmixer extracts volume and mute state from amixer's last output
// line, e.g. "Front Left: Playback 32000 [50%] [0.00dB] [on]".
func parseAmixer(out string) (volume int, muted bool, err error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]

	var fields []string
	for _, f := range strings.Fields(last) {
		if strings.HasPrefix(f, "[") && !strings.Contains(f, "dB") {
			fields = append(fields, strings.Trim(f, "[]%"))
		}
	}
	if len(fields) == 0 {
		return 0, false, fmt.Errorf("no volume in amixer output")
	}
	volume, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, false, fmt.Errorf("parse volume %q: %w", fields[0], err)
	}
	if len(fields) > 1 {
		muted = fields[1] == "off"
	}
	return volume, muted, nil
}

// OnClick adjusts the mixer: right click toggles mute, wheel up/down steps
// the volume. Runs on the engine's click goroutine; amixer calls are quick.
func (b *Block) OnClick(ev protocol.ClickEvent) {
	switch ev.Button {
	case protocol.ButtonRight:
		b.runSet("toggle")
	case protocol.ButtonWheelUp:
		b.step(+b.cfg.Step)
	case protocol.ButtonWheelDown:
		b.step(-b.cfg.Step)
	default:
		return
	}
	b.Refresh()
}

// step moves the volume by delta percent, clamped to [0, MaxVolume].
func (b *Block) step(delta int) {
	b.mu.Lock()
	target := b.volume + delta
	b.mu.Unlock()

	target = clampVolume(target, b.cfg.MaxVolume)
	b.runSet(fmt.Sprintf("%d%%", target))
}

func clampVolume(v, max int) int {
	if v < 0 {
		v = 0
	}
	if max > 0 && v > max {
		v = max
	}
	return v
}

func (b *Block) runSet(value string) {
	args := b.baseArgs()
	args = append(args, "set", b.cfg.Mixer, value)
	// Best effort: a failed set leaves the display unchanged and the next
	// read re-syncs.
	_ = exec.Command("amixer", args...).Run()
}

// renderLocked builds the snapshot from the last read state.
func (b *Block) renderLocked() blocks.RenderState {
	b.mu.Lock()
	vol, muted := b.volume, b.muted
	b.mu.Unlock()

	if muted && !b.cfg.ShowWhenMuted {
		return blocks.RenderState{
			FullText:  "MUTE",
			ShortText: "MUTE",
			State:     blocks.StateWarning,
		}
	}
	state := blocks.StateIdle
	if muted {
		state = blocks.StateWarning
	}
	return blocks.RenderState{
		FullText:  fmt.Sprintf("%d%%", vol),
		ShortText: fmt.Sprintf("%d%%", vol),
		State:     state,
	}
}
