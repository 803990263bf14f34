// Package workspaces provides the window-manager workspace block. It
// subscribes to the i3/sway IPC workspace event stream and re-renders the
// workspace list on every focus, init, or empty event. The wheel switches
// workspaces.
package workspaces

import (
	"context"
	"fmt"
	"strings"

	"go.i3wm.org/i3/v4"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// Config controls the workspaces block.
type Config struct {
	// FocusedOnly renders just the focused workspace name instead of the
	// whole list.
	FocusedOnly bool
}

// Block renders the workspace list.
type Block struct {
	cfg  Config
	poke chan struct{}
}

func init() {
	blocks.Register("workspaces", func(cfg config.Block) (blocks.Block, error) {
		return New(Config{FocusedOnly: cfg.Format == "focused"}), nil
	})
}

// New creates a workspaces block.
func New(cfg Config) *Block {
	return &Block{cfg: cfg, poke: make(chan struct{}, 1)}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "workspaces" }

// Refresh forces an immediate re-render.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// Run subscribes to workspace events and re-queries the workspace list on
// every wake. Closing the receiver on cancellation unblocks the event loop.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	recv := i3.Subscribe(i3.WorkspaceEventType)
	defer recv.Close()

	stop := context.AfterFunc(ctx, func() {
		recv.Close()
	})
	defer stop()

	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		for recv.Next() {
			select {
			case events <- struct{}{}:
			default:
			}
		}
	}()

	for {
		emit(b.render())
		select {
		case _, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("workspace event stream closed: %w", recv.Close())
			}
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// render queries the current workspace list and formats it.
func (b *Block) render() blocks.RenderState {
	wss, err := i3.GetWorkspaces()
	if err != nil {
		return blocks.RenderState{FullText: "wm n/a", State: blocks.StateError}
	}
	return b.format(wss)
}

// format builds the snapshot from a workspace list. The focused workspace is
// bracketed; any urgent workspace escalates the whole block.
func (b *Block) format(wss []i3.Workspace) blocks.RenderState {
	state := blocks.StateIdle
	var focused string
	parts := make([]string, 0, len(wss))
	for _, ws := range wss {
		name := ws.Name
		if ws.Focused {
			focused = name
			name = "[" + name + "]"
		}
		if ws.Urgent {
			state = blocks.StateCritical
		}
		parts = append(parts, name)
	}

	full := strings.Join(parts, " ")
	if b.cfg.FocusedOnly {
		full = focused
	}
	return blocks.RenderState{
		FullText:  full,
		ShortText: focused,
		State:     state,
	}
}

// OnClick switches workspaces with the wheel.
func (b *Block) OnClick(ev protocol.ClickEvent) {
	var cmd string
	switch ev.Button {
	case protocol.ButtonWheelUp:
		cmd = "workspace prev_on_output"
	case protocol.ButtonWheelDown:
		cmd = "workspace next_on_output"
	case protocol.ButtonLeft:
		cmd = "workspace back_and_forth"
	default:
		return
	}
	// The subsequent workspace event re-renders; no explicit Refresh.
	_, _ = i3.RunCommand(cmd)
}
