// Package vpn provides the Tailscale block. It polls the local tailscaled
// daemon over the LocalAPI unix socket and renders backend state plus the
// number of online peers.
package vpn

import (
	"context"
	"fmt"
	"time"

	"tailscale.com/client/local"
	"tailscale.com/ipn/ipnstate"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = 10 * time.Second

// StatusClient abstracts the local Tailscale daemon API for testability.
// The real implementation is tailscale.com/client/local.Client.
type StatusClient interface {
	Status(ctx context.Context) (*ipnstate.Status, error)
}

// Config controls the vpn block.
type Config struct {
	// Interval is the polling cadence.
	Interval time.Duration

	// SocketPath is an optional custom tailscaled socket path. Empty uses
	// the platform default.
	SocketPath string
}

// Block renders Tailscale connectivity.
type Block struct {
	cfg    Config
	client StatusClient
	poke   chan struct{}
}

func init() {
	blocks.Register("vpn", func(cfg config.Block) (blocks.Block, error) {
		c := Config{
			Interval:   cfg.Interval.Duration,
			SocketPath: cfg.Socket,
		}
		return New(c, &local.Client{
			Socket:        c.SocketPath,
			UseSocketOnly: c.SocketPath != "",
		}), nil
	})
}

// New creates a vpn block using client for status queries.
func New(cfg Config, client StatusClient) *Block {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Block{
		cfg:    cfg,
		client: client,
		poke:   make(chan struct{}, 1),
	}
}

// Name returns the block identifier.
func (b *Block) Name() string { return "vpn" }

// Refresh forces an immediate poll.
func (b *Block) Refresh() {
	select {
	case b.poke <- struct{}{}:
	default:
	}
}

// Run polls the daemon on the configured interval. An unreachable daemon
// degrades the block; the next tick retries.
func (b *Block) Run(ctx context.Context, emit blocks.EmitFunc) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		st, err := b.client.Status(ctx)
		if err != nil {
			emit(blocks.RenderState{FullText: "ts n/a", State: blocks.StateError})
		} else {
			emit(Render(st))
		}
		select {
		case <-ticker.C:
		case <-b.poke:
		case <-ctx.Done():
			return nil
		}
	}
}

// Render maps a daemon status onto a snapshot.
func Render(st *ipnstate.Status) blocks.RenderState {
	switch st.BackendState {
	case "Running":
		online := 0
		for _, p := range st.Peer {
			if p.Online {
				online++
			}
		}
		return blocks.RenderState{
			FullText:  fmt.Sprintf("ts up %d/%d", online, len(st.Peer)),
			ShortText: "ts up",
			State:     blocks.StateGood,
		}
	case "Stopped":
		return blocks.RenderState{
			FullText:  "ts down",
			ShortText: "ts",
			State:     blocks.StateWarning,
		}
	default:
		return blocks.RenderState{
			FullText:  "ts " + st.BackendState,
			ShortText: "ts",
			State:     blocks.StateInfo,
		}
	}
}
