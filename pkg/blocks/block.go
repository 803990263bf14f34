// Package blocks defines the capability contract, registry, and shared types
// for bar-pulse blocks. Each block (clock, battery, volume, network, ...)
// implements the Block interface and is run in its own goroutine by the
// engine, which fans every block's render snapshots into a single updates
// channel consumed by the aggregator.
package blocks

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// State is the severity of a rendered snapshot. The theme maps states to
// colors; Critical additionally sets the protocol urgent flag.
type State int

// Severity levels, ordered from calm to broken.
const (
	StateIdle State = iota
	StateInfo
	StateGood
	StateWarning
	StateCritical
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInfo:
		return "info"
	case StateGood:
		return "good"
	case StateWarning:
		return "warning"
	case StateCritical:
		return "critical"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// RenderState is the immutable visual snapshot a block publishes for its
// slot. Blocks build a fresh value for every emit; nothing downstream
// mutates it.
type RenderState struct {
	// FullText is the block's display text.
	FullText string

	// ShortText is an optional abbreviation the bar may substitute when
	// space is tight.
	ShortText string

	// State is the severity used for coloring and the urgent flag.
	State State

	// Instance is the click-correlation tag echoed back by the bar. When
	// empty, the aggregator assigns a stable per-slot default. Blocks whose
	// click targets change over time must keep this current.
	Instance string

	// Markup, when set to "pango", tells the bar FullText contains pango
	// markup.
	Markup string
}

// HealthLevel classifies a block's runtime condition.
type HealthLevel int

// Health levels.
const (
	// HealthRunning means the block is operating normally.
	HealthRunning HealthLevel = iota

	// HealthDegraded means the block's data source is failing but the block
	// is still alive and will keep retrying on its own schedule.
	HealthDegraded

	// HealthFailed means the block's task has terminated. Its slot shows a
	// fixed error indicator until shutdown.
	HealthFailed
)

// String returns the lowercase health level name.
func (h HealthLevel) String() string {
	switch h {
	case HealthRunning:
		return "running"
	case HealthDegraded:
		return "degraded"
	case HealthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Health is a block's runtime condition plus the reason when not running.
type Health struct {
	Level  HealthLevel
	Reason string
}

// Update carries one render snapshot from a block task to the aggregator.
// ID is the block's fixed slot, assigned from configuration order.
type Update struct {
	ID        int
	Name      string
	Render    RenderState
	Health    Health
	Timestamp time.Time
}

// EmitFunc publishes a new render snapshot for the calling block. Calling it
// never blocks: delivery is latest-wins, so a block emitting faster than the
// aggregator drains only ever loses superseded snapshots.
type EmitFunc func(RenderState)

// Block is the interface all blocks implement. A block owns exactly one
// update source (timer, netlink socket, D-Bus subscription, filesystem
// watch, subprocess, or window-manager IPC stream).
//
// Errors must stay inside the block: transient source failures are rendered
// as a degraded snapshot (StateError text) and retried on the block's own
// schedule. Run returning a non-nil error marks the block Failed for the
// rest of the process lifetime.
type Block interface {
	// Name returns the block's identifier, used for click routing by name
	// and for logging. It need not be unique across the bar.
	Name() string

	// Run listens on the block's update source and calls emit with a fresh
	// RenderState whenever new content is ready. It blocks until ctx is
	// done (the engine gives every block its own goroutine) and must
	// release any held resource on every exit path.
	Run(ctx context.Context, emit EmitFunc) error
}

// Clickable is implemented by blocks that react to click events. OnClick is
// called from the engine's click-routing goroutine and must be safe to run
// concurrently with the block's Run loop.
type Clickable interface {
	OnClick(ev protocol.ClickEvent)
}

// Refresher is implemented by blocks that support forced redraws. The
// engine calls Refresh on every implementing block when it receives the
// refresh signal; implementations should re-render promptly and must not
// block.
type Refresher interface {
	Refresh()
}
