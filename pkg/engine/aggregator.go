package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// slotState is the aggregator's record for one display position. Slots are
// created once from configuration order; only the render payload mutates.
type slotState struct {
	name   string
	tag    string // click-correlation tag of the latest render
	render blocks.RenderState
	health blocks.Health
}

// aggregator owns the ordered slot table. It is the only goroutine that
// touches it, which keeps the hot aggregation path lock-free. Per refresh
// cycle it moves Idle -> Collecting (debounce window open) -> Flushing ->
// Idle.
type aggregator struct {
	out      protocol.Output
	router   *Router
	th       theme.Theme
	debounce time.Duration
	logger   *slog.Logger

	slots   []slotState
	pending bool // debounce window open
	dirty   bool // unflushed changes exist
}

func newAggregator(bs []blocks.Block, out protocol.Output, router *Router, th theme.Theme, debounce time.Duration, logger *slog.Logger) *aggregator {
	slots := make([]slotState, len(bs))
	for i, b := range bs {
		slots[i] = slotState{
			name: b.Name(),
			tag:  defaultTag(b.Name(), i),
		}
		// Seed the router so clicks can resolve by name before a block's
		// first render arrives.
		router.setTarget(i, slots[i].name, slots[i].tag)
	}
	return &aggregator{
		out:      out,
		router:   router,
		th:       th,
		debounce: debounce,
		logger:   logger,
		slots:    slots,
	}
}

// defaultTag is the stable per-slot click-correlation tag used when a block
// does not publish its own.
func defaultTag(name string, slot int) string {
	return fmt.Sprintf("%s/%d", name, slot)
}

// run is the aggregator event loop: apply updates, debounce, flush. It
// returns nil on orderly shutdown. The updates channel closing while the
// context is still live is a broken invariant and shuts the engine down.
func (a *aggregator) run(ctx context.Context, updates <-chan blocks.Update, force <-chan struct{}) error {
	timer := time.NewTimer(a.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("updates channel closed while engine is running")
			}
			a.apply(u)
			if !a.pending {
				timer.Reset(a.debounce)
				a.pending = true
			}

		case <-timer.C:
			a.pending = false
			if err := a.flush(); err != nil {
				return fmt.Errorf("flush: %w", err)
			}

		case <-force:
			// Forced refresh bypasses the debounce: cancel any open window
			// and flush now.
			if a.pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				a.pending = false
			}
			if err := a.flush(); err != nil {
				return fmt.Errorf("flush: %w", err)
			}

		case <-ctx.Done():
			if a.dirty {
				// Best effort: make the final state visible before exit.
				if err := a.flush(); err != nil {
					a.logger.Debug("final flush failed", "error", err)
				}
			}
			return nil
		}
	}
}

// apply overwrites the slot for u.ID with the new snapshot (last write wins
// per slot) and keeps the router's click targets current.
func (a *aggregator) apply(u blocks.Update) {
	if u.ID < 0 || u.ID >= len(a.slots) {
		a.logger.Warn("update for unknown slot", "slot", u.ID, "block", u.Name)
		return
	}
	s := &a.slots[u.ID]
	s.render = u.Render
	s.health = u.Health
	if u.Render.Instance != "" {
		s.tag = u.Render.Instance
	}
	a.router.setTarget(u.ID, s.name, s.tag)
	a.dirty = true
}

// flush serializes the slot table in configured order and writes one frame.
// Serialization only reads slot state, so flushing with no new updates
// reproduces the identical frame.
func (a *aggregator) flush() error {
	frame := make([]protocol.Block, len(a.slots))
	for i, s := range a.slots {
		frame[i] = protocol.Block{
			FullText:   s.render.FullText,
			ShortText:  s.render.ShortText,
			Color:      a.th.Color(s.render.State),
			Background: a.th.Background,
			Name:       s.name,
			Instance:   s.tag,
			Urgent:     s.render.State == blocks.StateCritical,
			Markup:     s.render.Markup,
		}
	}
	if err := a.out.WriteFrame(frame); err != nil {
		return err
	}
	a.dirty = false
	return nil
}
