package engine

import (
	"log/slog"
	"sync"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// Router resolves inbound click events to block instances. Targets are
// resolved against the tags of the most recent renders, so a click racing a
// block's update may miss its mark; clicks are best-effort UI input, so an
// unresolvable event is dropped rather than queued.
type Router struct {
	mu         sync.RWMutex
	byInstance map[string]int
	byName     map[string]int
	clickables []blocks.Clickable // slot-aligned; nil for non-clickable blocks
	logger     *slog.Logger
}

func newRouter(bs []blocks.Block, logger *slog.Logger) *Router {
	r := &Router{
		byInstance: make(map[string]int),
		byName:     make(map[string]int),
		clickables: make([]blocks.Clickable, len(bs)),
		logger:     logger,
	}
	for i, b := range bs {
		if c, ok := b.(blocks.Clickable); ok {
			r.clickables[i] = c
		}
	}
	return r
}

// setTarget records slot's current name and instance tag, retiring any
// previous tag the slot published. Called by the aggregator on every
// applied update.
func (r *Router) setTarget(slot int, name, instance string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tag, s := range r.byInstance {
		if s == slot && tag != instance {
			delete(r.byInstance, tag)
		}
	}
	r.byInstance[instance] = slot

	// First slot with a given name wins; instance tags disambiguate
	// duplicate kinds.
	if prev, exists := r.byName[name]; !exists || prev == slot {
		r.byName[name] = slot
	}
}

// Dispatch delivers ev to the owning block's OnClick. Resolution tries the
// instance tag first, then the block name. Unresolvable or non-clickable
// targets are dropped at debug level.
func (r *Router) Dispatch(ev protocol.ClickEvent) {
	r.mu.RLock()
	slot, ok := -1, false
	if ev.Instance != "" {
		slot, ok = r.lookupInstance(ev.Instance)
	}
	if !ok && ev.Name != "" {
		s, found := r.byName[ev.Name]
		slot, ok = s, found
	}
	var c blocks.Clickable
	if ok {
		c = r.clickables[slot]
	}
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("dropping unroutable click", "name", ev.Name, "instance", ev.Instance)
		return
	}
	if c == nil {
		r.logger.Debug("click on non-clickable block", "name", ev.Name, "slot", slot)
		return
	}
	c.OnClick(ev)
}

// lookupInstance must be called with at least the read lock held.
func (r *Router) lookupInstance(tag string) (int, bool) {
	s, ok := r.byInstance[tag]
	return s, ok
}
