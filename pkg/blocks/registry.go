package blocks

import (
	"fmt"
	"sort"
	"sync"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/config"
)

// Factory builds a block instance from its configuration entry.
type Factory func(cfg config.Block) (Block, error)

var (
	regMu     sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a block kind available to New. Block packages call this
// from init; main imports them for the side effect, the same way database
// drivers register themselves. Register panics on a duplicate kind, which
// indicates a programming error, not a runtime condition.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()

	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("blocks: kind %q registered twice", kind))
	}
	factories[kind] = f
}

// New builds a block of the given kind from cfg. It returns an error for
// unknown kinds so a typo in the config file fails startup instead of
// silently dropping a slot. A configured name overrides the block's own, so
// duplicate kinds stay addressable for click routing.
func New(cfg config.Block) (Block, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown block kind %q (known: %v)", cfg.Kind, Kinds())
	}
	b, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s block: %w", cfg.Kind, err)
	}
	if cfg.Name != "" && cfg.Name != b.Name() {
		b = withName(b, cfg.Name)
	}
	return b, nil
}

// named overrides the reported name of a wrapped block.
type named struct {
	Block
	name string
}

func (n named) Name() string { return n.name }

// withName wraps b so Name returns name. The wrapper re-exposes exactly the
// optional capabilities b has, so interface checks by the engine's router
// and refresh path behave the same as on the bare block.
func withName(b Block, name string) Block {
	n := named{Block: b, name: name}
	c, clickable := b.(Clickable)
	r, refresher := b.(Refresher)
	switch {
	case clickable && refresher:
		return struct {
			named
			Clickable
			Refresher
		}{n, c, r}
	case clickable:
		return struct {
			named
			Clickable
		}{n, c}
	case refresher:
		return struct {
			named
			Refresher
		}{n, r}
	default:
		return n
	}
}

// Kinds returns all registered block kinds, sorted.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
