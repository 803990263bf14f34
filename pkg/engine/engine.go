// Package engine orchestrates the bar: it runs one task per block, fans
// their render snapshots into an aggregator that owns the ordered slot
// table, debounces bursts into single flushes on the outbound protocol
// stream, and routes inbound click events back to the block that owns the
// clicked slot.
//
// No state is shared by mutation: blocks talk to the aggregator only through
// the updates channel, and the slot table is touched exclusively by the
// aggregator goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/theme"
)

// DefaultDebounce is the flush coalescing window used when Options.Debounce
// is zero.
const DefaultDebounce = 50 * time.Millisecond

// DefaultUpdateBuffer is the default capacity of the shared updates channel.
const DefaultUpdateBuffer = 64

// Options configures an Engine.
type Options struct {
	// Debounce is how long a flush waits for further updates to coalesce.
	// Zero means DefaultDebounce.
	Debounce time.Duration

	// UpdateBuffer is the shared updates channel capacity. Zero means
	// DefaultUpdateBuffer.
	UpdateBuffer int

	// Theme colors the emitted records. The zero Theme emits no colors.
	Theme theme.Theme

	// Logger receives engine diagnostics; nil means slog.Default(). Never
	// log to stdout: that stream belongs to the protocol.
	Logger *slog.Logger
}

// Engine owns the block set, the update channel, the aggregator, and the
// protocol endpoints.
type Engine struct {
	blocks []blocks.Block
	out    protocol.Output
	in     io.Reader
	opts   Options
	router *Router
	force  chan struct{}
	logger *slog.Logger
}

// New creates an Engine for the given blocks in display order. The slice
// index of each block is its slot for the process lifetime. out receives
// frames, in delivers click bytes (pass nil to disable click handling).
func New(bs []blocks.Block, out protocol.Output, in io.Reader, opts Options) (*Engine, error) {
	if len(bs) == 0 {
		return nil, errors.New("engine: no blocks configured")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.UpdateBuffer <= 0 {
		opts.UpdateBuffer = DefaultUpdateBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		blocks: bs,
		out:    out,
		in:     in,
		opts:   opts,
		router: newRouter(bs, opts.Logger),
		force:  make(chan struct{}, 1),
		logger: opts.Logger,
	}, nil
}

// Run writes the protocol header, starts every block task plus the click
// decoder, and drives the aggregator loop until ctx is done. It returns nil
// on orderly shutdown and an error when the output stream fails or an
// internal channel breaks.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.out.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	updates := make(chan blocks.Update, e.opts.UpdateBuffer)
	wg := e.startTasks(ctx, updates)
	go func() {
		wg.Wait()
		close(updates)
	}()

	if e.in != nil {
		go e.readClicks(ctx)
	}

	agg := newAggregator(e.blocks, e.out, e.router, e.opts.Theme, e.opts.Debounce, e.logger)
	return agg.run(ctx, updates, e.force)
}

// RunOnce collects one snapshot from every block, writes a single frame, and
// returns. Blocks that produce nothing within timeout are left at their
// empty render. No protocol header is written.
func (e *Engine) RunOnce(ctx context.Context, timeout time.Duration) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan blocks.Update, e.opts.UpdateBuffer)
	e.startTasks(runCtx, updates)

	agg := newAggregator(e.blocks, e.out, e.router, e.opts.Theme, e.opts.Debounce, e.logger)

	seen := make(map[int]bool)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for len(seen) < len(e.blocks) {
		select {
		case u := <-updates:
			agg.apply(u)
			seen[u.ID] = true
		case <-deadline.C:
			e.logger.Debug("snapshot timeout", "collected", len(seen), "total", len(e.blocks))
			return agg.flush()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return agg.flush()
}

// ForceRefresh asks every refresh-capable block to re-render and flushes the
// current state immediately, bypassing the debounce window. Wired to SIGUSR1
// by main.
func (e *Engine) ForceRefresh() {
	for _, b := range e.blocks {
		if r, ok := b.(blocks.Refresher); ok {
			r.Refresh()
		}
	}
	select {
	case e.force <- struct{}{}:
	default:
	}
}

// startTasks launches one task pair (runner + mailbox forwarder) per block.
// The returned WaitGroup completes when every task has exited.
func (e *Engine) startTasks(ctx context.Context, updates chan<- blocks.Update) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i, b := range e.blocks {
		t := newTask(i, b, updates, e.logger)
		wg.Add(2)
		go func() {
			defer wg.Done()
			t.forward(ctx)
		}()
		go func() {
			defer wg.Done()
			t.run(ctx)
		}()
	}
	return &wg
}

// readClicks decodes the inbound click stream and hands each event to the
// router. A closed or broken stream stops click handling but never the bar.
func (e *Engine) readClicks(ctx context.Context) {
	r := protocol.NewClickReader(e.in, e.logger)
	for {
		ev, err := r.Read()
		if err != nil {
			if err == io.EOF {
				e.logger.Debug("click stream closed")
			} else {
				e.logger.Warn("click stream error", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		e.router.Dispatch(ev)
	}
}
