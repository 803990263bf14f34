package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
)

// task wraps one block with failure isolation and a one-slot latest-wins
// mailbox. The mailbox decouples the block's emit calls from the shared
// updates channel: emitting never blocks the block's goroutine, per-block
// order is preserved, and a burst only ever loses superseded snapshots.
type task struct {
	id      int
	name    string
	block   blocks.Block
	mailbox chan blocks.Update
	out     chan<- blocks.Update
	logger  *slog.Logger
}

func newTask(id int, b blocks.Block, out chan<- blocks.Update, logger *slog.Logger) *task {
	return &task{
		id:      id,
		name:    b.Name(),
		block:   b,
		mailbox: make(chan blocks.Update, 1),
		out:     out,
		logger:  logger.With("block", b.Name(), "slot", id),
	}
}

// run executes the block. A panic or returned error is converted into a
// Failed update showing the fixed error indicator; it never propagates, so
// one broken block cannot take down its siblings or the engine.
func (t *task) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("block panicked", "panic", r)
			t.post(t.failed(fmt.Sprintf("panic: %v", r)))
		}
	}()

	err := t.block.Run(ctx, t.emit)
	if err != nil && ctx.Err() == nil {
		t.logger.Error("block failed", "error", err)
		t.post(t.failed(err.Error()))
	}
}

// emit is the EmitFunc handed to the block. Error-severity renders are
// reported as Degraded so the aggregator can track block health without a
// separate signal path.
func (t *task) emit(rs blocks.RenderState) {
	h := blocks.Health{Level: blocks.HealthRunning}
	if rs.State == blocks.StateError {
		h = blocks.Health{Level: blocks.HealthDegraded, Reason: rs.FullText}
	}
	t.post(blocks.Update{
		ID:        t.id,
		Name:      t.name,
		Render:    rs,
		Health:    h,
		Timestamp: time.Now(),
	})
}

// failed builds the terminal update for a dead block: a fixed error
// indicator occupies the slot for the rest of the run.
func (t *task) failed(reason string) blocks.Update {
	return blocks.Update{
		ID:   t.id,
		Name: t.name,
		Render: blocks.RenderState{
			FullText: t.name + ": error",
			State:    blocks.StateError,
		},
		Health:    blocks.Health{Level: blocks.HealthFailed, Reason: reason},
		Timestamp: time.Now(),
	}
}

// post places u in the mailbox, displacing any undelivered predecessor.
func (t *task) post(u blocks.Update) {
	for {
		select {
		case t.mailbox <- u:
			return
		default:
			select {
			case <-t.mailbox:
			default:
			}
		}
	}
}

// forward drains the mailbox into the shared updates channel until ctx is
// done.
func (t *task) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-t.mailbox:
			select {
			case t.out <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}
