package blocks

import (
	"context"
	"sync"
	"sync/atomic"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// MockBlock implements Block, Clickable, and Refresher for testing. Tests
// drive it by calling Emit directly and inspect the clicks and refreshes it
// received.
type MockBlock struct {
	name     string
	initial  *RenderState
	runErr   error
	panicMsg string

	mu      sync.Mutex
	emit    EmitFunc
	clicks  []protocol.ClickEvent
	ready   chan struct{}
	refresh atomic.Int64
}

// MockBlockOption configures a MockBlock.
type MockBlockOption func(*MockBlock)

// WithInitialRender makes the mock emit rs as soon as Run starts.
func WithInitialRender(rs RenderState) MockBlockOption {
	return func(m *MockBlock) { m.initial = &rs }
}

// WithRunError makes Run fail immediately with err, simulating a block whose
// task dies.
func WithRunError(err error) MockBlockOption {
	return func(m *MockBlock) { m.runErr = err }
}

// WithPanic makes Run panic with msg, for exercising the engine's isolation
// wrapper.
func WithPanic(msg string) MockBlockOption {
	return func(m *MockBlock) { m.panicMsg = msg }
}

// NewMockBlock creates a mock block with the given name and options.
func NewMockBlock(name string, opts ...MockBlockOption) *MockBlock {
	m := &MockBlock{
		name:  name,
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the mock's name.
func (m *MockBlock) Name() string { return m.name }

// Run stores emit for later use by Emit, publishes the initial render if
// configured, then blocks until ctx is done (or fails per the options).
func (m *MockBlock) Run(ctx context.Context, emit EmitFunc) error {
	m.mu.Lock()
	m.emit = emit
	m.mu.Unlock()
	close(m.ready)

	if m.initial != nil {
		emit(*m.initial)
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return nil
}

// Ready is closed once Run has started and Emit may be called.
func (m *MockBlock) Ready() <-chan struct{} { return m.ready }

// Emit publishes rs as if the block's source produced new content. It is a
// no-op before Run starts.
func (m *MockBlock) Emit(rs RenderState) {
	m.mu.Lock()
	emit := m.emit
	m.mu.Unlock()
	if emit != nil {
		emit(rs)
	}
}

// OnClick records the event for later inspection.
func (m *MockBlock) OnClick(ev protocol.ClickEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, ev)
}

// Clicks returns a copy of all click events received so far.
func (m *MockBlock) Clicks() []protocol.ClickEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.ClickEvent, len(m.clicks))
	copy(out, m.clicks)
	return out
}

// Refresh counts forced refreshes and re-emits the initial render if one was
// configured.
func (m *MockBlock) Refresh() {
	m.refresh.Add(1)
	if m.initial != nil {
		m.Emit(*m.initial)
	}
}

// RefreshCount returns how many times Refresh has been called.
func (m *MockBlock) RefreshCount() int64 { return m.refresh.Load() }
