package script

import (
	"context"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

func TestNewRequiresCommand(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without a command should fail")
	}
}

func TestNewDefaults(t *testing.T) {
	b, err := New(Config{Command: "true"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if b.Name() != "script" {
		t.Errorf("Name() = %q, want %q", b.Name(), "script")
	}
	if b.cfg.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", b.cfg.Interval, DefaultInterval)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		exitCode int
		want     blocks.RenderState
	}{
		{
			name: "single line",
			out:  "inbox: 3\n",
			want: blocks.RenderState{FullText: "inbox: 3", State: blocks.StateIdle},
		},
		{
			name: "second line is short text",
			out:  "inbox: 3 unread\n3\n",
			want: blocks.RenderState{FullText: "inbox: 3 unread", ShortText: "3", State: blocks.StateIdle},
		},
		{
			name:     "exit 33 is urgent",
			out:      "disk full\n",
			exitCode: 33,
			want:     blocks.RenderState{FullText: "disk full", State: blocks.StateCritical},
		},
		{
			name:     "nonzero exit is an error",
			out:      "oops\n",
			exitCode: 1,
			want:     blocks.RenderState{FullText: "oops", State: blocks.StateError},
		},
		{
			name:     "nonzero exit with no output",
			out:      "",
			exitCode: 2,
			want:     blocks.RenderState{FullText: "mail n/a", State: blocks.StateError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render("mail", tt.out, tt.exitCode)
			if got != tt.want {
				t.Errorf("render() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRunOnceExecutes(t *testing.T) {
	b, err := New(Config{Command: "echo hello"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rs := b.runOnce(context.Background(), 0)
	if rs.FullText != "hello" {
		t.Errorf("FullText = %q, want %q", rs.FullText, "hello")
	}
	if rs.State != blocks.StateIdle {
		t.Errorf("State = %v, want idle", rs.State)
	}
}

func TestRunOnceExportsButton(t *testing.T) {
	b, err := New(Config{Command: "echo button=$BLOCK_BUTTON"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rs := b.runOnce(context.Background(), 3)
	if rs.FullText != "button=3" {
		t.Errorf("FullText = %q, want %q", rs.FullText, "button=3")
	}
}

func TestRunOnceMissingCommand(t *testing.T) {
	b, err := New(Config{Command: "exit 7"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rs := b.runOnce(context.Background(), 0)
	if rs.State != blocks.StateError {
		t.Errorf("State = %v, want error for failing command", rs.State)
	}
}

func TestClickReRunsWithButton(t *testing.T) {
	b, err := New(Config{Command: "echo b$BLOCK_BUTTON", Interval: time.Hour})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan blocks.RenderState, 8)
	go func() {
		_ = b.Run(ctx, func(rs blocks.RenderState) { got <- rs })
	}()

	// First run happens without a button.
	select {
	case rs := <-got:
		if rs.FullText != "b0" {
			t.Errorf("initial FullText = %q, want %q", rs.FullText, "b0")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial run")
	}

	b.OnClick(protocol.ClickEvent{Button: protocol.ButtonRight})
	select {
	case rs := <-got:
		if rs.FullText != "b3" {
			t.Errorf("click FullText = %q, want %q", rs.FullText, "b3")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no run after click")
	}
}
