package vpn

import (
	"context"
	"errors"
	"testing"
	"time"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/types/key"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/blocks"
)

// fakeClient serves a canned status.
type fakeClient struct {
	st  *ipnstate.Status
	err error
}

func (f *fakeClient) Status(ctx context.Context) (*ipnstate.Status, error) {
	return f.st, f.err
}

func runningStatus(online, offline int) *ipnstate.Status {
	st := &ipnstate.Status{
		BackendState: "Running",
		Peer:         map[key.NodePublic]*ipnstate.PeerStatus{},
	}
	for i := 0; i < online; i++ {
		st.Peer[key.NewNode().Public()] = &ipnstate.PeerStatus{Online: true}
	}
	for i := 0; i < offline; i++ {
		st.Peer[key.NewNode().Public()] = &ipnstate.PeerStatus{Online: false}
	}
	return st
}

func TestRenderRunning(t *testing.T) {
	rs := Render(runningStatus(2, 1))
	if rs.FullText != "ts up 2/3" {
		t.Errorf("FullText = %q, want %q", rs.FullText, "ts up 2/3")
	}
	if rs.State != blocks.StateGood {
		t.Errorf("State = %v, want good", rs.State)
	}
}

func TestRenderRunningNoPeers(t *testing.T) {
	rs := Render(&ipnstate.Status{BackendState: "Running"})
	if rs.FullText != "ts up 0/0" {
		t.Errorf("FullText = %q, want %q", rs.FullText, "ts up 0/0")
	}
}

func TestRenderStopped(t *testing.T) {
	rs := Render(&ipnstate.Status{BackendState: "Stopped"})
	if rs.FullText != "ts down" {
		t.Errorf("FullText = %q, want %q", rs.FullText, "ts down")
	}
	if rs.State != blocks.StateWarning {
		t.Errorf("State = %v, want warning", rs.State)
	}
}

func TestRenderIntermediateStates(t *testing.T) {
	for _, backend := range []string{"Starting", "NeedsLogin", "NeedsMachineAuth"} {
		rs := Render(&ipnstate.Status{BackendState: backend})
		if rs.FullText != "ts "+backend {
			t.Errorf("FullText = %q, want %q", rs.FullText, "ts "+backend)
		}
		if rs.State != blocks.StateInfo {
			t.Errorf("State = %v, want info for %q", rs.State, backend)
		}
	}
}

func TestRunEmitsStatus(t *testing.T) {
	b := New(Config{Interval: time.Hour}, &fakeClient{st: runningStatus(1, 0)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan blocks.RenderState, 1)
	go func() {
		_ = b.Run(ctx, func(rs blocks.RenderState) {
			select {
			case got <- rs:
			default:
			}
		})
	}()

	select {
	case rs := <-got:
		if rs.FullText != "ts up 1/1" {
			t.Errorf("FullText = %q, want %q", rs.FullText, "ts up 1/1")
		}
	case <-time.After(time.Second):
		t.Fatal("no render emitted")
	}
}

func TestRunDegradesWhenDaemonUnreachable(t *testing.T) {
	b := New(Config{Interval: time.Hour}, &fakeClient{err: errors.New("no socket")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan blocks.RenderState, 1)
	go func() {
		_ = b.Run(ctx, func(rs blocks.RenderState) {
			select {
			case got <- rs:
			default:
			}
		})
	}()

	select {
	case rs := <-got:
		if rs.FullText != "ts n/a" || rs.State != blocks.StateError {
			t.Errorf("render = %+v, want degraded", rs)
		}
	case <-time.After(time.Second):
		t.Fatal("no render emitted")
	}
}
