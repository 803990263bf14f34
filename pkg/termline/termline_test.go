package termline

import (
	"bytes"
	"strings"
	"testing"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

func TestWriteFrameJoinsTexts(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	frame := []protocol.Block{
		{FullText: "09:15", Name: "clock"},
		{FullText: "82%", Name: "battery"},
		{FullText: "35%", Name: "volume"},
	}
	if err := w.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	// A bytes.Buffer is not a terminal, so termenv degrades to plain text.
	got := strings.TrimRight(buf.String(), "\n")
	want := "09:15 | 82% | 35%"
	if got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestWriteFrameSkipsEmptySlots(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	frame := []protocol.Block{
		{FullText: "09:15"},
		{FullText: ""},
		{FullText: "35%"},
	}
	if err := w.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got := strings.TrimRight(buf.String(), "\n")
	want := "09:15 | 35%"
	if got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestWriteHeaderIsSilent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("WriteHeader wrote %q, want nothing", buf.String())
	}
}

func TestWriteFrameEachFlushIsOneLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	_ = w.WriteFrame([]protocol.Block{{FullText: "a"}})
	_ = w.WriteFrame([]protocol.Block{{FullText: "b"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("lines = %v, want [a b]", lines)
	}
}
