package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

// --- Writer tests ---

func TestWriterHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("header wrote %d lines, want 2: %q", len(lines), buf.String())
	}

	var hdr Header
	if err := json.Unmarshal([]byte(lines[0]), &hdr); err != nil {
		t.Fatalf("header line is not JSON: %v", err)
	}
	if hdr.Version != 1 {
		t.Errorf("Version = %d, want 1", hdr.Version)
	}
	if !hdr.ClickEvents {
		t.Error("ClickEvents should be true")
	}
	if lines[1] != "[" {
		t.Errorf("second line = %q, want \"[\"", lines[1])
	}
}

func TestWriterFrameSeparators(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.WriteHeader()
	buf.Reset()

	frame := []Block{{FullText: "one"}}
	if err := w.WriteFrame(frame); err != nil {
		t.Fatalf("first WriteFrame failed: %v", err)
	}
	if err := w.WriteFrame(frame); err != nil {
		t.Fatalf("second WriteFrame failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if strings.HasPrefix(lines[0], ",") {
		t.Errorf("first frame should not start with a comma: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], ",") {
		t.Errorf("second frame should start with a comma: %q", lines[1])
	}
}

func TestWriterFrameDeterministic(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	frame := []Block{
		{FullText: "clock", Instance: "clock/0"},
		{FullText: "50%", Instance: "volume/1", Color: "#a3be8c"},
	}
	_ = w.WriteFrame(frame)
	first := buf.String()
	buf.Reset()
	_ = w.WriteFrame(frame)
	second := strings.TrimPrefix(buf.String(), ",")

	if strings.TrimPrefix(first, ",") != second {
		t.Errorf("identical frames serialized differently:\n%q\n%q", first, second)
	}
}

func TestWriterFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	in := []Block{
		{FullText: "bat 42%", ShortText: "42%", Color: "#ebcb8b", Name: "battery", Instance: "battery/1", Urgent: true},
	}
	if err := w.WriteFrame(in); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	var out []Block
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("decoded %d blocks, want 1", len(out))
	}
	if out[0] != in[0] {
		t.Errorf("round trip mismatch: got %+v, want %+v", out[0], in[0])
	}
}

func TestWriterEmptyFullTextKept(t *testing.T) {
	// full_text has no omitempty: a block that has not rendered yet must
	// still occupy its slot in the frame.
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.WriteFrame([]Block{{}, {FullText: "x"}})

	if !strings.Contains(buf.String(), `"full_text":""`) {
		t.Errorf("empty slot missing from frame: %q", buf.String())
	}
}

// --- ClickReader tests ---

func TestClickReaderPlainObjects(t *testing.T) {
	in := `{"name":"volume","instance":"volume/2","button":1,"x":100,"y":5}
{"name":"clock","button":3}
`
	r := NewClickReader(strings.NewReader(in), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("first Read failed: %v", err)
	}
	if ev.Name != "volume" || ev.Instance != "volume/2" || ev.Button != 1 || ev.X != 100 || ev.Y != 5 {
		t.Errorf("unexpected event: %+v", ev)
	}

	ev, err = r.Read()
	if err != nil {
		t.Fatalf("second Read failed: %v", err)
	}
	if ev.Name != "clock" || ev.Button != 3 {
		t.Errorf("unexpected event: %+v", ev)
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Read at end = %v, want io.EOF", err)
	}
}

func TestClickReaderArrayFraming(t *testing.T) {
	// The i3bar convention wraps events in an endless array.
	in := "[\n{\"name\":\"a\",\"button\":1}\n,{\"name\":\"b\",\"button\":2}\n"
	r := NewClickReader(strings.NewReader(in), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ev.Name != "a" {
		t.Errorf("Name = %q, want %q", ev.Name, "a")
	}

	ev, err = r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ev.Name != "b" {
		t.Errorf("Name = %q, want %q", ev.Name, "b")
	}
}

func TestClickReaderSkipsMalformed(t *testing.T) {
	in := "[\n{truncated\n,not json at all\n,{\"name\":\"ok\",\"button\":1}\n"
	r := NewClickReader(strings.NewReader(in), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("Read should have skipped malformed records: %v", err)
	}
	if ev.Name != "ok" {
		t.Errorf("Name = %q, want %q", ev.Name, "ok")
	}
}

func TestClickReaderBlankAndBracketLines(t *testing.T) {
	in := "\n[\n\n]\n{\"name\":\"x\",\"button\":2}\n"
	r := NewClickReader(strings.NewReader(in), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ev.Name != "x" || ev.Button != 2 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestClickReaderModifiers(t *testing.T) {
	in := `{"name":"clock","button":1,"modifiers":["Shift","Mod4"]}` + "\n"
	r := NewClickReader(strings.NewReader(in), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(ev.Modifiers) != 2 || ev.Modifiers[0] != "Shift" || ev.Modifiers[1] != "Mod4" {
		t.Errorf("Modifiers = %v, want [Shift Mod4]", ev.Modifiers)
	}
}

func TestClickReaderSurvivesOverlongLine(t *testing.T) {
	// A line far beyond bufio.Scanner's default token limit must be
	// consumed and skipped, not kill the stream.
	long := strings.Repeat("x", 70*1024)
	in := long + "\n" + `{"name":"clock","button":1}` + "\n"
	r := NewClickReader(strings.NewReader(in), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("Read after overlong line failed: %v", err)
	}
	if ev.Name != "clock" || ev.Button != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestClickReaderPartialLineAtEOF(t *testing.T) {
	// A final record without a trailing newline still decodes.
	r := NewClickReader(strings.NewReader(`{"name":"volume","button":4}`), nil)

	ev, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ev.Name != "volume" || ev.Button != 4 {
		t.Errorf("unexpected event: %+v", ev)
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Read at end = %v, want io.EOF", err)
	}
}

func TestClickReaderEmptyStream(t *testing.T) {
	r := NewClickReader(strings.NewReader(""), nil)
	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Read on empty stream = %v, want io.EOF", err)
	}
}
