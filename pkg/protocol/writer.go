package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"syscall"
)

// Writer emits the outbound i3bar stream. It is safe for concurrent use,
// although in practice only the aggregator task writes to it.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	header Header
	first  bool
}

// NewWriter creates a Writer targeting w (normally stdout) with the default
// header: protocol version 1, click events enabled, and SIGCONT/SIGSTOP as
// the bar's pause signals.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: w,
		header: Header{
			Version:     1,
			ClickEvents: true,
			ContSignal:  int(syscall.SIGCONT),
			StopSignal:  int(syscall.SIGSTOP),
		},
		first: true,
	}
}

// WriteHeader writes the header object and opens the endless frame array.
func (w *Writer) WriteHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hdr, err := json.Marshal(w.header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "%s\n[\n", hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteFrame appends one frame to the stream. Serialization is deterministic:
// flushing unchanged state reproduces byte-identical output.
func (w *Writer) WriteFrame(frame []Block) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	// The protocol wants comma separators between array elements.
	sep := ","
	if w.first {
		sep = ""
		w.first = false
	}
	if _, err := fmt.Fprintf(w.w, "%s%s\n", sep, body); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
