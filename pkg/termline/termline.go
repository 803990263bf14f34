// Package termline renders frames as plain colored text, one line per
// flush. It substitutes for the JSON protocol writer when stdout is a
// terminal rather than a bar, so running bar-pulse by hand produces
// something readable.
package termline

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/bar-pulse/pkg/protocol"
)

// DefaultSeparator is placed between adjacent block texts.
const DefaultSeparator = " | "

// Writer implements protocol.Output with human-readable output.
type Writer struct {
	w   io.Writer
	out *termenv.Output
	sep string
}

// NewWriter creates a terminal-line writer on w. Color degradation (256
// color, ANSI, none) follows termenv's profile detection for w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   w,
		out: termenv.NewOutput(w),
		sep: DefaultSeparator,
	}
}

// WriteHeader is a no-op; plain text needs no preamble.
func (w *Writer) WriteHeader() error { return nil }

// WriteFrame prints one line with all non-empty block texts in slot order.
func (w *Writer) WriteFrame(frame []protocol.Block) error {
	parts := make([]string, 0, len(frame))
	for _, b := range frame {
		if b.FullText == "" {
			continue
		}
		text := b.FullText
		if b.Color != "" {
			text = w.out.String(text).Foreground(w.out.Color(b.Color)).String()
		}
		if b.Urgent {
			text = w.out.String(text).Bold().String()
		}
		parts = append(parts, text)
	}
	if _, err := fmt.Fprintln(w.w, strings.Join(parts, w.sep)); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
