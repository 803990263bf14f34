package protocol

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// ClickReader decodes inbound click events from a byte stream. The bar sends
// one JSON object per line, wrapped in an enclosing array:
//
//	[
//	{"name":"volume","button":1,...}
//	,{"name":"clock","button":3,...}
//
// The reader tolerates the array bracket, leading commas, and blank lines,
// and skips records it cannot decode instead of failing the stream. Line
// length is unbounded: an overlong garbage line is consumed and skipped like
// any other malformed record.
type ClickReader struct {
	r      *bufio.Reader
	logger *slog.Logger
}

// NewClickReader creates a ClickReader on r (normally stdin).
func NewClickReader(r io.Reader, logger *slog.Logger) *ClickReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClickReader{
		r:      bufio.NewReader(r),
		logger: logger,
	}
}

// Read returns the next well-formed click event. It returns io.EOF when the
// stream ends and otherwise only the underlying read error; malformed
// records are logged and skipped.
func (r *ClickReader) Read() (ClickEvent, error) {
	for {
		line, err := r.r.ReadString('\n')
		// A partial line at EOF is still a candidate record.
		if ev, ok := r.decode(line); ok {
			return ev, nil
		}
		if err != nil {
			if err == io.EOF {
				return ClickEvent{}, io.EOF
			}
			return ClickEvent{}, err
		}
	}
}

// decode parses one line, stripping the array framing. The second return is
// false for blank lines, brackets, and records that do not parse.
func (r *ClickReader) decode(line string) (ClickEvent, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "[")
	line = strings.TrimPrefix(line, ",")
	line = strings.TrimSpace(line)
	if line == "" || line == "]" {
		return ClickEvent{}, false
	}

	var ev ClickEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		r.logger.Debug("discarding malformed click record", "error", err)
		return ClickEvent{}, false
	}
	return ev, true
}
