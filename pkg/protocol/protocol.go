// Package protocol implements the i3bar JSON protocol: an outbound stream of
// status frames on stdout and an inbound stream of click events on stdin.
//
// Outbound, the stream is a header object followed by an endless JSON array
// whose elements are arrays of per-block records, one element per flush.
// Inbound, the bar sends one JSON object per click, conventionally wrapped in
// an enclosing array with comma separators. Both directions are independent;
// a Writer and a ClickReader never share state.
package protocol

// Header is the first line of the outbound stream. It declares the protocol
// version and whether the bar should forward click events back to us.
type Header struct {
	Version     int  `json:"version"`
	ClickEvents bool `json:"click_events,omitempty"`
	ContSignal  int  `json:"cont_signal,omitempty"`
	StopSignal  int  `json:"stop_signal,omitempty"`
}

// Block is one per-block record within a frame. Field names follow the i3bar
// protocol; Instance carries the click-correlation tag echoed back by the bar
// in ClickEvent.Instance.
type Block struct {
	FullText   string `json:"full_text"`
	ShortText  string `json:"short_text,omitempty"`
	Color      string `json:"color,omitempty"`
	Background string `json:"background,omitempty"`
	Name       string `json:"name,omitempty"`
	Instance   string `json:"instance,omitempty"`
	Urgent     bool   `json:"urgent,omitempty"`
	Markup     string `json:"markup,omitempty"`

	// Separator suppresses the bar's separator after this block when set.
	// The protocol default (separator shown) applies when omitted.
	Separator *bool `json:"separator,omitempty"`
}

// ClickEvent is one decoded inbound click record.
type ClickEvent struct {
	Name      string   `json:"name"`
	Instance  string   `json:"instance"`
	Button    int      `json:"button"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	RelativeX int      `json:"relative_x"`
	RelativeY int      `json:"relative_y"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Modifiers []string `json:"modifiers"`
}

// Mouse button codes as delivered by the bar.
const (
	ButtonLeft      = 1
	ButtonMiddle    = 2
	ButtonRight     = 3
	ButtonWheelUp   = 4
	ButtonWheelDown = 5
)

// Output is the sink the aggregator flushes to. The JSON Writer is the
// production implementation; termline provides a human-readable one for
// terminals.
type Output interface {
	// WriteHeader emits whatever preamble the output format requires. It is
	// called exactly once, before the first frame.
	WriteHeader() error

	// WriteFrame emits one complete frame in slot order.
	WriteFrame(frame []Block) error
}
