package console

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

// Events follows the bridge's system event stream into its own buffer.
// Event names are treated as an opaque wire contract; every event renders
// generically as its name plus flattened data fields.
type Events struct {
	stream *Stream
	buffer *Buffer
	queue  *LineQueue
	client *bridge.Client

	mu    sync.Mutex
	width int
}

// NewEvents creates an event follower. Start begins streaming.
func NewEvents(client *bridge.Client, width int) *Events {
	e := &Events{
		buffer: NewBuffer(),
		queue:  &LineQueue{},
		client: client,
		width:  width,
	}
	e.stream = NewStream(e.dial, e.handleMessage)
	return e
}

func (e *Events) dial(ctx context.Context) (StreamConn, error) {
	conn, err := e.client.DialEventStream(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (e *Events) handleMessage(message map[string]any) {
	name, _ := message["event"].(string)
	timestamp, _ := message["timestamp"].(string)
	data, _ := message["data"].(map[string]any)

	line := fmt.Sprintf("%s %s",
		FormatTimestamp(timestamp),
		ModeTitleStyle.Render(name),
	)
	if len(data) > 0 {
		keys := make([]string, 0, len(data))
		for key := range data {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", key, data[key]))
		}
		line += " " + SubtleTextStyle.Render(strings.Join(pairs, " "))
	}

	e.queue.Push(line)
}

// Start begins streaming.
func (e *Events) Start() {
	e.stream.Start()
}

// Stop settles the stream.
func (e *Events) Stop() {
	e.stream.Stop()
}

// State returns the stream's connection state.
func (e *Events) State() ConnState {
	return e.stream.State()
}

// Buffer exposes the event display buffer.
func (e *Events) Buffer() *Buffer {
	return e.buffer
}

// SetWidth updates the render width.
func (e *Events) SetWidth(width int) {
	e.mu.Lock()
	e.width = width
	e.mu.Unlock()
}

// Flush drains staged event lines into the buffer. Returns true when
// anything was flushed.
func (e *Events) Flush() bool {
	lines := e.queue.Drain()
	if len(lines) == 0 {
		return false
	}
	e.buffer.Append(strings.Join(lines, "\n") + "\n")
	e.buffer.TrimTo(TailBufferCap)
	return true
}

// StatusLine summarizes the event stream for the toolbar.
func (e *Events) StatusLine() string {
	return "Events: " + statusDot(e.State()) + " " + e.State().String()
}

// Render draws the events view.
func (e *Events) Render(width, height int) string {
	title := ModeTitleStyle.Render("EVENTS") + SubtleTextStyle.Render("  q/esc exit")
	body := height - 1
	lines := append([]string{title}, e.buffer.VisibleLines(body)...)
	return strings.Join(lines, "\n")
}
