package console

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

const (
	// TailBatchInterval is how often queued lines are flushed to the
	// buffer. Batching keeps a chatty stream from forcing a redraw per
	// message.
	TailBatchInterval = 100 * time.Millisecond

	// TailBufferCap bounds the tail buffer size in characters.
	TailBufferCap = 500_000
)

// LogTail follows the bridge's live log stream into its own bounded
// buffer. Incoming entries are formatted and staged in a queue; Flush
// moves them into the buffer in one append per batch interval.
type LogTail struct {
	stream *Stream
	buffer *Buffer
	queue  *LineQueue
	client *bridge.Client

	mu     sync.Mutex
	level  string
	logger string
	width  int
}

// NewLogTail creates a tail bound to the log stream with optional level
// and logger filters. Start begins streaming.
func NewLogTail(client *bridge.Client, level, logger string, width int) *LogTail {
	t := &LogTail{
		buffer: NewBuffer(),
		queue:  &LineQueue{},
		client: client,
		level:  level,
		logger: logger,
		width:  width,
	}
	t.stream = NewStream(t.dial, t.handleMessage)
	t.stream.OnConnect = t.pushFilters
	return t
}

func (t *LogTail) dial(ctx context.Context) (StreamConn, error) {
	level, logger := t.Filters()
	conn, err := t.client.DialLogStream(ctx, level, logger)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// pushFilters sends the current filters as the stream's initial payload,
// covering filters changed while disconnected.
func (t *LogTail) pushFilters(conn StreamConn) {
	level, logger := t.Filters()
	_ = conn.WriteJSON(bridge.LogFilter{Level: level, Logger: logger})
}

func (t *LogTail) handleMessage(message map[string]any) {
	entry := logEntryFromMessage(message)

	t.mu.Lock()
	width := t.width
	t.mu.Unlock()

	t.queue.Push(FormatTailLine(entry, width))
}

// Start begins streaming.
func (t *LogTail) Start() {
	t.stream.Start()
}

// Stop settles the stream; no lines arrive after it returns.
func (t *LogTail) Stop() {
	t.stream.Stop()
}

// State returns the stream's connection state.
func (t *LogTail) State() ConnState {
	return t.stream.State()
}

// Buffer exposes the tail's display buffer.
func (t *LogTail) Buffer() *Buffer {
	return t.buffer
}

// Filters returns the current level and logger filters.
func (t *LogTail) Filters() (level, logger string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level, t.logger
}

// SetFilters updates the filters. When connected the update is pushed
// over the live socket; otherwise it takes effect on the next reconnect.
func (t *LogTail) SetFilters(level, logger string) {
	t.mu.Lock()
	t.level = level
	t.logger = logger
	t.mu.Unlock()

	t.stream.WithConn(func(conn StreamConn) error {
		return conn.WriteJSON(bridge.LogFilter{Level: level, Logger: logger})
	})
}

// SetWidth updates the wrap width used for formatting new lines.
func (t *LogTail) SetWidth(width int) {
	t.mu.Lock()
	t.width = width
	t.mu.Unlock()
}

// Flush drains the staged lines into the buffer as a single append and
// trims to the cap. Returns true when anything was flushed, so the caller
// can schedule exactly one redraw per non-empty batch.
func (t *LogTail) Flush() bool {
	lines := t.queue.Drain()
	if len(lines) == 0 {
		return false
	}
	t.buffer.Append(strings.Join(lines, "\n") + "\n")
	t.buffer.TrimTo(TailBufferCap)
	return true
}

// StatusLine summarizes the tail for the toolbar.
func (t *LogTail) StatusLine() string {
	level, logger := t.Filters()
	parts := []string{"Tail: " + statusDot(t.State()) + " " + t.State().String()}
	if level != "" {
		parts = append(parts, "Level: "+level)
	}
	if logger != "" {
		parts = append(parts, "Logger: "+logger)
	}
	if t.buffer.Follow() {
		parts = append(parts, "Follow: on")
	} else {
		parts = append(parts, "Follow: off")
	}
	return strings.Join(parts, " | ")
}

// Render draws the tail view: a title line and the newest buffer window.
func (t *LogTail) Render(width, height int) string {
	title := ModeTitleStyle.Render("LOG TAIL") + SubtleTextStyle.Render("  q/esc exit, end resume follow")
	body := height - 1
	lines := append([]string{title}, t.buffer.VisibleLines(body)...)
	return strings.Join(lines, "\n")
}
