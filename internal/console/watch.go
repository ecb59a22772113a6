package console

import (
	"fmt"
	"strings"
	"time"
)

const (
	// WatchIntervalFloor prevents a watch from hammering the bridge.
	WatchIntervalFloor = 500 * time.Millisecond

	// WatchIntervalStep is the adjustment applied by the +/- keys.
	WatchIntervalStep = 500 * time.Millisecond

	// DefaultWatchInterval is used when the command names no interval.
	DefaultWatchInterval = 2 * time.Second
)

// RenderFunc produces one snapshot of a watch target's output. Command
// renderers return their text as a value, so a watch can redirect it into
// its own overlay without ever touching the main output buffer.
type RenderFunc func() (string, error)

// Watch periodically re-renders one target into an overlay buffer.
type Watch struct {
	target   string
	interval time.Duration
	render   RenderFunc
	buffer   *Buffer
}

// NewWatch creates a watch on target driven by render. The interval is
// clamped to the floor.
func NewWatch(target string, interval time.Duration, render RenderFunc) *Watch {
	w := &Watch{
		target: target,
		render: render,
		buffer: NewBuffer(),
	}
	w.SetInterval(interval)
	return w
}

// Target returns the watched target name.
func (w *Watch) Target() string {
	return w.target
}

// Interval returns the current refresh interval.
func (w *Watch) Interval() time.Duration {
	return w.interval
}

// SetInterval changes the refresh interval, clamped to the floor. Takes
// effect on the next tick.
func (w *Watch) SetInterval(interval time.Duration) {
	if interval < WatchIntervalFloor {
		interval = WatchIntervalFloor
	}
	w.interval = interval
}

// Adjust shifts the interval by delta (the +/- keys pass ±0.5s).
func (w *Watch) Adjust(delta time.Duration) {
	w.SetInterval(w.interval + delta)
}

// Buffer exposes the watch overlay buffer.
func (w *Watch) Buffer() *Buffer {
	return w.buffer
}

// Capture invokes the renderer. It blocks on the bridge, so callers run
// it off the UI loop and hand the result to Apply.
func (w *Watch) Capture() (string, error) {
	return w.render()
}

// Apply installs one captured refresh: replace the overlay with a
// timestamped header plus the captured output. Errors render in place of
// the output and the watch keeps ticking.
func (w *Watch) Apply(now time.Time, output string, err error) {
	header := fmt.Sprintf("%s  %s  interval %.1fs",
		ModeTitleStyle.Render("WATCH "+w.target),
		now.Format("15:04:05"),
		w.interval.Seconds(),
	)

	if err != nil {
		output = RenderError(err.Error())
	}

	w.buffer.Set(header+"\n\n"+output, 0)
}

// StatusLine summarizes the watch for the toolbar.
func (w *Watch) StatusLine() string {
	return fmt.Sprintf("Watch: %s every %.1fs | +/- adjust, q/esc exit", w.target, w.interval.Seconds())
}

// Render draws the overlay, anchored to the top of the snapshot.
func (w *Watch) Render(width, height int) string {
	lines := strings.Split(w.buffer.Text(), "\n")
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		lines[i] = TruncateLine(line, width)
	}
	return strings.Join(lines, "\n")
}
