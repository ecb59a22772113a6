package console

import "sync"

// LineQueue stages lines produced by stream goroutines until the update
// loop drains them into a Buffer. This is the only point where network
// threads and the UI meet, so it carries the lock.
type LineQueue struct {
	mu    sync.Mutex
	lines []string
}

// Push appends a line to the queue.
func (q *LineQueue) Push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lines = append(q.lines, line)
}

// Drain removes and returns all queued lines in arrival order.
// Returns nil when the queue is empty.
func (q *LineQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.lines) == 0 {
		return nil
	}
	drained := q.lines
	q.lines = nil
	return drained
}

// Len returns the number of queued lines.
func (q *LineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}
