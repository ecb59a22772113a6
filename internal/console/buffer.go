package console

import "strings"

// Buffer is an append-only, size-bounded text store with a cursor that
// marks the current scroll position. One Buffer backs each display surface
// (main output, log tail, events, watch overlay). Access is confined to
// the update loop; concurrent producers stage lines in a LineQueue and the
// loop flushes them here.
type Buffer struct {
	text   string
	cursor int
	follow bool
}

// NewBuffer creates an empty buffer with follow-tail enabled.
func NewBuffer() *Buffer {
	return &Buffer{follow: true}
}

// Append adds text at the end. When follow-tail is on the cursor jumps to
// the end; otherwise it stays put (it is already within bounds).
func (b *Buffer) Append(text string) {
	b.text += text
	if b.follow {
		b.cursor = len(b.text)
	}
}

// Set replaces the whole content. Used by controllers that re-render an
// overlay from scratch rather than appending.
func (b *Buffer) Set(text string, cursor int) {
	b.text = text
	b.cursor = clamp(cursor, 0, len(text))
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.text = ""
	b.cursor = 0
}

// TrimTo drops a whole-line prefix when the buffer exceeds maxChars, so
// memory stays bounded. The cut lands on the first newline at or after
// len-maxChars; a single line longer than maxChars is left intact rather
// than split.
func (b *Buffer) TrimTo(maxChars int) {
	if maxChars <= 0 || len(b.text) <= maxChars {
		return
	}

	cut := len(b.text) - maxChars
	idx := strings.IndexByte(b.text[cut:], '\n')
	if idx < 0 {
		return
	}

	removed := cut + idx + 1
	b.text = b.text[removed:]
	b.cursor = clamp(b.cursor-removed, 0, len(b.text))
}

// Text returns the full content.
func (b *Buffer) Text() string {
	return b.text
}

// Len returns the content length in bytes.
func (b *Buffer) Len() int {
	return len(b.text)
}

// Cursor returns the current cursor offset.
func (b *Buffer) Cursor() int {
	return b.cursor
}

// Follow reports whether follow-tail is on.
func (b *Buffer) Follow() bool {
	return b.follow
}

// SetFollow toggles follow-tail. Turning it on jumps the cursor to the
// end; turning it off freezes the cursor where it is.
func (b *Buffer) SetFollow(follow bool) {
	b.follow = follow
	if follow {
		b.cursor = len(b.text)
	}
}

// cursorLine returns the index of the line containing the cursor.
func (b *Buffer) cursorLine() int {
	return strings.Count(b.text[:b.cursor], "\n")
}

// ScrollLines moves the cursor by delta lines (negative is up). Scrolling
// turns follow-tail off so the position sticks; scrolling back to the last
// line does not re-enable it.
func (b *Buffer) ScrollLines(delta int) {
	if delta == 0 {
		return
	}
	b.follow = false

	lines := strings.Split(b.text, "\n")
	target := clamp(b.cursorLine()+delta, 0, len(lines)-1)

	// Cursor lands at the end of the target line
	offset := 0
	for i := 0; i < target; i++ {
		offset += len(lines[i]) + 1
	}
	b.cursor = clamp(offset+len(lines[target]), 0, len(b.text))
}

// VisibleLines returns the window of up to height lines ending at the
// cursor's line. With follow-tail on this is the newest content.
func (b *Buffer) VisibleLines(height int) []string {
	if height <= 0 {
		return nil
	}

	lines := strings.Split(b.text, "\n")
	end := b.cursorLine() + 1
	if end > len(lines) {
		end = len(lines)
	}
	start := end - height
	if start < 0 {
		start = 0
	}
	return lines[start:end]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
