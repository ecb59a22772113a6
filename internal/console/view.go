package console

import (
	"fmt"
	"strings"
)

// View composes the active surface over the two-line toolbar. Content is
// padded to a fixed height so the toolbar stays anchored to the bottom.
func (m Model) View() string {
	if m.width < MinTerminalWidth {
		return fmt.Sprintf("terminal too narrow (need %d columns)", MinTerminalWidth)
	}

	height := m.contentHeight()

	var content string
	var modeLine string
	eventsLine := ""

	switch m.mode {
	case ModeTail:
		content = m.tail.Render(m.width, height)
		modeLine = m.tail.StatusLine()
	case ModeEvents:
		content = m.events.Render(m.width, height)
		modeLine = m.events.StatusLine()
		eventsLine = "events: " + m.events.State().String()
	case ModeWatch:
		content = m.watch.Render(m.width, height)
		modeLine = m.watch.StatusLine()
	case ModeView:
		content = m.view.Render(m.width, height)
		modeLine = m.view.StatusLine()
	default:
		content = m.renderNormal(height)
	}

	line1, line2 := m.toolbar.Lines(m.width, eventsLine, modeLine)
	return padToHeight(content, height) + "\n" + line1 + "\n" + line2
}

// renderNormal is the command-line surface: scrollback plus the prompt.
func (m Model) renderNormal(height int) string {
	scrollback := height - 1
	lines := m.out.VisibleLines(scrollback)
	for i, line := range lines {
		lines[i] = TruncateLine(line, m.width)
	}

	prompt := m.input.View()
	if m.hint != "" {
		prompt += "  " + SubtleTextStyle.Render(m.hint)
	}

	rows := make([]string, 0, scrollback+1)
	rows = append(rows, lines...)
	for len(rows) < scrollback {
		rows = append(rows, "")
	}
	rows = append(rows, prompt)
	return strings.Join(rows, "\n")
}

// padToHeight pads or clips content to exactly the given line count.
func padToHeight(content string, height int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
