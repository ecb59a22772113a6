package console

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

const columnSep = "  "

// TruncateLine cuts a line to width with an ellipsis, never wrapping.
// ANSI-styled text is measured by visible width.
func TruncateLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return ansi.Truncate(s, width-1, "") + "…"
}

// WrapText word-wraps text to width and returns the resulting lines.
func WrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	return strings.Split(ansi.Wrap(s, width, " "), "\n")
}

// FormatTimestamp reduces an ISO-8601 timestamp to its clock time for
// column display. Unparseable input passes through untouched.
func FormatTimestamp(ts string) string {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return parsed.Format("15:04:05")
}

// pad right-pads s with spaces to the given visible width.
func pad(s string, width int) string {
	gap := width - ansi.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// fitColumns sizes len(headers) columns into width: natural widths first,
// then the widest columns give up space until the row fits.
func fitColumns(headers []string, rows [][]string, width int) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = ansi.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := ansi.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	available := width - len(columnSep)*(len(widths)-1)
	total := 0
	for _, w := range widths {
		total += w
	}
	for total > available {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 4 {
			break
		}
		widths[widest]--
		total--
	}
	return widths
}

// wrapRow wraps each cell to its column width and returns the sub-rows
// needed to show the whole entry.
func wrapRow(row []string, widths []int) []string {
	cells := make([][]string, len(widths))
	height := 1
	for i := range widths {
		content := ""
		if i < len(row) {
			content = row[i]
		}
		cells[i] = WrapText(content, widths[i])
		if len(cells[i]) > height {
			height = len(cells[i])
		}
	}

	lines := make([]string, 0, height)
	for sub := 0; sub < height; sub++ {
		parts := make([]string, len(widths))
		for i := range widths {
			segment := ""
			if sub < len(cells[i]) {
				segment = cells[i][sub]
			}
			parts[i] = pad(segment, widths[i])
		}
		lines = append(lines, strings.TrimRight(strings.Join(parts, columnSep), " "))
	}
	return lines
}

// Table renders rows under headers, sized to width, word-wrapping cells
// across sub-rows. When maxLines > 0 rendering stops before the line
// budget overflows; a trailing note marks the rows left out.
func Table(headers []string, rows [][]string, width int, maxLines int) string {
	widths := fitColumns(headers, rows, width)

	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = TableHeaderStyle.Render(h)
	}

	lines := wrapRow(styled, widths)
	sepWidth := 0
	for _, w := range widths {
		sepWidth += w
	}
	sepWidth += len(columnSep) * (len(widths) - 1)
	lines = append(lines, SubtleTextStyle.Render(strings.Repeat("─", sepWidth)))

	shown := 0
	rowStarts := make([]int, 0, len(rows))
	for _, row := range rows {
		sub := wrapRow(row, widths)
		if maxLines > 0 && len(lines)+len(sub) > maxLines {
			// The cutoff notice needs its own line inside the budget.
			if len(lines) >= maxLines && len(rowStarts) > 0 {
				lines = lines[:rowStarts[len(rowStarts)-1]]
				shown--
			}
			remaining := len(rows) - shown
			lines = append(lines, SubtleTextStyle.Render(fmt.Sprintf("… %d more row(s) not shown", remaining)))
			break
		}
		rowStarts = append(rowStarts, len(lines))
		lines = append(lines, sub...)
		shown++
	}
	return strings.Join(lines, "\n")
}

// extraKeyUnion collects the sorted union of extra keys across entries.
func extraKeyUnion(entries []bridge.LogEntry) []string {
	seen := map[string]bool{}
	for _, e := range entries {
		for key := range e.Extra {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RenderLogTable renders log entries as a width-fitted table. Columns are
// timestamp, level, logger, message plus the sorted union of extra keys
// present on this set of entries.
func RenderLogTable(entries []bridge.LogEntry, width, maxLines int) string {
	extraKeys := extraKeyUnion(entries)

	headers := []string{"TIME", "LEVEL", "LOGGER", "MESSAGE"}
	for _, key := range extraKeys {
		headers = append(headers, strings.ToUpper(key))
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{
			FormatTimestamp(e.Timestamp),
			RenderLevel(e.Level),
			e.Logger,
			e.Message,
		}
		for _, key := range extraKeys {
			row = append(row, e.Extra[key])
		}
		rows = append(rows, row)
	}

	return Table(headers, rows, width, maxLines)
}

// FormatTailLine formats one streamed log entry for the tail buffer: a
// primary line plus indented continuation lines for any extra fields,
// word-wrapped to the terminal width.
func FormatTailLine(entry bridge.LogEntry, width int) string {
	line := fmt.Sprintf("%s %s %s: %s",
		FormatTimestamp(entry.Timestamp),
		pad(RenderLevel(entry.Level), 8),
		entry.Logger,
		entry.Message,
	)

	if len(entry.Extra) == 0 {
		return line
	}

	keys := make([]string, 0, len(entry.Extra))
	for key := range entry.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+entry.Extra[key])
	}

	const indent = "    "
	wrapWidth := width - len(indent)
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	continuation := WrapText(SubtleTextStyle.Render(strings.Join(pairs, " ")), wrapWidth)
	for _, c := range continuation {
		line += "\n" + indent + c
	}
	return line
}

// logEntryFromMessage converts a decoded stream object into a LogEntry,
// splitting unknown keys into Extra the same way the REST decoder does.
func logEntryFromMessage(message map[string]any) bridge.LogEntry {
	var entry bridge.LogEntry
	data, err := json.Marshal(message)
	if err != nil {
		return entry
	}
	_ = json.Unmarshal(data, &entry)
	return entry
}
