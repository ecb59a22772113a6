package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

// ViewRefreshInterval is the log browser's auto-refresh period.
const ViewRefreshInterval = 5 * time.Second

// viewChromeRows is the screen rows reserved around the table: title,
// pagination footer, toolbar, and prompt row.
const viewChromeRows = 6

// minPageSize keeps the view usable on tiny terminals.
const minPageSize = 5

// SearchSpec is an active log search: pattern plus regex flag. Search and
// plain pagination are mutually exclusive fetch modes.
type SearchSpec struct {
	Pattern string
	Regex   bool
}

// ModalKind selects which modal is open over the log view.
type ModalKind int

const (
	ModalFilter ModalKind = iota
	ModalSearch
	ModalHelp
)

// Modal is a text-entry sub-state over the log view. While open it
// captures all keystrokes; the underlying view must not see them.
type Modal struct {
	Kind   ModalKind
	Input  []rune
	Cursor int
	Regex  bool // search modal only, toggled with ctrl+r
}

// levelCycle is the order the l key steps through; the empty string is
// "all levels".
var levelCycle = []string{"INFO", "WARNING", "ERROR", "CRITICAL", ""}

// LogView is the pull-based paginated log browser. It polls GET /logs (or
// /logs/search in search mode), renders one page as a table, and
// refreshes itself every 5 seconds. All mutation happens in the update
// loop; fetches run in background commands against a snapshotted query.
type LogView struct {
	client *bridge.Client

	pageSize   int
	page       int
	totalPages int
	level      string
	logger     string
	search     *SearchSpec
	follow     bool
	modal      *Modal
	errMsg     string
	rows       []bridge.LogEntry
	started    bool
}

// NewLogView creates a browser with optional initial filters. Page size
// is computed from the terminal height once, at construction.
func NewLogView(client *bridge.Client, height int, level, logger string) *LogView {
	pageSize := height - viewChromeRows
	if pageSize < minPageSize {
		pageSize = minPageSize
	}
	return &LogView{
		client:   client,
		pageSize: pageSize,
		level:    level,
		logger:   logger,
	}
}

// NewLogSearch creates a browser that opens directly in search mode.
func NewLogSearch(client *bridge.Client, height int, pattern string, regex bool, level, logger string) *LogView {
	v := NewLogView(client, height, level, logger)
	v.search = &SearchSpec{Pattern: pattern, Regex: regex}
	return v
}

// viewQuery snapshots everything a fetch needs, so the fetch can run off
// the update loop without racing state changes.
type viewQuery struct {
	search   *SearchSpec
	level    string
	logger   string
	page     int
	pageSize int
	jumpLast bool
}

// viewData is a fetch result, applied back on the update loop.
type viewData struct {
	rows       []bridge.LogEntry
	totalPages int
	page       int
	err        error
}

// Query snapshots the current fetch parameters. The first fetch and every
// follow-mode fetch retarget the last page so the newest logs show.
func (v *LogView) Query() viewQuery {
	return viewQuery{
		search:   v.search,
		level:    v.level,
		logger:   v.logger,
		page:     v.page,
		pageSize: v.pageSize,
		jumpLast: !v.started || v.follow,
	}
}

// fetchView executes one snapshotted query against the bridge. In search
// mode the server returns everything in one logical page. In paginated
// mode a second round-trip may be needed when the landing page turns out
// wrong (initial jump to last, follow retarget, or total shrank under the
// current page).
func fetchView(client *bridge.Client, q viewQuery) viewData {
	if q.search != nil {
		result, err := client.SearchLogs(bridge.SearchQuery{
			Pattern: q.search.Pattern,
			Regex:   q.search.Regex,
			Limit:   q.pageSize,
		})
		if err != nil {
			return viewData{err: err}
		}
		return viewData{rows: result.Logs, totalPages: 1, page: 0}
	}

	page := q.page
	for attempt := 0; ; attempt++ {
		resp, err := client.GetLogs(bridge.LogQuery{
			Level:  q.level,
			Logger: q.logger,
			Limit:  q.pageSize,
			Offset: page * q.pageSize,
		})
		if err != nil {
			return viewData{err: err}
		}

		totalPages := (resp.Total + q.pageSize - 1) / q.pageSize

		target := page
		if q.jumpLast || page >= totalPages {
			target = totalPages - 1
			if target < 0 {
				target = 0
			}
		}
		if target == page || attempt >= 1 {
			return viewData{rows: resp.Logs, totalPages: totalPages, page: target}
		}
		page = target
	}
}

// Apply installs a fetch result. Errors clear the table and display in
// its place; the next refresh recovers automatically. An open modal is
// never disturbed by a refresh.
func (v *LogView) Apply(data viewData) {
	if data.err != nil {
		v.errMsg = bridge.ShortMessage(data.err)
		v.rows = nil
		v.totalPages = 0
		v.page = 0
		return
	}
	v.errMsg = ""
	v.rows = data.rows
	v.totalPages = data.totalPages
	v.page = data.page
	v.started = true
}

// Page returns the current 0-indexed page.
func (v *LogView) Page() int { return v.page }

// TotalPages returns the page count (0 when nothing is loaded).
func (v *LogView) TotalPages() int { return v.totalPages }

// PageSize returns the computed rows per page.
func (v *LogView) PageSize() int { return v.pageSize }

// Rows returns the current page's entries.
func (v *LogView) Rows() []bridge.LogEntry { return v.rows }

// Error returns the displayed fetch error, empty when healthy.
func (v *LogView) Error() string { return v.errMsg }

// Searching reports whether search mode is active.
func (v *LogView) Searching() bool { return v.search != nil }

// Follow reports whether follow mode is on.
func (v *LogView) Follow() bool { return v.follow }

// Modal returns the open modal, nil when none.
func (v *LogView) Modal() *Modal { return v.modal }

// NextPage advances one page. Returns true when the page changed and a
// refetch is needed.
func (v *LogView) NextPage() bool {
	if v.totalPages == 0 || v.page >= v.totalPages-1 {
		return false
	}
	v.page++
	return true
}

// PrevPage steps back one page.
func (v *LogView) PrevPage() bool {
	if v.page == 0 {
		return false
	}
	v.page--
	return true
}

// FirstPage jumps to page 0.
func (v *LogView) FirstPage() bool {
	if v.page == 0 {
		return false
	}
	v.page = 0
	return true
}

// LastPage jumps to the final page.
func (v *LogView) LastPage() bool {
	if v.totalPages == 0 || v.page == v.totalPages-1 {
		return false
	}
	v.page = v.totalPages - 1
	return true
}

// CycleLevel steps the level filter INFO, WARNING, ERROR, CRITICAL, all.
// Changing the filter resets to page 0.
func (v *LogView) CycleLevel() {
	next := levelCycle[0]
	for i, level := range levelCycle {
		if level == v.level {
			next = levelCycle[(i+1)%len(levelCycle)]
			break
		}
	}
	v.level = next
	v.page = 0
}

// Level returns the active level filter, empty for all.
func (v *LogView) Level() string { return v.level }

// Logger returns the active logger filter.
func (v *LogView) Logger() string { return v.logger }

// ClearLogger drops the logger filter and resets to page 0.
func (v *LogView) ClearLogger() {
	v.logger = ""
	v.page = 0
}

// ToggleFollow flips follow mode.
func (v *LogView) ToggleFollow() {
	v.follow = !v.follow
}

// OpenFilterModal opens the logger-filter modal seeded with the current
// filter, cursor at end.
func (v *LogView) OpenFilterModal() {
	input := []rune(v.logger)
	v.modal = &Modal{Kind: ModalFilter, Input: input, Cursor: len(input)}
}

// OpenSearchModal opens the search modal seeded with the current pattern.
func (v *LogView) OpenSearchModal() {
	var input []rune
	regex := false
	if v.search != nil {
		input = []rune(v.search.Pattern)
		regex = v.search.Regex
	}
	v.modal = &Modal{Kind: ModalSearch, Input: input, Cursor: len(input), Regex: regex}
}

// OpenHelpModal opens the keybinding help overlay.
func (v *LogView) OpenHelpModal() {
	v.modal = &Modal{Kind: ModalHelp}
}

// ModalInsert inserts a character at the modal cursor.
func (v *LogView) ModalInsert(r rune) {
	m := v.modal
	if m == nil {
		return
	}
	m.Input = append(m.Input[:m.Cursor], append([]rune{r}, m.Input[m.Cursor:]...)...)
	m.Cursor++
}

// ModalBackspace deletes the character before the modal cursor.
func (v *LogView) ModalBackspace() {
	m := v.modal
	if m == nil || m.Cursor == 0 {
		return
	}
	m.Input = append(m.Input[:m.Cursor-1], m.Input[m.Cursor:]...)
	m.Cursor--
}

// ModalMove shifts the modal cursor by delta, clamped to the input.
func (v *LogView) ModalMove(delta int) {
	m := v.modal
	if m == nil {
		return
	}
	m.Cursor = clamp(m.Cursor+delta, 0, len(m.Input))
}

// ModalHome moves the modal cursor to the start.
func (v *LogView) ModalHome() {
	if v.modal != nil {
		v.modal.Cursor = 0
	}
}

// ModalEnd moves the modal cursor to the end.
func (v *LogView) ModalEnd() {
	if v.modal != nil {
		v.modal.Cursor = len(v.modal.Input)
	}
}

// ModalToggleRegex flips the search modal's regex flag.
func (v *LogView) ModalToggleRegex() {
	if v.modal != nil && v.modal.Kind == ModalSearch {
		v.modal.Regex = !v.modal.Regex
	}
}

// CloseModal closes the open modal. Accepting commits the edited value
// (filter or search) and resets to page 0; cancelling discards edits.
// Returns true when the commit changed fetch state and a refetch is due.
func (v *LogView) CloseModal(accept bool) bool {
	m := v.modal
	if m == nil {
		return false
	}
	v.modal = nil

	if !accept || m.Kind == ModalHelp {
		return false
	}

	text := string(m.Input)
	switch m.Kind {
	case ModalFilter:
		v.logger = text
		v.page = 0
	case ModalSearch:
		if text == "" {
			v.search = nil
		} else {
			v.search = &SearchSpec{Pattern: text, Regex: m.Regex}
		}
		v.page = 0
	}
	return true
}

// ClearSearch leaves search mode and returns to plain pagination.
func (v *LogView) ClearSearch() {
	v.search = nil
	v.page = 0
}

// StatusLine summarizes the view for the toolbar.
func (v *LogView) StatusLine() string {
	parts := []string{fmt.Sprintf("Page %d/%d", v.page+1, max(v.totalPages, 1))}
	if v.level != "" {
		parts = append(parts, "Level: "+v.level)
	}
	if v.logger != "" {
		parts = append(parts, "Logger: "+v.logger)
	}
	if v.search != nil {
		mode := "text"
		if v.search.Regex {
			mode = "regex"
		}
		parts = append(parts, fmt.Sprintf("Search: %q (%s)", v.search.Pattern, mode))
	}
	if v.follow {
		parts = append(parts, "Follow: on")
	}
	return strings.Join(parts, " | ")
}

// Render draws the browser: title, table (or error), pagination footer,
// and any open modal.
func (v *LogView) Render(width, height int) string {
	title := ModeTitleStyle.Render("LOG BROWSER") + SubtleTextStyle.Render("  ? help, q/esc exit")

	var body string
	switch {
	case v.errMsg != "":
		body = RenderError(v.errMsg) + "\n" + SubtleTextStyle.Render("retrying on next refresh")
	case len(v.rows) == 0:
		body = SubtleTextStyle.Render("no log entries")
	default:
		// Reserve title + footer rows; the table guards the rest
		body = RenderLogTable(v.rows, width, height-3)
	}

	footer := ""
	if v.totalPages > 1 {
		footer = SubtleTextStyle.Render(fmt.Sprintf("Page %d/%d  pgup/pgdn home/end", v.page+1, v.totalPages))
	}

	out := title + "\n" + body
	if footer != "" {
		out += "\n" + footer
	}
	if v.modal != nil {
		out += "\n" + v.renderModal(width)
	}
	return out
}

// renderModal draws the open modal below the table.
func (v *LogView) renderModal(width int) string {
	m := v.modal
	switch m.Kind {
	case ModalHelp:
		help := strings.Join([]string{
			"pgup/pgdn page   home/end first/last   l cycle level",
			"c clear logger   r refresh   space follow   f filter",
			"/ search (ctrl+r toggles regex)   q/esc exit",
			"press any key to close",
		}, "\n")
		return ModalStyle.Render(help)

	case ModalFilter, ModalSearch:
		label := "Logger filter"
		if m.Kind == ModalSearch {
			label = "Search"
			if m.Regex {
				label += " (regex)"
			}
		}
		// Cursor shown as a bracketed position marker
		before := string(m.Input[:m.Cursor])
		after := string(m.Input[m.Cursor:])
		line := fmt.Sprintf("%s: %s│%s", label, before, after)
		return ModalStyle.Render(TruncateLine(line, width-4) + "\n" + SubtleTextStyle.Render("enter accept, esc cancel"))
	}
	return ""
}
