package console

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
	"github.com/dmxlan/dmxbridge-console/internal/config"
	"github.com/dmxlan/dmxbridge-console/internal/logging"
)

// Mode identifies which surface owns the screen and the keyboard.
// Exactly one non-normal controller is live at a time.
type Mode int

const (
	ModeNormal Mode = iota
	ModeTail
	ModeView
	ModeWatch
	ModeEvents
)

// heartbeatInterval drives stream flushes, watch ticks, view refreshes
// and the lazy toolbar update from a single timer.
const heartbeatInterval = 100 * time.Millisecond

// heartbeatMsg is the shared periodic tick.
type heartbeatMsg time.Time

// toolbarStatusMsg delivers a fire-and-forget toolbar fetch.
type toolbarStatusMsg ToolbarStatus

// viewDataMsg delivers a log-view fetch; gen guards against results from
// an already-closed view arriving late.
type viewDataMsg struct {
	gen  int
	data viewData
}

// watchTickMsg delivers one captured watch snapshot; gen guards against
// results from an already-closed watch arriving late.
type watchTickMsg struct {
	gen    int
	now    time.Time
	output string
	err    error
}

// Model is the top-level shell: command line, output buffer, toolbar, and
// the active full-screen controller when a mode is open.
type Model struct {
	commander *Commander
	registry  *config.Registry

	out     *Buffer
	input   textinput.Model
	history []string
	histIdx int    // len(history) means the live line
	stash   string // live line saved while browsing history

	toolbar *Toolbar

	mode     Mode
	viewGen  int
	watchGen int
	tail     *LogTail
	view     *LogView
	watch    *Watch
	events   *Events

	watchBusy bool // a capture cmd is in flight
	watchNext time.Time
	viewNext  time.Time

	width  int
	height int
	hint   string
}

// NewModel builds the shell bound to a client and profile registry.
func NewModel(client *bridge.Client, registry *config.Registry) Model {
	input := textinput.New()
	input.Prompt = PromptStyle.Render("dmx> ")
	input.Placeholder = "help"
	input.Focus()

	history, err := config.LoadHistory()
	if err != nil {
		logging.Warn("history load failed", zap.Error(err))
	}

	return Model{
		commander: NewCommander(client, registry),
		registry:  registry,
		out:       NewBuffer(),
		input:     input,
		history:   history,
		histIdx:   len(history),
		toolbar:   NewToolbar(client.BaseURL),
		width:     80,
		height:    24,
	}
}

// Init starts the cursor blink and the shared heartbeat.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, heartbeat())
}

func heartbeat() tea.Cmd {
	return tea.Tick(heartbeatInterval, func(t time.Time) tea.Msg {
		return heartbeatMsg(t)
	})
}

// fetchToolbar snapshots the client and fetches status off the UI loop.
func fetchToolbar(client *bridge.Client) tea.Cmd {
	return func() tea.Msg {
		return toolbarStatusMsg(FetchToolbarStatus(client))
	}
}

// fetchLogView snapshots the view query and fetches a page off the UI
// loop.
func fetchLogView(client *bridge.Client, q viewQuery, gen int) tea.Cmd {
	return func() tea.Msg {
		return viewDataMsg{gen: gen, data: fetchView(client, q)}
	}
}

// fetchWatchTick runs one watch capture off the UI loop so a slow bridge
// never blocks key handling.
func fetchWatchTick(w *Watch, gen int) tea.Cmd {
	return func() tea.Msg {
		output, err := w.Capture()
		return watchTickMsg{gen: gen, now: time.Now(), output: output, err: err}
	}
}

// historySize returns the configured cap for persisted history.
func (m Model) historySize() int {
	if m.registry != nil && m.registry.Preferences != nil && m.registry.Preferences.HistorySize > 0 {
		return m.registry.Preferences.HistorySize
	}
	return config.DefaultHistorySize
}

// pushHistory records an executed line, skipping blanks and immediate
// repeats.
func (m *Model) pushHistory(line string) {
	if line == "" {
		return
	}
	if n := len(m.history); n > 0 && m.history[n-1] == line {
		m.histIdx = n
		return
	}
	m.history = append(m.history, line)
	m.histIdx = len(m.history)
}

// shutdown stops whatever is running and persists history.
func (m *Model) shutdown() {
	m.closeMode()
	if err := config.SaveHistory(m.history, m.historySize()); err != nil {
		logging.Warn("history save failed", zap.Error(err))
	}
	logging.Sync()
}

// closeMode stops the active controller and returns to the command line.
// Streams are fully settled before the mode flips back.
func (m *Model) closeMode() {
	switch m.mode {
	case ModeTail:
		m.tail.Stop()
		m.tail = nil
	case ModeEvents:
		m.events.Stop()
		m.events = nil
	case ModeView:
		m.view = nil
		m.viewGen++
	case ModeWatch:
		m.watch = nil
		m.watchGen++
		m.watchBusy = false
	}
	m.mode = ModeNormal
	m.input.Focus()
}

// activeBuffer is the buffer scrolling keys act on in the current mode.
func (m *Model) activeBuffer() *Buffer {
	switch m.mode {
	case ModeTail:
		return m.tail.Buffer()
	case ModeEvents:
		return m.events.Buffer()
	case ModeWatch:
		return m.watch.Buffer()
	default:
		return m.out
	}
}

// contentHeight is the screen area left for content above the toolbar.
// In normal mode the prompt row is part of the content.
func (m Model) contentHeight() int {
	h := m.height - ToolbarHeight
	if h < 1 {
		h = 1
	}
	return h
}
