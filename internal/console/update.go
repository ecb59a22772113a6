package console

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

// Update routes messages: one heartbeat drives all periodic work, key
// messages dispatch per mode, and fetch results apply only when still
// relevant.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 8
		m.commander.SetWidth(msg.Width)
		if m.tail != nil {
			m.tail.SetWidth(msg.Width)
		}
		if m.events != nil {
			m.events.SetWidth(msg.Width)
		}
		return m, nil

	case heartbeatMsg:
		return m.handleHeartbeat(time.Time(msg))

	case toolbarStatusMsg:
		m.toolbar.Apply(ToolbarStatus(msg))
		return m, nil

	case viewDataMsg:
		if m.mode == ModeView && msg.gen == m.viewGen {
			m.view.Apply(msg.data)
		}
		return m, nil

	case watchTickMsg:
		if m.mode == ModeWatch && msg.gen == m.watchGen {
			m.watch.Apply(msg.now, msg.output, msg.err)
			m.watchBusy = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleHeartbeat(now time.Time) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{heartbeat()}

	if m.toolbar.RefreshDue(now) {
		m.toolbar.MarkAttempt(now)
		cmds = append(cmds, fetchToolbar(m.commander.Client))
	}

	switch m.mode {
	case ModeTail:
		m.tail.Flush()
	case ModeEvents:
		m.events.Flush()
	case ModeWatch:
		if !m.watchBusy && !now.Before(m.watchNext) {
			m.watchBusy = true
			m.watchNext = now.Add(m.watch.Interval())
			cmds = append(cmds, fetchWatchTick(m.watch, m.watchGen))
		}
	case ModeView:
		if !now.Before(m.viewNext) {
			m.viewNext = now.Add(ViewRefreshInterval)
			cmds = append(cmds, fetchLogView(m.commander.Client, m.view.Query(), m.viewGen))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, globalKeys.Quit) {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.mode {
	case ModeTail:
		return m.handleTailKey(msg)
	case ModeEvents:
		return m.handleEventsKey(msg)
	case ModeWatch:
		return m.handleWatchKey(msg)
	case ModeView:
		return m.handleViewKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

// handleGlobalKey covers the bindings shared by every mode. Returns false
// when the key was not consumed.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, globalKeys.Interrupt):
		if m.mode == ModeNormal && m.input.Value() != "" {
			m.input.SetValue("")
			m.stash = ""
			m.histIdx = len(m.history)
		} else {
			m.hint = "ctrl+d or exit quits"
		}
		return true
	case key.Matches(msg, globalKeys.ClearOutput):
		m.activeBuffer().Clear()
		return true
	case key.Matches(msg, globalKeys.ToggleFollow):
		buf := m.activeBuffer()
		buf.SetFollow(!buf.Follow())
		return true
	case key.Matches(msg, globalKeys.ScrollUp):
		m.activeBuffer().ScrollLines(-m.contentHeight())
		return true
	case key.Matches(msg, globalKeys.ScrollDown):
		m.activeBuffer().ScrollLines(m.contentHeight())
		return true
	}
	return false
}

func (m Model) handleTailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, exitKeys):
		m.closeMode()
	case msg.String() == "end":
		m.tail.Buffer().SetFollow(true)
	default:
		m.handleGlobalKey(msg)
	}
	return m, nil
}

func (m Model) handleEventsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, exitKeys) {
		m.closeMode()
		return m, nil
	}
	m.handleGlobalKey(msg)
	return m, nil
}

func (m Model) handleWatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, exitKeys):
		m.closeMode()
	case msg.String() == "+" || msg.String() == "=":
		m.watch.Adjust(WatchIntervalStep)
	case msg.String() == "-":
		m.watch.Adjust(-WatchIntervalStep)
	default:
		m.handleGlobalKey(msg)
	}
	return m, nil
}

func (m Model) handleViewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view.Modal() != nil {
		return m.handleModalKey(msg)
	}

	if key.Matches(msg, exitKeys) {
		m.closeMode()
		return m, nil
	}

	refetch := false
	switch msg.String() {
	case "pgup":
		refetch = m.view.PrevPage()
	case "pgdown":
		refetch = m.view.NextPage()
	case "home":
		refetch = m.view.FirstPage()
	case "end":
		refetch = m.view.LastPage()
	case "l":
		m.view.CycleLevel()
		refetch = true
	case "c":
		m.view.ClearLogger()
		refetch = true
	case "r":
		refetch = true
	case " ":
		m.view.ToggleFollow()
		refetch = m.view.Follow()
	case "f":
		m.view.OpenFilterModal()
	case "/":
		m.view.OpenSearchModal()
	case "?":
		m.view.OpenHelpModal()
	default:
		m.handleGlobalKey(msg)
	}

	if refetch {
		m.viewNext = time.Now().Add(ViewRefreshInterval)
		return m, fetchLogView(m.commander.Client, m.view.Query(), m.viewGen)
	}
	return m, nil
}

// handleModalKey owns every keystroke while a modal is open.
func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view.Modal().Kind == ModalHelp {
		m.view.CloseModal(false)
		return m, nil
	}

	switch msg.String() {
	case "enter":
		if m.view.CloseModal(true) {
			m.viewNext = time.Now().Add(ViewRefreshInterval)
			return m, fetchLogView(m.commander.Client, m.view.Query(), m.viewGen)
		}
		return m, nil
	case "esc":
		m.view.CloseModal(false)
		return m, nil
	case "ctrl+r":
		m.view.ModalToggleRegex()
		return m, nil
	case "backspace":
		m.view.ModalBackspace()
		return m, nil
	case "left":
		m.view.ModalMove(-1)
		return m, nil
	case "right":
		m.view.ModalMove(1)
		return m, nil
	case "home":
		m.view.ModalHome()
		return m, nil
	case "end":
		m.view.ModalEnd()
		return m, nil
	}

	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			m.view.ModalInsert(r)
		}
	} else if msg.String() == " " {
		m.view.ModalInsert(' ')
	}
	return m, nil
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.hint = ""

	switch msg.String() {
	case "enter":
		return m.submit()
	case "up":
		if m.histIdx > 0 {
			if m.histIdx == len(m.history) {
				m.stash = m.input.Value()
			}
			m.histIdx--
			m.input.SetValue(m.history[m.histIdx])
			m.input.CursorEnd()
		}
		return m, nil
	case "down":
		if m.histIdx < len(m.history) {
			m.histIdx++
			if m.histIdx == len(m.history) {
				m.input.SetValue(m.stash)
			} else {
				m.input.SetValue(m.history[m.histIdx])
			}
			m.input.CursorEnd()
		}
		return m, nil
	}

	if m.handleGlobalKey(msg) {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the entered command line and applies its result.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	m.stash = ""

	m.out.Append(PromptStyle.Render("dmx> ") + line + "\n")
	if line == "" {
		m.out.TrimTo(TailBufferCap)
		return m, nil
	}
	m.pushHistory(line)

	result, err := m.commander.Execute(line)
	m.toolbar.SetServerURL(m.commander.Client.BaseURL)
	if err != nil {
		m.out.Append(RenderError(bridge.ShortMessage(err)) + "\n")
		m.out.TrimTo(TailBufferCap)
		return m, nil
	}
	if result.Output != "" {
		m.out.Append(result.Output + "\n")
	}
	m.out.TrimTo(TailBufferCap)

	switch result.Action {
	case ActionClear:
		m.out.Clear()

	case ActionExit:
		m.shutdown()
		return m, tea.Quit

	case ActionEnterTail:
		m.tail = NewLogTail(m.commander.Client, result.Level, result.Logger, m.width)
		m.tail.Start()
		m.mode = ModeTail
		m.input.Blur()

	case ActionEnterView:
		if result.Pattern != "" {
			m.view = NewLogSearch(m.commander.Client, m.height, result.Pattern, result.Regex, result.Level, result.Logger)
		} else {
			m.view = NewLogView(m.commander.Client, m.height, result.Level, result.Logger)
		}
		m.viewGen++
		m.viewNext = time.Now().Add(ViewRefreshInterval)
		m.mode = ModeView
		m.input.Blur()
		return m, fetchLogView(m.commander.Client, m.view.Query(), m.viewGen)

	case ActionEnterEvents:
		m.events = NewEvents(m.commander.Client, m.width)
		m.events.Start()
		m.mode = ModeEvents
		m.input.Blur()

	case ActionEnterWatch:
		m.watch = NewWatch(result.Target, result.Interval, m.commander.WatchRenderer(result.Target))
		m.watchGen++
		m.watchBusy = true
		m.watchNext = time.Now().Add(m.watch.Interval())
		m.mode = ModeWatch
		m.input.Blur()
		return m, fetchWatchTick(m.watch, m.watchGen)
	}

	return m, nil
}
