package console

import (
	"runtime"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("test drives config location through XDG_CONFIG_HOME")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	srv := bridgeServer(t)
	t.Cleanup(srv.Close)

	m := NewModel(bridge.NewClient(srv.URL, ""), nil)
	m.width = 100
	m.height = 30
	m.commander.SetWidth(100)
	return m
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeLine(t *testing.T, m Model, line string) Model {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	return m
}

func submitLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m = typeLine(t, m, line)
	return press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestSubmitEchoesAndRuns(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "health")

	text := m.out.Text()
	if !strings.Contains(text, "dmx> health") {
		t.Fatalf("missing command echo:\n%s", text)
	}
	if !strings.Contains(text, "bridge status: ok") {
		t.Fatalf("missing command output:\n%s", text)
	}
	if m.input.Value() != "" {
		t.Fatalf("input not cleared: %q", m.input.Value())
	}
}

func TestUnknownCommandLeavesShellUsable(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "frobnicate")

	if !strings.Contains(m.out.Text(), "unknown command") {
		t.Fatalf("missing error:\n%s", m.out.Text())
	}
	if m.mode != ModeNormal {
		t.Fatal("unknown command must not change mode")
	}

	m, _ = submitLine(t, m, "health")
	if !strings.Contains(m.out.Text(), "bridge status: ok") {
		t.Fatal("shell should keep working after an error")
	}
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "health")
	m, _ = submitLine(t, m, "devices list")

	up := tea.KeyMsg{Type: tea.KeyUp}
	down := tea.KeyMsg{Type: tea.KeyDown}

	m = typeLine(t, m, "dev")
	m, _ = press(t, m, up)
	if m.input.Value() != "devices list" {
		t.Fatalf("up = %q", m.input.Value())
	}
	m, _ = press(t, m, up)
	if m.input.Value() != "health" {
		t.Fatalf("up up = %q", m.input.Value())
	}
	m, _ = press(t, m, up) // at the oldest entry, stays
	if m.input.Value() != "health" {
		t.Fatalf("up past top = %q", m.input.Value())
	}
	m, _ = press(t, m, down)
	m, _ = press(t, m, down)
	if m.input.Value() != "dev" {
		t.Fatalf("down to live line = %q, want stashed input", m.input.Value())
	}
}

func TestHistorySkipsConsecutiveDuplicates(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "health")
	m, _ = submitLine(t, m, "health")
	if len(m.history) != 1 {
		t.Fatalf("history = %v", m.history)
	}
}

func TestClearCommand(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "health")
	m, _ = submitLine(t, m, "clear")
	if m.out.Len() != 0 {
		t.Fatalf("buffer not cleared: %q", m.out.Text())
	}
}

func TestCtrlCClearsInputThenHints(t *testing.T) {
	m := newTestModel(t)
	ctrlC := tea.KeyMsg{Type: tea.KeyCtrlC}

	m = typeLine(t, m, "half a comm")
	m, _ = press(t, m, ctrlC)
	if m.input.Value() != "" {
		t.Fatalf("input = %q", m.input.Value())
	}

	m, _ = press(t, m, ctrlC)
	if m.hint == "" {
		t.Fatal("second ctrl+c should hint at how to quit")
	}
}

func TestEnterAndExitViewMode(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submitLine(t, m, "logs view")
	if m.mode != ModeView || m.view == nil {
		t.Fatalf("mode = %v", m.mode)
	}
	if cmd == nil {
		t.Fatal("entering the view should schedule a fetch")
	}

	msg := cmd()
	data, ok := msg.(viewDataMsg)
	if !ok {
		t.Fatalf("fetch returned %T", msg)
	}
	m, _ = press(t, m, data)
	if len(m.view.Rows()) != 1 {
		t.Fatalf("rows = %d", len(m.view.Rows()))
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != ModeNormal || m.view != nil {
		t.Fatal("esc should settle back to the command line")
	}
}

func TestStaleViewFetchIsDropped(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submitLine(t, m, "logs view")
	msg := cmd()

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = press(t, m, msg) // result of the closed view arrives late

	if m.mode != ModeNormal || m.view != nil {
		t.Fatal("stale fetch result must not resurrect the view")
	}
}

func TestEnterAndExitWatchMode(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submitLine(t, m, "watch devices 1")
	if m.mode != ModeWatch || m.watch == nil {
		t.Fatalf("mode = %v", m.mode)
	}
	if cmd == nil {
		t.Fatal("entering the watch should schedule a capture")
	}

	msg := cmd()
	snap, ok := msg.(watchTickMsg)
	if !ok {
		t.Fatalf("capture returned %T", msg)
	}
	m, _ = press(t, m, snap)
	if !strings.Contains(m.watch.Buffer().Text(), "Total: 3 devices") {
		t.Fatalf("watch overlay not populated:\n%s", m.watch.Buffer().Text())
	}
	if strings.Contains(m.out.Text(), "Total: 3 devices") {
		t.Fatal("watch output leaked into the main buffer")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if m.mode != ModeNormal || m.watch != nil {
		t.Fatal("q should exit watch mode")
	}
}

func TestWatchExitWhileCaptureInFlight(t *testing.T) {
	m := newTestModel(t)
	m, cmd := submitLine(t, m, "watch devices 1")

	// Exit keys must work before the capture result arrives.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != ModeNormal || m.watch != nil {
		t.Fatal("esc should exit even while a capture is pending")
	}

	m, _ = press(t, m, cmd()) // result of the closed watch arrives late
	if m.mode != ModeNormal || m.watch != nil {
		t.Fatal("stale capture result must not resurrect the watch")
	}
}

func TestWatchSchedulesSingleCapturePerInterval(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "watch devices 1")

	// The entry capture is still in flight; heartbeats must not stack
	// further fetches behind it.
	beat := heartbeatMsg(time.Now().Add(2 * time.Second))
	next, _ := m.Update(beat)
	m = next.(Model)
	if !m.watchBusy {
		t.Fatal("capture should still be marked in flight")
	}

	due := m.watchNext
	next, _ = m.Update(beat)
	m = next.(Model)
	if m.watchNext != due {
		t.Fatal("pending capture must not reschedule the next tick")
	}
}

func TestWatchIntervalKeys(t *testing.T) {
	m := newTestModel(t)
	m, _ = submitLine(t, m, "watch devices 1")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	if m.watch.Interval() != 1500*time.Millisecond {
		t.Fatalf("interval = %s", m.watch.Interval())
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.watch.Interval() != WatchIntervalFloor {
		t.Fatalf("interval = %s, want floor", m.watch.Interval())
	}
}

func TestExitCommandQuits(t *testing.T) {
	m := newTestModel(t)
	_, cmd := submitLine(t, m, "exit")
	if cmd == nil {
		t.Fatal("exit should produce a quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Fatalf("got %v, want quit", msg)
	}
}

func TestHeartbeatArmsToolbarCooldown(t *testing.T) {
	m := newTestModel(t)
	now := time.Now()

	next, _ := m.handleHeartbeat(now)
	m = next.(Model)
	if m.toolbar.RefreshDue(now) {
		t.Fatal("heartbeat should arm the toolbar cooldown")
	}
	if !m.toolbar.RefreshDue(now.Add(ToolbarRefreshInterval)) {
		t.Fatal("cooldown should expire after the interval")
	}
}

func TestWindowSizePropagates(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, tea.WindowSizeMsg{Width: 72, Height: 20})
	if m.width != 72 || m.height != 20 {
		t.Fatalf("size = %dx%d", m.width, m.height)
	}

	view := m.View()
	if view == "" {
		t.Fatal("empty view")
	}
	lines := strings.Split(view, "\n")
	if len(lines) != 20 {
		t.Fatalf("view has %d lines, want 20", len(lines))
	}
}
