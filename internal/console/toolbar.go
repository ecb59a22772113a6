package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
)

// ToolbarRefreshInterval bounds how often the toolbar's lazy background
// status fetch may run.
const ToolbarRefreshInterval = 5 * time.Second

// DeviceCounts summarizes the device list for the toolbar.
type DeviceCounts struct {
	Active       int
	Unconfigured int
	Offline      int
}

// CountDevices classifies devices: offline first, then unconfigured,
// everything else active.
func CountDevices(devices []bridge.Device) DeviceCounts {
	var counts DeviceCounts
	for _, d := range devices {
		switch {
		case d.Offline:
			counts.Offline++
		case !d.Configured:
			counts.Unconfigured++
		default:
			counts.Active++
		}
	}
	return counts
}

// ToolbarStatus is one snapshot of the toolbar's polled data.
type ToolbarStatus struct {
	APIUp      bool
	Health     *bridge.Health
	Counts     DeviceCounts
	LastUpdate time.Time
}

// FetchToolbarStatus polls health and device counts. Fetch errors are
// swallowed; they only flip APIUp off. Run from a background command, not
// the update loop.
func FetchToolbarStatus(client *bridge.Client) ToolbarStatus {
	status := ToolbarStatus{LastUpdate: time.Now()}

	health, err := client.Health()
	if err != nil {
		return status
	}
	status.APIUp = true
	status.Health = health

	devices, err := client.ListDevices()
	if err != nil {
		// Health reached the bridge; keep APIUp and show zero counts
		return status
	}
	status.Counts = CountDevices(devices)
	return status
}

// Toolbar derives the two status lines shown above the prompt. It never
// fetches on the render path: renders consume the last applied snapshot,
// and RefreshDue gates when the caller may fire the next background poll.
type Toolbar struct {
	serverURL   string
	status      ToolbarStatus
	haveStatus  bool
	lastAttempt time.Time
}

// NewToolbar creates a toolbar for the given server.
func NewToolbar(serverURL string) *Toolbar {
	return &Toolbar{serverURL: serverURL}
}

// SetServerURL updates the displayed server address.
func (t *Toolbar) SetServerURL(url string) {
	t.serverURL = url
}

// RefreshDue reports whether a new background poll may start. Callers
// must pair it with MarkAttempt to arm the cooldown.
func (t *Toolbar) RefreshDue(now time.Time) bool {
	return now.Sub(t.lastAttempt) >= ToolbarRefreshInterval
}

// MarkAttempt stamps the cooldown when a poll is fired.
func (t *Toolbar) MarkAttempt(now time.Time) {
	t.lastAttempt = now
}

// Apply installs a polled snapshot.
func (t *Toolbar) Apply(status ToolbarStatus) {
	t.status = status
	t.haveStatus = true
}

// Lines renders the two toolbar lines, each ellipsis-truncated to width.
// eventsLine is the event stream's status fragment ("" when no event
// stream is running); modeLine replaces the second line while a
// full-screen mode is active.
func (t *Toolbar) Lines(width int, eventsLine, modeLine string) (string, string) {
	line1 := t.renderLine1(eventsLine)
	line2 := modeLine
	if line2 == "" {
		line2 = t.renderNormalLine2()
	}

	style := ToolbarStyle.Width(width)
	return style.Render(TruncateLine(line1, width-2)),
		style.Render(TruncateLine(line2, width-2))
}

func (t *Toolbar) renderLine1(eventsLine string) string {
	api := "API: " + statusDotBool(t.haveStatus && t.status.APIUp)
	parts := []string{api}
	if eventsLine != "" {
		parts = append(parts, eventsLine)
	}
	parts = append(parts, fmt.Sprintf("Devices: %d active, %d unconfigured, %d offline",
		t.status.Counts.Active,
		t.status.Counts.Unconfigured,
		t.status.Counts.Offline,
	))
	return strings.Join(parts, " | ")
}

func (t *Toolbar) renderNormalLine2() string {
	health := "unknown"
	if t.status.Health != nil {
		health = t.status.Health.Status
	}

	parts := []string{
		"Health: " + health,
		"Server: " + t.serverURL,
	}
	if !t.status.LastUpdate.IsZero() {
		parts = append(parts, "Updated "+formatAge(time.Since(t.status.LastUpdate)))
	}
	return strings.Join(parts, " | ")
}

func statusDotBool(up bool) string {
	if up {
		return SuccessTextStyle.Render("●") + " connected"
	}
	return ErrorTextStyle.Render("●") + " unreachable"
}

// formatAge renders a duration as a compact age ("3s ago", "2m ago").
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
