package console

import (
	"github.com/charmbracelet/lipgloss"
)

// Application branding constants
const (
	AppName = "DMX BRIDGE CONSOLE"
)

// Layout constants
const (
	// MinTerminalWidth is the narrowest width the layout math assumes
	MinTerminalWidth = 40

	// ToolbarHeight is the two status lines pinned above the prompt
	ToolbarHeight = 2
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red
	CriticalColor  = lipgloss.Color("#FF00FF") // Magenta

	TextColor       = lipgloss.Color("#FFFFFF") // White
	SubtleColor     = lipgloss.Color("#626262") // Gray
	BackgroundColor = lipgloss.Color("#1A1A1A") // Dark gray
)

// Common styles
var (
	// Toolbar line style - inverse bar across the full width
	ToolbarStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(BackgroundColor).
			Padding(0, 1)

	// Prompt marker in front of the command input
	PromptStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// Error message style for inline command errors
	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success/confirmation style
	SuccessTextStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor)

	// Dim style for hints and secondary text
	SubtleTextStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// Table header row style
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	// Mode title style (full-screen view headers)
	ModeTitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// Modal box style (filter/search/help overlays in log view)
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)
)

// levelStyles maps log levels to their display style.
var levelStyles = map[string]lipgloss.Style{
	"DEBUG":    lipgloss.NewStyle().Foreground(SubtleColor),
	"INFO":     lipgloss.NewStyle().Foreground(SecondaryColor),
	"WARNING":  lipgloss.NewStyle().Foreground(WarningColor),
	"ERROR":    lipgloss.NewStyle().Foreground(ErrorColor).Bold(true),
	"CRITICAL": lipgloss.NewStyle().Foreground(CriticalColor).Bold(true),
}

// RenderLevel renders a log level with its color, padded for column alignment.
func RenderLevel(level string) string {
	style, ok := levelStyles[level]
	if !ok {
		return level
	}
	return style.Render(level)
}

// RenderError renders an inline error message
func RenderError(text string) string {
	return ErrorTextStyle.Render("✗ " + text)
}

// RenderSuccess renders an inline confirmation message
func RenderSuccess(text string) string {
	return SuccessTextStyle.Render("✓ " + text)
}

// statusDot renders a connection indicator: green when up, orange while
// recovering, red when down.
func statusDot(state ConnState) string {
	switch state {
	case StateConnected:
		return SuccessTextStyle.Render("●")
	case StateConnecting, StateReconnecting:
		return lipgloss.NewStyle().Foreground(WarningColor).Render("●")
	default:
		return ErrorTextStyle.Render("●")
	}
}
