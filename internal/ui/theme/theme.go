// Package theme holds the terminal styles used by the CLI.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// OfflineMessage is shown whenever the remote store is unreachable.
const OfflineMessage = "You're offline. Some features may be limited."

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Online = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Offline = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Banner = lipgloss.NewStyle().
		Foreground(Accent).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Padding(0, 1)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	BarFilled = lipgloss.NewStyle().Foreground(Primary)
	BarEmpty  = lipgloss.NewStyle().Foreground(Border)
)

// StatusLabel renders "online" or "offline".
func StatusLabel(online bool) string {
	if online {
		return Online.Render("online")
	}
	return Offline.Render("offline")
}

// OfflineBanner renders the offline notice.
func OfflineBanner() string {
	return Banner.Render(OfflineMessage)
}

// Bar renders value in [0,1] as a bar width cells wide.
func Bar(value float64, width int) string {
	if width <= 0 {
		return ""
	}
	value = min(max(value, 0), 1)
	filled := int(value*float64(width) + 0.5)
	return BarFilled.Render(strings.Repeat("█", filled)) +
		BarEmpty.Render(strings.Repeat("░", width-filled))
}

// KeyValue renders an aligned "key: value" line.
func KeyValue(key string, value any) string {
	return Label.Render(fmt.Sprintf("%-14s", key+":")) + " " + Body.Render(fmt.Sprint(value))
}
