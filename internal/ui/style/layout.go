package style

import (
	"github.com/charmbracelet/lipgloss"
)

var palette = DefaultPalette()

// Metric tabs
var (
	TabStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 2)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Bold(true).
			Padding(0, 2)
)

// Layout styles
var (
	ContainerStyle = lipgloss.NewStyle().
			Padding(1, 2)
)

// Podium card styles
var (
	PodiumCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Align(lipgloss.Center)

	PodiumValueStyle = lipgloss.NewStyle().
				Bold(true)

	PodiumSecondaryStyle = lipgloss.NewStyle().
				Foreground(palette.TextSecondary)
)

// Status styles
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted)
)

// Help bar style
var (
	HelpStyle = lipgloss.NewStyle().
		Foreground(palette.TextMuted).
		Margin(1, 0, 0, 0)
)

// AdaptiveJoinHorizontal stacks blocks vertically on narrow screens.
func AdaptiveJoinHorizontal(width int, styles ...string) string {
	if width < 80 {
		return lipgloss.JoinVertical(lipgloss.Left, styles...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, styles...)
}
