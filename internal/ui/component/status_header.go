package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/topbags/internal/ui/style"
)

// HeaderStatus is what the status header shows.
type HeaderStatus struct {
	Loaded     int
	Requested  int
	SOLPrice   float64
	UpdatedAt  time.Time
	Refreshing bool
	Spinner    string
	Err        error
}

// StatusHeader provides a clean header with essential status information
type StatusHeader struct {
	status HeaderStatus
	style  StatusHeaderStyle
	width  int
	now    func() time.Time
}

// StatusHeaderStyle contains all styling for the status header
type StatusHeaderStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	muted     lipgloss.Style
	good      lipgloss.Style
	bad       lipgloss.Style
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	palette := style.DefaultPalette()

	return &StatusHeader{
		now: time.Now,
		style: StatusHeaderStyle{
			container: lipgloss.NewStyle().
				Foreground(palette.Text).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2),

			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),

			muted: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),

			good: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),

			bad: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),
		},
	}
}

// SetStatus replaces the displayed status.
func (sh *StatusHeader) SetStatus(status HeaderStatus) {
	sh.status = status
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
	if width > 4 {
		sh.style.container = sh.style.container.Width(width - 2)
	}
}

// View renders the status header
func (sh *StatusHeader) View() string {
	s := sh.status

	title := sh.style.title.Render("TopBags")
	tokens := sh.style.muted.Render(fmt.Sprintf("Tokens: %d/%d", s.Loaded, s.Requested))

	sol := sh.style.muted.Render("SOL: -")
	if s.SOLPrice > 0 {
		sol = sh.style.muted.Render(fmt.Sprintf("SOL: %s", FormatUSD(s.SOLPrice)))
	}

	content := lipgloss.JoinHorizontal(
		lipgloss.Left,
		title,
		" | ",
		tokens,
		" | ",
		sol,
		" | ",
		sh.renderFreshness(),
	)

	return sh.style.container.Render(content)
}

func (sh *StatusHeader) renderFreshness() string {
	s := sh.status
	switch {
	case s.Refreshing:
		return sh.style.good.Render(s.Spinner + " refreshing")
	case s.Err != nil:
		return sh.style.bad.Render("✗ refresh failed")
	case s.UpdatedAt.IsZero():
		return sh.style.muted.Render("waiting for data")
	default:
		age := sh.now().Sub(s.UpdatedAt).Truncate(time.Second)
		return sh.style.good.Render(fmt.Sprintf("● updated %s ago", age))
	}
}

// GetHeight returns the component height for layout calculations
func (sh *StatusHeader) GetHeight() int {
	return 3 // Border + content
}
