package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/topbags/internal/logger"
	"github.com/rovshanmuradov/topbags/internal/ui/style"
)

// logPaneDepth is how many buffered entries the pane reads per render.
const logPaneDepth = 50

// LogSource yields recent log entries, oldest first. *logger.LogBuffer implements it.
type LogSource interface {
	Recent(limit int) []logger.LogEntry
}

// CompactLogViewer is the collapsible log pane under the leaderboard.
type CompactLogViewer struct {
	source    LogSource
	viewport  viewport.Model
	showDebug bool
	visible   bool
	height    int

	container lipgloss.Style
	title     lipgloss.Style
	stamp     lipgloss.Style
	field     lipgloss.Style
	levels    map[string]lipgloss.Style
}

// NewCompactLogViewer creates a hidden pane reading from source.
func NewCompactLogViewer(source LogSource) *CompactLogViewer {
	p := style.DefaultPalette()

	return &CompactLogViewer{
		source:   source,
		viewport: viewport.New(50, 4),
		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Info).
			Padding(0, 1),
		title: lipgloss.NewStyle().Foreground(p.Info).Bold(true),
		stamp: lipgloss.NewStyle().Foreground(p.TextMuted),
		field: lipgloss.NewStyle().Foreground(p.TextSecondary),
		levels: map[string]lipgloss.Style{
			"error": lipgloss.NewStyle().Foreground(p.Error).Bold(true),
			"warn":  lipgloss.NewStyle().Foreground(p.Warning),
			"info":  lipgloss.NewStyle().Foreground(p.Text),
			"debug": lipgloss.NewStyle().Foreground(p.TextMuted),
		},
	}
}

// SetSize sets the outer size of the pane.
func (v *CompactLogViewer) SetSize(width, height int) {
	v.height = height
	v.container = v.container.Width(width - 4)

	// рамка и заголовок
	v.viewport.Width = width - 6
	v.viewport.Height = max(height-3, 2)
}

// SetVisible shows or hides the pane.
func (v *CompactLogViewer) SetVisible(visible bool) {
	v.visible = visible
}

// IsVisible reports whether the pane is shown.
func (v *CompactLogViewer) IsVisible() bool {
	return v.visible
}

// ToggleDebug switches debug entries on or off.
func (v *CompactLogViewer) ToggleDebug() {
	v.showDebug = !v.showDebug
}

// ShowsDebug reports whether debug entries are listed.
func (v *CompactLogViewer) ShowsDebug() bool {
	return v.showDebug
}

// View renders the newest entries, scrolled to the bottom.
func (v *CompactLogViewer) View() string {
	if !v.visible {
		return ""
	}

	lines := v.lines()
	switch {
	case v.source == nil:
		v.viewport.SetContent("No log buffer attached")
	case len(lines) == 0:
		v.viewport.SetContent("Nothing logged yet")
	default:
		v.viewport.SetContent(strings.Join(lines, "\n"))
		v.viewport.GotoBottom()
	}

	header := "Logs [l] hide [d] debug"
	if v.showDebug {
		header += " (on)"
	}
	return v.container.Render(lipgloss.JoinVertical(lipgloss.Left,
		v.title.Render(header),
		v.viewport.View(),
	))
}

// GetHeight returns the rows the pane takes, zero when hidden.
func (v *CompactLogViewer) GetHeight() int {
	if !v.visible {
		return 0
	}
	return v.height
}

func (v *CompactLogViewer) lines() []string {
	if v.source == nil {
		return nil
	}
	entries := v.source.Recent(logPaneDepth)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		level := normalizeLevel(e.Level)
		if level == "debug" && !v.showDebug {
			continue
		}
		out = append(out, v.format(level, e))
	}
	return out
}

func (v *CompactLogViewer) format(level string, e logger.LogEntry) string {
	msgStyle, ok := v.levels[level]
	if !ok {
		msgStyle = v.levels["info"]
	}

	line := fmt.Sprintf("%s %s", v.stamp.Render(e.Timestamp.Format("15:04:05")), msgStyle.Render(e.Message))

	// Токен и ошибка важнее остальных полей.
	if mint, ok := e.Fields["mint"].(string); ok && mint != "" {
		line += " " + v.field.Render(logger.ShortenAddress(mint))
	}
	if errText, ok := e.Fields["error"].(string); ok && errText != "" {
		line += " " + v.field.Render(errText)
	}
	return line
}

func normalizeLevel(level string) string {
	switch l := strings.ToLower(level); l {
	case "warning":
		return "warn"
	case "dpanic", "panic", "fatal":
		return "error"
	default:
		return l
	}
}
