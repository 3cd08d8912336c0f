package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/topbags/internal/types"
)

// Tea message types for UI communication

// SnapshotMsg carries a newly stored snapshot.
type SnapshotMsg struct {
	Snapshot types.Snapshot
}

// RefreshStartedMsg is sent when a batch run begins.
type RefreshStartedMsg struct {
	Manual bool
}

// RefreshFailedMsg is sent when a batch run gave up. The previous
// snapshot stays on screen.
type RefreshFailedMsg struct {
	Err      error
	Attempts int
}

// SOLPriceMsg carries a refreshed SOL/USD rate.
type SOLPriceMsg struct {
	Price float64
}

// clockMsg re-renders relative times.
type clockMsg time.Time

func tickClock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// ListenUpdates returns a tea.Cmd that waits for the next bridged message.
func ListenUpdates(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return <-ch
	}
}
