package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/types"
)

type countingRefresher struct{ calls int }

func (c *countingRefresher) Trigger() { c.calls++ }

func boardSnapshot() types.Snapshot {
	return types.Snapshot{
		RunID:     "r1",
		Requested: 5,
		UpdatedAt: time.Now(),
		Records: []types.TokenRecord{
			{Mint: "MintW", Name: "Whale", Symbol: "WHL", MarketCapUSD: 5_000_000, TotalEarningsUSD: 100, Loaded: true},
			{Mint: "MintB", Name: "Big", Symbol: "BIG", MarketCapUSD: 1_000_000, Loaded: true},
			{Mint: "MintM", Name: "Mid", Symbol: "MID", MarketCapUSD: 200_000, TotalEarningsUSD: 900, Loaded: true},
			{Mint: "MintE", Name: "Earner", Symbol: "ERN", MarketCapUSD: 50_000, TotalEarningsUSD: 4_000, Loaded: true},
		},
	}
}

func symbols(b ranking.Board) []string {
	var out []string
	for _, e := range b.Entries() {
		out = append(out, e.Token.Symbol)
	}
	return out
}

func keyPress(s string) tea.KeyMsg {
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadsStoredSnapshot(t *testing.T) {
	m := NewModel(Options{Source: staticSource{snap: boardSnapshot(), ok: true}})

	assert.Equal(t, ranking.MarketCap, m.Metric())
	assert.Equal(t, []string{"WHL", "BIG", "MID", "ERN"}, symbols(m.Board()))

	view := m.View()
	assert.Contains(t, view, "Market Cap")
	assert.Contains(t, view, "WHL")
	assert.Contains(t, view, "Earner")
	assert.Contains(t, view, "Tokens: 4/5")
}

func TestModel_TabTogglesMetric(t *testing.T) {
	m := NewModel(Options{Source: staticSource{snap: boardSnapshot(), ok: true}})

	_, _ = m.Update(keyPress("tab"))
	assert.Equal(t, ranking.Earnings, m.Metric())
	assert.Equal(t, []string{"ERN", "MID", "WHL", "BIG"}, symbols(m.Board()))

	_, _ = m.Update(keyPress("tab"))
	assert.Equal(t, ranking.MarketCap, m.Metric())
}

func TestModel_RefreshTriggersPoller(t *testing.T) {
	r := &countingRefresher{}
	m := NewModel(Options{Source: staticSource{snap: boardSnapshot(), ok: true}, Refresher: r})

	_, _ = m.Update(keyPress("r"))
	assert.Equal(t, 1, r.calls)
	assert.Contains(t, m.View(), "refreshing")
}

func TestModel_WaitsForFirstSnapshot(t *testing.T) {
	m := NewModel(Options{Source: staticSource{}})
	assert.Contains(t, m.View(), "Loading leaderboard")

	_, cmd := m.Update(SnapshotMsg{Snapshot: boardSnapshot()})
	assert.Nil(t, cmd, "no update channel to listen on")
	assert.Equal(t, 4, m.Board().Total)
	assert.NotContains(t, m.View(), "Loading leaderboard")
}

func TestModel_FailureKeepsBoard(t *testing.T) {
	m := NewModel(Options{Source: staticSource{snap: boardSnapshot(), ok: true}})

	_, _ = m.Update(RefreshFailedMsg{Err: errors.New("bags down"), Attempts: 3})

	view := m.View()
	assert.Contains(t, view, "bags down")
	assert.Contains(t, view, "WHL")
	assert.Equal(t, 4, m.Board().Total)
}

func TestModel_EmptySnapshot(t *testing.T) {
	m := NewModel(Options{})
	_, _ = m.Update(SnapshotMsg{Snapshot: types.Snapshot{Requested: 3, UpdatedAt: time.Now()}})

	assert.Contains(t, m.View(), "No tokens with market data")
}

func TestModel_ListenNextUpdate(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	m := NewModel(Options{Updates: ch})

	_, cmd := m.Update(SOLPriceMsg{Price: 172.5})
	require.NotNil(t, cmd)

	ch <- RefreshStartedMsg{}
	assert.Equal(t, RefreshStartedMsg{}, cmd())
	assert.Contains(t, m.View(), "$172.50")
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel(Options{})
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ResizeShowsAllRows(t *testing.T) {
	snap := boardSnapshot()
	for i := 0; i < 20; i++ {
		snap.Records = append(snap.Records, types.TokenRecord{
			Mint: "Extra", Name: "Filler", Symbol: "F" + strings.Repeat("X", i%3), MarketCapUSD: float64(i), Loaded: true,
		})
	}
	m := NewModel(Options{Source: staticSource{snap: snap, ok: true}})
	_, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})

	assert.Equal(t, 24, m.Board().Total)
	assert.Contains(t, m.View(), "Filler")
}
