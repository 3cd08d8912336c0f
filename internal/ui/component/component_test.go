package component

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/topbags/internal/logger"
	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/types"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{999.5, "$999.50"},
		{12_345, "$12.35K"},
		{2_500_000, "$2.50M"},
		{7_100_000_000, "$7.10B"},
		{-4_000, "$-4.00K"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUSD(tt.in))
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "-", FormatPrice(0))
	assert.Equal(t, "$0.021300", FormatPrice(0.0213))
	assert.Equal(t, "$1.50e-05", FormatPrice(0.000015))
	assert.Equal(t, "$3.25", FormatPrice(3.25))
	assert.Equal(t, "◎1.50", FormatSOL(1.5))
}

func TestTruncate_RuneSafe(t *testing.T) {
	assert.Equal(t, "Bags", truncate("Bags", 10))
	assert.Equal(t, "Пр...", truncate("Привет мир", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("abc", 0))
}

func rows(n int) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = []string{string(rune('A' + i)), "token"}
	}
	return out
}

func TestTable_ScrollsWithCursor(t *testing.T) {
	tbl := NewTable(TableColumn{Header: "#", Width: 4}, TableColumn{Header: "Token"})
	tbl.SetShowBorder(false)
	tbl.SetRows(rows(10)).SetSize(40, 5) // три строки тела

	for i := 0; i < 6; i++ {
		tbl.MoveDown()
	}
	assert.Equal(t, 6, tbl.SelectedRow())

	view := tbl.View()
	assert.Contains(t, view, "G")
	assert.NotContains(t, view, " A ")

	tbl.SetRows(rows(2))
	assert.Equal(t, 1, tbl.SelectedRow(), "cursor clamped to the new rows")
	assert.Equal(t, 2, tbl.RowCount())
}

func TestTable_NotSelectable(t *testing.T) {
	tbl := NewTable(TableColumn{Header: "Token"}).SetSelectable(false)
	tbl.SetRows(rows(3))
	tbl.MoveDown()
	assert.Equal(t, 0, tbl.SelectedRow())
}

func podiumBoard() ranking.Board {
	recs := []types.TokenRecord{
		{Mint: "m1", Name: "One", Symbol: "ONE", MarketCapUSD: 3_000_000, TotalEarningsUSD: 10, TotalEarningsSOL: 0.05, Loaded: true},
		{Mint: "m2", Name: "Two", Symbol: "TWO", MarketCapUSD: 2_000_000, TotalEarningsUSD: 50, Loaded: true},
		{Mint: "m3", Name: "Three", Symbol: "THR", MarketCapUSD: 1_000_000, Loaded: true},
		{Mint: "m4", Name: "Four", Symbol: "FOR", MarketCapUSD: 1, Loaded: true},
	}
	return ranking.NewBoard(recs, ranking.Earnings, time.Now())
}

func TestPodium_RendersTopThree(t *testing.T) {
	p := NewPodium()
	p.SetWidth(120)
	p.SetBoard(podiumBoard())

	view := p.View()
	assert.Contains(t, view, "🥇 TWO")
	assert.Contains(t, view, "🥈 ONE")
	assert.Contains(t, view, "◎0.05")
	assert.Contains(t, view, "Market Cap $2.00M")
	assert.NotContains(t, view, "FOR")

	assert.Empty(t, NewPodium().View())
}

func TestStatusHeader_Freshness(t *testing.T) {
	h := NewStatusHeader()
	h.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC) }
	h.SetWidth(100)

	h.SetStatus(HeaderStatus{Loaded: 3, Requested: 4, SOLPrice: 150, UpdatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)})
	view := h.View()
	assert.Contains(t, view, "Tokens: 3/4")
	assert.Contains(t, view, "SOL: $150.00")
	assert.Contains(t, view, "updated 30s ago")

	h.SetStatus(HeaderStatus{Err: errors.New("boom")})
	assert.Contains(t, h.View(), "refresh failed")
	assert.Contains(t, h.View(), "SOL: -")
}

type sliceSource []logger.LogEntry

func (s sliceSource) Recent(limit int) []logger.LogEntry {
	if limit > 0 && len(s) > limit {
		return s[len(s)-limit:]
	}
	return s
}

func TestCompactLogViewer_DebugToggle(t *testing.T) {
	src := sliceSource{
		{Timestamp: time.Now(), Level: "info", Message: "Poller started"},
		{Timestamp: time.Now(), Level: "debug", Message: "No market data", Fields: map[string]interface{}{"mint": "So11111111111111111111111111111111111111112"}},
		{Timestamp: time.Now(), Level: "warning", Message: "Aggregation attempt failed", Fields: map[string]interface{}{"error": "timeout"}},
	}
	v := NewCompactLogViewer(src)
	assert.Empty(t, v.View(), "hidden by default")
	assert.Zero(t, v.GetHeight())

	v.SetVisible(true)
	v.SetSize(100, 10)
	view := v.View()
	assert.Contains(t, view, "Poller started")
	assert.Contains(t, view, "timeout")
	assert.NotContains(t, view, "No market data")

	v.ToggleDebug()
	assert.True(t, v.ShowsDebug())
	view = v.View()
	assert.Contains(t, view, "No market data")
	assert.Contains(t, view, "So11...1112")
	assert.Equal(t, 10, v.GetHeight())
}

func TestCompactLogViewer_NoSource(t *testing.T) {
	v := NewCompactLogViewer(nil)
	v.SetVisible(true)
	v.SetSize(60, 6)
	assert.True(t, strings.Contains(v.View(), "No log buffer attached"))
}
