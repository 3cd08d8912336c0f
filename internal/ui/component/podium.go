package component

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/ui/style"
)

var medals = [...]string{"🥇", "🥈", "🥉"}

// Podium renders the top positions of a board as cards.
type Podium struct {
	entries []ranking.Entry
	metric  ranking.Metric
	width   int
	palette style.Palette
}

// NewPodium creates an empty podium.
func NewPodium() *Podium {
	return &Podium{palette: style.DefaultPalette(), metric: ranking.MarketCap}
}

// SetBoard takes the podium entries of b.
func (p *Podium) SetBoard(b ranking.Board) {
	p.entries = b.Podium
	p.metric = b.Metric
}

// SetWidth sets the total width shared by the cards.
func (p *Podium) SetWidth(width int) {
	p.width = width
}

// View renders the cards left to right in rank order.
func (p *Podium) View() string {
	if len(p.entries) == 0 {
		return ""
	}

	cardWidth := 24
	if p.width >= 80 {
		cardWidth = p.width/ranking.PodiumSize - 2
	}

	cards := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		cards = append(cards, p.card(e, cardWidth))
	}
	return style.AdaptiveJoinHorizontal(p.width, cards...)
}

func (p *Podium) card(e ranking.Entry, width int) string {
	color := p.palette.PodiumColor(e.Rank)

	medal := fmt.Sprintf("#%d", e.Rank)
	if e.Rank >= 1 && e.Rank <= len(medals) {
		medal = medals[e.Rank-1]
	}

	value := FormatUSD(e.Value)
	if p.metric == ranking.Earnings && e.Token.TotalEarningsSOL > 0 {
		value += " " + FormatSOL(e.Token.TotalEarningsSOL)
	}

	other := p.metric.Other()
	body := lipgloss.JoinVertical(
		lipgloss.Center,
		medal+" "+e.Token.Symbol,
		style.MutedStyle.Render(truncate(e.Token.Name, width-4)),
		style.PodiumValueStyle.Foreground(color).Render(value),
		style.PodiumSecondaryStyle.Render(fmt.Sprintf("%s %s", other.Label(), FormatUSD(other.Value(e.Token)))),
	)

	return style.PodiumCardStyle.
		BorderForeground(color).
		Width(width).
		Render(body)
}
