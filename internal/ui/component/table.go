package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/topbags/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int // 0: share the remaining width
	Align  lipgloss.Position
}

// Table renders ranked rows with an optional cursor.
type Table struct {
	columns     []TableColumn
	rows        [][]string
	width       int
	height      int
	selectedRow int
	offset      int

	headerStyle      lipgloss.Style
	rowStyle         lipgloss.Style
	selectedRowStyle lipgloss.Style
	borderStyle      lipgloss.Style

	showBorder bool
	selectable bool
}

// NewTable creates a new table component
func NewTable(columns ...TableColumn) *Table {
	palette := style.DefaultPalette()

	return &Table{
		columns: columns,

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		selectedRowStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),

		showBorder: true,
		selectable: true,
	}
}

// SetRows replaces the table rows, keeping the cursor in range.
func (t *Table) SetRows(rows [][]string) *Table {
	t.rows = rows
	if t.selectedRow >= len(rows) {
		t.selectedRow = len(rows) - 1
	}
	if t.selectedRow < 0 {
		t.selectedRow = 0
	}
	t.clampOffset()
	return t
}

// SetSize sets the table dimensions. A height of zero shows every row.
func (t *Table) SetSize(width, height int) *Table {
	t.width = width
	t.height = height
	t.clampOffset()
	return t
}

// SetSelectable enables/disables row selection
func (t *Table) SetSelectable(selectable bool) *Table {
	t.selectable = selectable
	return t
}

// SetShowBorder enables/disables table border
func (t *Table) SetShowBorder(show bool) *Table {
	t.showBorder = show
	return t
}

// SelectedRow returns the cursor position.
func (t *Table) SelectedRow() int {
	return t.selectedRow
}

// MoveUp moves selection up
func (t *Table) MoveUp() *Table {
	if t.selectable && t.selectedRow > 0 {
		t.selectedRow--
		t.clampOffset()
	}
	return t
}

// MoveDown moves selection down
func (t *Table) MoveDown() *Table {
	if t.selectable && t.selectedRow < len(t.rows)-1 {
		t.selectedRow++
		t.clampOffset()
	}
	return t
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// visibleRows is the body height, excluding header and separator.
func (t *Table) visibleRows() int {
	if t.height <= 0 {
		return len(t.rows)
	}
	n := t.height - 2
	if t.showBorder {
		n -= 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (t *Table) clampOffset() {
	visible := t.visibleRows()
	if t.selectedRow < t.offset {
		t.offset = t.selectedRow
	}
	if t.selectedRow >= t.offset+visible {
		t.offset = t.selectedRow - visible + 1
	}
	if last := len(t.rows) - visible; t.offset > last {
		t.offset = last
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return "No columns defined"
	}

	widths := t.columnWidths()
	var content strings.Builder

	// Headers
	for i, col := range t.columns {
		content.WriteString(t.renderCell(col.Header, widths[i], col.Align, t.headerStyle))
		if i < len(t.columns)-1 {
			content.WriteString("│")
		}
	}
	content.WriteString("\n")
	for i := range t.columns {
		content.WriteString(strings.Repeat("─", widths[i]))
		if i < len(t.columns)-1 {
			content.WriteString("┼")
		}
	}

	end := t.offset + t.visibleRows()
	if end > len(t.rows) {
		end = len(t.rows)
	}
	for rowIndex := t.offset; rowIndex < end; rowIndex++ {
		row := t.rows[rowIndex]
		content.WriteString("\n")

		rowStyle := t.rowStyle
		if t.selectable && rowIndex == t.selectedRow {
			rowStyle = t.selectedRowStyle
		}

		for i, col := range t.columns {
			cellData := ""
			if i < len(row) {
				cellData = row[i]
			}
			content.WriteString(t.renderCell(cellData, widths[i], col.Align, rowStyle))
			if i < len(t.columns)-1 {
				content.WriteString("│")
			}
		}
	}

	result := content.String()
	if t.showBorder {
		result = t.borderStyle.Render(result)
	}
	return result
}

// renderCell renders a single table cell
func (t *Table) renderCell(content string, width int, align lipgloss.Position, st lipgloss.Style) string {
	// Padding(0, 1) takes two columns of the cell
	content = truncate(content, width-2)
	return st.Width(width).Align(align).Render(content)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width > 3 {
		return string(r[:width-3]) + "..."
	}
	return string(r[:width])
}

// columnWidths fills zero-width columns with an equal share of the rest.
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.columns))
	explicit, auto := 0, 0
	for i, col := range t.columns {
		widths[i] = col.Width
		if col.Width > 0 {
			explicit += col.Width
		} else {
			auto++
		}
	}
	if auto == 0 {
		return widths
	}

	available := t.width - explicit - (len(t.columns) - 1)
	if t.showBorder {
		available -= 2
	}
	share := 12
	if available/auto > share {
		share = available / auto
	}
	for i := range widths {
		if widths[i] <= 0 {
			widths[i] = share
		}
	}
	return widths
}
