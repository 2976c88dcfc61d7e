package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Align positions a cell inside its column
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

func (a Align) position() lipgloss.Position {
	switch a {
	case AlignRight:
		return lipgloss.Right
	case AlignCenter:
		return lipgloss.Center
	default:
		return lipgloss.Left
	}
}

// columnGap separates adjacent columns
const columnGap = 2

// TableColumn describes one column. Width is a minimum, MaxWidth truncates
// longer cells.
type TableColumn struct {
	Header   string
	Width    int
	MaxWidth int
	Align    Align
}

// Table collects rows and renders them with a single rule under the header
type Table struct {
	Columns []TableColumn
	Rows    [][]string
}

// NewTable creates a table with the given columns
func NewTable(columns []TableColumn) *Table {
	return &Table{Columns: columns}
}

// AddRow appends a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells []string) {
	row := make([]string, len(t.Columns))
	for i := range row {
		if i >= len(cells) {
			break
		}
		row[i] = cells[i]
		if max := t.Columns[i].MaxWidth; max > 0 {
			row[i] = Truncate(row[i], max)
		}
	}
	t.Rows = append(t.Rows, row)
}

// Render returns the table followed by a newline, or "" without columns
func (t *Table) Render() string {
	if len(t.Columns) == 0 {
		return ""
	}

	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
		if pad := col.Width - lipgloss.Width(col.Header); pad > 0 {
			headers[i] += strings.Repeat(" ", pad)
		}
	}

	last := len(t.Columns) - 1
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleTableBorder).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderRow(false).
		BorderHeader(true).
		Headers(headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			var s lipgloss.Style
			switch {
			case row == table.HeaderRow:
				s = StyleTableHeader
			case row%2 == 0:
				s = StyleTableRow
			default:
				s = StyleTableRowAlt
			}
			s = s.Align(t.Columns[col].Align.position())
			if col < last {
				s = s.PaddingRight(columnGap)
			}
			return s
		})

	return tbl.String() + "\n"
}

// Truncate shortens s to max display cells, ending with an ellipsis
func Truncate(s string, max int) string {
	if max <= 0 || lipgloss.Width(s) <= max {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// RenderKeyValue renders "key: value" with the key in the accent colour
func RenderKeyValue(key, value string) string {
	return fmt.Sprintf("%s: %s", StyleAccent.Render(key), value)
}
