package output

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/salmonumbrella/pms-cli/internal/table"
)

// Table represents a pre-rendered table for table output formatting.
// Right marks right-aligned columns. Empty is printed as one row spanning
// every column when there are no rows.
type Table struct {
	Headers []string   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    [][]string `json:"rows,omitempty" yaml:"rows,omitempty"`
	Right   []bool     `json:"-" yaml:"-"`
	Empty   string     `json:"-" yaml:"-"`
}

// FromProjection converts projected table cells into a printable Table.
func FromProjection(p table.Projection) Table {
	return Table{Headers: p.Headers, Rows: p.Cells, Right: p.Right, Empty: p.Empty}
}

func (t Table) rightAligned(i int) bool {
	return i < len(t.Right) && t.Right[i]
}

// apply sorts rows by the column whose header or position matches sortBy,
// then truncates to limit.
func (t Table) apply(limit int, sortBy string, desc bool) Table {
	rows := make([][]string, len(t.Rows))
	copy(rows, t.Rows)

	if col := t.columnIndex(sortBy); col >= 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := cellAt(rows[i], col), cellAt(rows[j], col)
			return lessPresent(cellValue(a), a != "", cellValue(b), b != "", desc)
		})
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	t.Rows = rows
	return t
}

func (t Table) columnIndex(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, h := range t.Headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// cellValue reads a rendered number back so numeric columns sort by value.
func cellValue(cell string) interface{} {
	if d, err := decimal.NewFromString(strings.TrimSpace(cell)); err == nil {
		return d
	}
	return cell
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// render lays the table out in space-separated columns. Widths are
// measured in terminal cells so accented headers line up.
func (t Table) render() string {
	cols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	var b strings.Builder
	line := func(row []string) {
		cells := make([]string, cols)
		for i := 0; i < cols; i++ {
			cell := cellAt(row, i)
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if t.rightAligned(i) {
				cells[i] = pad + cell
			} else {
				cells[i] = cell + pad
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteByte('\n')
	}
	if len(t.Headers) > 0 {
		line(t.Headers)
	}
	for _, row := range t.Rows {
		line(row)
	}
	if len(t.Rows) == 0 && t.Empty != "" {
		span := 2 * (cols - 1)
		for _, w := range widths {
			span += w
		}
		b.WriteString(strings.TrimRight(lipgloss.PlaceHorizontal(span, lipgloss.Center, t.Empty), " "))
		b.WriteByte('\n')
	}
	return b.String()
}
