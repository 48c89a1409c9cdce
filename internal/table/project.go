package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Projection is the static form of a table. Empty is the placeholder
// shown in place of the body when there are no cells.
type Projection struct {
	Headers []string
	Cells   [][]string
	Right   []bool
	Empty   string
}

// Project renders rows into cell text for non-interactive output.
func Project(columns []Column, rows []any) Projection {
	p := Projection{
		Headers: make([]string, len(columns)),
		Cells:   make([][]string, 0, len(rows)),
		Right:   make([]bool, len(columns)),
		Empty:   DefaultEmptyMessage,
	}
	for i, c := range columns {
		p.Headers[i] = c.Header()
		p.Right[i] = c.Align() == AlignRight
	}
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = Cell(c, row)
		}
		p.Cells = append(p.Cells, line)
	}
	return p
}

// Cell is the text of one cell.
func Cell(c Column, row any) string {
	if r, ok := c.(Renderable); ok {
		return r.Render(row)
	}
	v, ok := Lookup(row, c.Key())
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// FormatValue turns a decoded JSON value into cell text.
func FormatValue(v any) string {
	if IsNull(v) {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
