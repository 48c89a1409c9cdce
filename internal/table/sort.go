package table

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the sort direction of a column.
type Direction int

const (
	None Direction = iota
	Asc
	Desc
)

func (d Direction) String() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	default:
		return "none"
	}
}

// ParseDirection accepts "asc", "desc" and "" (none).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return None, fmt.Errorf("invalid sort direction %q (expected asc|desc)", s)
	}
}

// SortState is the active sort key and direction.
type SortState struct {
	Key       string
	Direction Direction
}

// Active reports whether the state orders rows at all.
func (s SortState) Active() bool {
	return s.Key != "" && s.Direction != None
}

// Toggle returns the state after a click on the header of key.
// The same key cycles asc -> desc -> unsorted; another key starts at asc.
func (s SortState) Toggle(key string) SortState {
	if key != s.Key || s.Direction == None {
		return SortState{Key: key, Direction: Asc}
	}
	if s.Direction == Asc {
		return SortState{Key: key, Direction: Desc}
	}
	return SortState{}
}

// Indicator is the header suffix for the column key.
func (s SortState) Indicator(key string) string {
	if !s.Active() || s.Key != key {
		return ""
	}
	if s.Direction == Asc {
		return " ▲"
	}
	return " ▼"
}

// Sort returns a sorted copy of rows. rows itself is never modified.
//
// Rows are ordered by the Sortable column whose key matches state.Key.
// Rows without a value sort first in both directions, and the sort is
// stable, so rows with equal or missing values keep their relative order.
// An inactive state, or a key with no sortable column, returns the rows in
// their original order.
func Sort(rows []any, columns []Column, state SortState) []any {
	out := make([]any, len(rows))
	copy(out, rows)
	if !state.Active() || len(out) < 2 {
		return out
	}
	col, ok := findColumn(columns, state.Key)
	if !ok {
		return out
	}
	sc, ok := col.(Sortable)
	if !ok {
		return out
	}

	type keyed struct {
		row  any
		val  any
		null bool
	}
	items := make([]keyed, len(out))
	for i, row := range out {
		v, ok := sc.SortValue(row)
		items[i] = keyed{row: row, val: v, null: !ok || IsNull(v)}
	}

	desc := state.Direction == Desc
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.null && b.null:
			return false
		case a.null:
			return true
		case b.null:
			return false
		}
		c := Compare(a.val, b.val)
		if desc {
			c = -c
		}
		return c < 0
	})

	for i := range items {
		out[i] = items[i].row
	}
	return out
}

// Compare orders two non-null values. Numbers compare numerically, times
// chronologically, and anything else as case-insensitive text.
func Compare(a, b any) int {
	if da, ok := toDecimal(a); ok {
		if db, ok := toDecimal(b); ok {
			return da.Cmp(db)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}

// toDecimal converts Go numeric kinds, json.Number and decimal values.
// Numeric strings are text, not numbers.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return *n, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	}
	return decimal.Decimal{}, false
}
