package table

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// RowID returns a stable identity for a row at index.
type RowID func(row any, index int) string

// DefaultRowID uses the row's "id" value, then its JSON encoding, then the
// index.
func DefaultRowID(row any, index int) string {
	if v, ok := Lookup(row, "id"); ok && !IsNull(v) {
		return FormatValue(v)
	}
	if b, err := json.Marshal(row); err == nil {
		return string(b)
	}
	return strconv.Itoa(index)
}

// Snapshot maps a row id to its vertical position, in lines.
type Snapshot map[string]int

// Measure records where each row is drawn. Rows are one line each, so the
// position is the index. A repeated id keeps its first position.
func Measure(rows []any, rowID RowID) Snapshot {
	if rowID == nil {
		rowID = DefaultRowID
	}
	snap := make(Snapshot, len(rows))
	for i, row := range rows {
		id := rowID(row, i)
		if _, dup := snap[id]; dup {
			continue
		}
		snap[id] = i
	}
	return snap
}

// Order lists the ids of a snapshot by position.
func (s Snapshot) Order() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s[ids[i]] != s[ids[j]] {
			return s[ids[i]] < s[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Transform moves a row from where it was drawn to where it now belongs.
// DeltaY is the old position minus the new one.
type Transform struct {
	ID     string
	DeltaY int
}

// Plan computes one transform for every id present in both snapshots, in
// the given order. Ids missing from first (new rows) and ids missing from
// last (removed rows) get none. A nil order uses last's positions.
func Plan(first, last Snapshot, order []string) []Transform {
	if order == nil {
		order = last.Order()
	}
	out := make([]Transform, 0, len(order))
	for _, id := range order {
		before, ok := first[id]
		if !ok {
			continue
		}
		after, ok := last[id]
		if !ok {
			continue
		}
		out = append(out, Transform{ID: id, DeltaY: before - after})
	}
	return out
}

// Offset is the displacement at progress in [0,1]: the full delta at 0,
// easing out to zero at 1.
func (t Transform) Offset(progress float64) float64 {
	if progress <= 0 {
		return float64(t.DeltaY)
	}
	if progress >= 1 {
		return 0
	}
	return float64(t.DeltaY) * math.Pow(1-progress, 3)
}

func (t Transform) String() string {
	return fmt.Sprintf("%s:%+d", t.ID, t.DeltaY)
}
