package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_EveryRemainingRowGetsOneTransform(t *testing.T) {
	before := []any{
		map[string]any{"id": 1, "price": 30},
		map[string]any{"id": 2, "price": 10},
		map[string]any{"id": 3, "price": 20},
	}
	after := Sort(append(before, map[string]any{"id": 4, "price": 15}), rateColumns(), SortState{Key: "price", Direction: Asc})

	first := Measure(before, DefaultRowID)
	last := Measure(after, DefaultRowID)
	plan := Plan(first, last, last.Order())

	require.Len(t, plan, 3)
	seen := map[string]int{}
	for _, tr := range plan {
		seen[tr.ID]++
	}
	assert.Equal(t, map[string]int{"1": 1, "2": 1, "3": 1}, seen)

	// after: 2 (10), 4 (15), 3 (20), 1 (30)
	assert.Equal(t, []Transform{
		{ID: "2", DeltaY: 1},
		{ID: "3", DeltaY: 0},
		{ID: "1", DeltaY: -3},
	}, plan)
}

func TestPlan_RemovedAndUnknownIDs(t *testing.T) {
	first := Snapshot{"a": 0, "b": 1, "gone": 2}
	last := Snapshot{"b": 0, "a": 1, "new": 2}

	plan := Plan(first, last, []string{"b", "a", "new", "missing"})
	assert.Equal(t, []Transform{{ID: "b", DeltaY: 1}, {ID: "a", DeltaY: -1}}, plan)

	assert.NotPanics(t, func() {
		assert.Empty(t, Plan(nil, nil, nil))
		assert.Empty(t, Plan(first, nil, nil))
	})
}

func TestTransform_Offset(t *testing.T) {
	tr := Transform{ID: "x", DeltaY: 4}
	assert.Equal(t, 4.0, tr.Offset(0))
	assert.Equal(t, 0.0, tr.Offset(1))
	assert.Equal(t, 4.0, tr.Offset(-1))
	assert.Equal(t, 0.0, tr.Offset(2))

	half := tr.Offset(0.5)
	assert.InDelta(t, 0.5, half, 1e-9)
	assert.Less(t, tr.Offset(0.75), half)
}

func TestMeasure_DuplicateIDKeepsFirstPosition(t *testing.T) {
	rows := []any{
		map[string]any{"id": "r1"},
		map[string]any{"id": "r1"},
		map[string]any{"id": "r2"},
	}
	snap := Measure(rows, nil)
	assert.Equal(t, Snapshot{"r1": 0, "r2": 2}, snap)
	assert.Equal(t, []string{"r1", "r2"}, snap.Order())
}

func TestDefaultRowID(t *testing.T) {
	assert.Equal(t, "42", DefaultRowID(map[string]any{"id": 42}, 0))
	assert.Equal(t, "7", DefaultRowID(map[string]any{"id": 7.0}, 0))
	assert.Equal(t, `{"name":"x"}`, DefaultRowID(map[string]any{"name": "x"}, 3))
	assert.Equal(t, "5", DefaultRowID(func() {}, 5))
}
