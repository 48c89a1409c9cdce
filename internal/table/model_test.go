package table

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []any {
	return []any{
		map[string]any{"id": 1, "name": "Suite", "price": 300},
		map[string]any{"id": 2, "name": "Doble", "price": 120},
		map[string]any{"id": 3, "name": "Individual", "price": 80},
	}
}

func newTestModel(t *testing.T, rows []any, opts ...ModelOption) Model {
	t.Helper()
	m, err := New(rateColumns(), rows, opts...)
	require.NoError(t, err)
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// finish drives the animation to the end without waiting on timers.
func finish(m Model) Model {
	for i := 0; i < 100 && m.Animating(); i++ {
		m, _ = m.Update(frameMsg{seq: m.seq})
	}
	return m
}

func TestModel_HeaderFocusAndSortToggle(t *testing.T) {
	m := newTestModel(t, sampleRows())

	m, _ = m.Update(keyPress("right"))
	m, _ = m.Update(keyPress("right"))
	assert.Equal(t, "price", m.FocusedColumn().Key())

	m, cmd := m.Update(keyPress("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, SortState{Key: "price", Direction: Asc}, m.SortState())
	assert.Equal(t, []any{3, 2, 1}, ids(m.Rows()))
	assert.True(t, m.Animating())

	m = finish(m)
	assert.False(t, m.Animating())

	m, _ = m.Update(keyPress("enter"))
	assert.Equal(t, []any{1, 2, 3}, ids(m.Rows()))

	m, _ = m.Update(keyPress("enter"))
	assert.False(t, m.SortState().Active())
	assert.Equal(t, []any{1, 2, 3}, ids(m.Rows()))
}

func TestModel_DigitKeySortsColumn(t *testing.T) {
	m := newTestModel(t, sampleRows())
	m, _ = m.Update(keyPress("2"))
	assert.Equal(t, "name", m.FocusedColumn().Key())
	assert.Equal(t, []any{2, 3, 1}, ids(m.Rows()))
}

func TestModel_NonSortableHeaderIgnoresToggle(t *testing.T) {
	m := newTestModel(t, sampleRows())
	m, cmd := m.Update(keyPress("4"))
	assert.Nil(t, cmd)
	assert.False(t, m.SortState().Active())
}

func TestModel_SortChangedMessage(t *testing.T) {
	m := newTestModel(t, sampleRows(), WithAnimation(0, 0))
	cmd := m.ToggleSort("name")
	require.NotNil(t, cmd)

	var found bool
	for _, msg := range collect(cmd) {
		if sc, ok := msg.(SortChangedMsg); ok {
			found = true
			assert.Equal(t, SortState{Key: "name", Direction: Asc}, sc.State)
		}
	}
	assert.True(t, found)
}

// collect runs cmd and flattens batches. Only use it with commands that
// do not tick.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestModel_DrawOrderFollowsAnimation(t *testing.T) {
	m := newTestModel(t, sampleRows(), WithAnimation(240*time.Millisecond, 4))
	m.SetSort(SortState{Key: "price", Direction: Asc})

	// At frame 0 rows are still drawn where they were.
	order := m.drawOrder()
	drawn := make([]any, len(order))
	for i, idx := range order {
		v, _ := Lookup(m.view[idx], "id")
		drawn[i] = v
	}
	assert.Equal(t, []any{1, 2, 3}, drawn)

	m = finish(m)
	order = m.drawOrder()
	for i, idx := range order {
		v, _ := Lookup(m.view[idx], "id")
		drawn[i] = v
	}
	assert.Equal(t, []any{3, 2, 1}, drawn)
}

func TestModel_StaleFramesIgnored(t *testing.T) {
	m := newTestModel(t, sampleRows())
	m.SetSort(SortState{Key: "price", Direction: Asc})
	stale := m.seq
	m.SetSort(SortState{Key: "price", Direction: Desc})

	m, cmd := m.Update(frameMsg{seq: stale})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.frame)
}

func TestModel_SetRowsDoesNotAnimateNewRows(t *testing.T) {
	m := newTestModel(t, sampleRows(), WithDefaultSort(SortState{Key: "price", Direction: Asc}))
	rows := append(sampleRows(), map[string]any{"id": 4, "name": "Familiar", "price": 100})

	m, _ = m.Update(RowsMsg{Rows: rows})
	assert.Equal(t, []any{3, 4, 2, 1}, ids(m.Rows()))
	_, animated := m.transforms["4"]
	assert.False(t, animated)
}

func TestModel_LoadingView(t *testing.T) {
	m := newTestModel(t, nil, WithLoading(true))
	require.NotNil(t, m.Init())

	view := m.View()
	assert.Contains(t, view, "Precio")
	assert.Contains(t, view, DefaultLoadingMessage)
	assert.NotContains(t, view, DefaultEmptyMessage)

	m, _ = m.Update(RowsMsg{Rows: sampleRows()})
	assert.False(t, m.Loading())
	view = m.View()
	assert.NotContains(t, view, DefaultLoadingMessage)
	assert.Contains(t, view, "Individual")
}

func TestModel_EmptyView(t *testing.T) {
	m := newTestModel(t, nil, WithEmptyMessage("Sin habitaciones"))
	view := m.View()
	assert.Contains(t, view, "Nombre")
	assert.Contains(t, view, "Sin habitaciones")

	// The placeholder is a row inside the border, as wide as the table.
	lines := strings.Split(view, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	last, placeholder := lines[len(lines)-1], lines[len(lines)-2]
	assert.True(t, strings.HasPrefix(last, "╰"), "last line %q", last)
	assert.True(t, strings.HasPrefix(placeholder, "│"), "placeholder line %q", placeholder)
	assert.True(t, strings.HasSuffix(placeholder, "│"), "placeholder line %q", placeholder)
	assert.Contains(t, placeholder, "Sin habitaciones")
	assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(placeholder))
	assert.Equal(t, lipgloss.Width(lines[0]), lipgloss.Width(last))
}

func TestModel_CursorAndSelection(t *testing.T) {
	m := newTestModel(t, sampleRows())
	m, _ = m.Update(keyPress("down"))
	row, ok := m.SelectedRow()
	require.True(t, ok)
	id, _ := Lookup(row, "id")
	assert.Equal(t, 2, id)

	m.SetRows(sampleRows()[:1])
	assert.Equal(t, 0, m.Cursor())
}

func TestModel_SortIndicatorInHeader(t *testing.T) {
	m := newTestModel(t, sampleRows(), WithDefaultSort(SortState{Key: "price", Direction: Desc}))
	assert.Contains(t, m.View(), "Precio ▼")
}
