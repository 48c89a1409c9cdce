package table

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

const (
	DefaultAnimationDuration = 240 * time.Millisecond
	DefaultAnimationFrames   = 12
	DefaultEmptyMessage      = "No hay datos"
	DefaultLoadingMessage    = "Cargando…"
)

// RowsMsg replaces the rows of a Model.
type RowsMsg struct {
	Rows []any
}

// LoadingMsg switches the loading indicator.
type LoadingMsg bool

// SortChangedMsg is emitted after the user changes the sort.
type SortChangedMsg struct {
	State SortState
}

type frameMsg struct {
	seq int
}

// KeyMap holds the table key bindings.
type KeyMap struct {
	Left   key.Binding
	Right  key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter/1-9", "sort")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Up, k.Down, k.Toggle}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Styles used to draw a Model.
type Styles struct {
	Header         lipgloss.Style
	SortableHeader lipgloss.Style
	FocusedHeader  lipgloss.Style
	Cell           lipgloss.Style
	Selected       lipgloss.Style
	Moving         lipgloss.Style
	Empty          lipgloss.Style
	Border         lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		Header:         lipgloss.NewStyle().Bold(true).Padding(0, 1),
		SortableHeader: lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#87CEEB")),
		FocusedHeader: lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")),
		Cell: lipgloss.NewStyle().Padding(0, 1),
		Selected: lipgloss.NewStyle().Padding(0, 1).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C3C5A")),
		Moving: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#98FB98")),
		Empty:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true),
		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithRowID sets how rows are identified across reorders.
func WithRowID(fn RowID) ModelOption {
	return func(m *Model) {
		if fn != nil {
			m.rowID = fn
		}
	}
}

// WithDefaultSort sets the initial sort.
func WithDefaultSort(state SortState) ModelOption {
	return func(m *Model) { m.sort = state }
}

// WithEmptyMessage sets the placeholder shown when there are no rows.
func WithEmptyMessage(msg string) ModelOption {
	return func(m *Model) { m.emptyMessage = msg }
}

// WithLoading sets the initial loading state.
func WithLoading(loading bool) ModelOption {
	return func(m *Model) { m.loading = loading }
}

// WithAnimation sets the reorder animation length and frame count.
// frames <= 0 disables the animation.
func WithAnimation(d time.Duration, frames int) ModelOption {
	return func(m *Model) {
		m.duration = d
		m.frames = frames
	}
}

// WithStyles replaces the default styles.
func WithStyles(s Styles) ModelOption {
	return func(m *Model) { m.styles = s }
}

// Model is an interactive, sortable table. Reorders are animated: rows
// start where they were drawn and slide to their new position.
type Model struct {
	columns []Column
	rows    []any
	view    []any
	sort    SortState
	rowID   RowID

	focus  int
	cursor int
	width  int

	loading      bool
	emptyMessage string
	spinner      spinner.Model

	duration   time.Duration
	frames     int
	frame      int
	seq        int
	transforms map[string]Transform

	keys   KeyMap
	help   help.Model
	styles Styles
}

// New builds a Model. Column keys must be unique.
func New(columns []Column, rows []any, opts ...ModelOption) (Model, error) {
	if err := Validate(columns); err != nil {
		return Model{}, err
	}
	m := Model{
		columns:      columns,
		rowID:        DefaultRowID,
		emptyMessage: DefaultEmptyMessage,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		duration:     DefaultAnimationDuration,
		frames:       DefaultAnimationFrames,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		styles:       DefaultStyles(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.rows = rows
	m.view = Sort(rows, columns, m.sort)
	return m, nil
}

// Init starts the spinner when the model begins in the loading state.
func (m Model) Init() tea.Cmd {
	if m.loading {
		return m.spinner.Tick
	}
	return nil
}

// Rows returns the rows in display order.
func (m Model) Rows() []any { return m.view }

// Columns returns the columns.
func (m Model) Columns() []Column { return m.columns }

// SortState returns the active sort.
func (m Model) SortState() SortState { return m.sort }

// Loading reports whether the loading indicator is shown.
func (m Model) Loading() bool { return m.loading }

// Cursor is the index of the selected row in display order.
func (m Model) Cursor() int { return m.cursor }

// FocusedColumn returns the column whose header has focus.
func (m Model) FocusedColumn() Column {
	if len(m.columns) == 0 {
		return nil
	}
	return m.columns[m.focus]
}

// SelectedRow returns the row under the cursor.
func (m Model) SelectedRow() (any, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view) {
		return nil, false
	}
	return m.view[m.cursor], true
}

// Animating reports whether a reorder animation is in progress.
func (m Model) Animating() bool { return m.transforms != nil }

// KeyMap returns the bindings, for help rendering by a parent model.
func (m Model) KeyMap() KeyMap { return m.keys }

// SetRows replaces the rows and animates rows that remain from their
// previous position. New rows appear in place.
func (m *Model) SetRows(rows []any) tea.Cmd {
	first := Measure(m.view, m.rowID)
	m.rows = rows
	m.view = Sort(rows, m.columns, m.sort)
	m.clampCursor()
	return m.animateFrom(first)
}

// SetSort applies a sort and animates the reorder.
func (m *Model) SetSort(state SortState) tea.Cmd {
	first := Measure(m.view, m.rowID)
	m.sort = state
	m.view = Sort(m.rows, m.columns, m.sort)
	return m.animateFrom(first)
}

// ToggleSort behaves like a click on the header of key. Columns that are
// not Sortable ignore it.
func (m *Model) ToggleSort(key string) tea.Cmd {
	col, ok := findColumn(m.columns, key)
	if !ok || !IsSortable(col) {
		return nil
	}
	state := m.sort.Toggle(key)
	anim := m.SetSort(state)
	changed := func() tea.Msg { return SortChangedMsg{State: state} }
	return tea.Batch(anim, changed)
}

// SetLoading switches the loading indicator.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	wasLoading := m.loading
	m.loading = loading
	if loading && !wasLoading {
		return m.spinner.Tick
	}
	return nil
}

// SetEmptyMessage changes the empty placeholder text.
func (m *Model) SetEmptyMessage(msg string) {
	m.emptyMessage = msg
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.view) {
		m.cursor = len(m.view) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) animateFrom(first Snapshot) tea.Cmd {
	m.seq++
	m.transforms = nil
	m.frame = 0
	if m.frames <= 0 || len(first) == 0 {
		return nil
	}

	last := Measure(m.view, m.rowID)
	moved := make(map[string]Transform)
	for _, t := range Plan(first, last, last.Order()) {
		if t.DeltaY != 0 {
			moved[t.ID] = t
		}
	}
	if len(moved) == 0 {
		return nil
	}
	m.transforms = moved
	return m.nextFrame()
}

func (m Model) nextFrame() tea.Cmd {
	seq := m.seq
	step := m.duration / time.Duration(m.frames)
	return tea.Tick(step, func(time.Time) tea.Msg {
		return frameMsg{seq: seq}
	})
}

func (m Model) progress() float64 {
	if m.frames <= 0 {
		return 1
	}
	return float64(m.frame) / float64(m.frames)
}

// Update handles keys, data messages and animation frames.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if msg.seq != m.seq || m.transforms == nil {
			return m, nil
		}
		m.frame++
		if m.frame >= m.frames {
			m.transforms = nil
			return m, nil
		}
		return m, m.nextFrame()

	case RowsMsg:
		cmd := m.SetRows(msg.Rows)
		return m, tea.Batch(cmd, m.SetLoading(false))

	case LoadingMsg:
		return m, m.SetLoading(bool(msg))

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.focus > 0 {
			m.focus--
		}
	case key.Matches(msg, m.keys.Right):
		if m.focus < len(m.columns)-1 {
			m.focus++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if col := m.FocusedColumn(); col != nil {
			return m, m.ToggleSort(col.Key())
		}
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9':
		idx := int(msg.Runes[0] - '1')
		if idx < len(m.columns) {
			m.focus = idx
			return m, m.ToggleSort(m.columns[idx].Key())
		}
	}
	return m, nil
}

// drawOrder returns view indexes ordered by their animated position.
func (m Model) drawOrder() []int {
	order := make([]int, len(m.view))
	for i := range order {
		order[i] = i
	}
	if m.transforms == nil {
		return order
	}
	p := m.progress()
	pos := make([]float64, len(m.view))
	for i, row := range m.view {
		pos[i] = float64(i)
		if t, ok := m.transforms[m.rowID(row, i)]; ok {
			pos[i] += t.Offset(p)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pos[order[a]] < pos[order[b]]
	})
	return order
}

func (m Model) headers() []string {
	out := make([]string, len(m.columns))
	for i, c := range m.columns {
		out[i] = c.Header() + m.sort.Indicator(c.Key())
	}
	return out
}

// View renders the table. While loading, the body is replaced by the
// spinner; with no rows it shows the empty placeholder.
func (m Model) View() string {
	t := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(m.styles.Border).
		Headers(m.headers()...)

	var order []int
	var moving map[int]bool
	if !m.loading {
		order = m.drawOrder()
		moving = make(map[int]bool, len(m.transforms))
		for _, idx := range order {
			row := m.view[idx]
			line := make([]string, len(m.columns))
			for c, col := range m.columns {
				line[c] = Cell(col, row)
			}
			t.Row(line...)
			if m.transforms != nil {
				if _, ok := m.transforms[m.rowID(row, idx)]; ok {
					moving[idx] = true
				}
			}
		}
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		var style lipgloss.Style
		if row == lgtable.HeaderRow {
			switch {
			case col == m.focus:
				style = m.styles.FocusedHeader
			case IsSortable(m.columns[col]):
				style = m.styles.SortableHeader
			default:
				style = m.styles.Header
			}
		} else if row >= 0 && row < len(order) {
			idx := order[row]
			switch {
			case idx == m.cursor:
				style = m.styles.Selected
			case moving[idx]:
				style = m.styles.Moving
			default:
				style = m.styles.Cell
			}
		} else {
			style = m.styles.Cell
		}
		if m.columns[col].Align() == AlignRight {
			style = style.Align(lipgloss.Right)
		}
		return style
	})

	rendered := t.Render()
	switch {
	case m.loading:
		return m.placeholderRow(rendered, m.spinner.View()+" "+DefaultLoadingMessage)
	case len(m.view) == 0:
		return m.placeholderRow(rendered, m.styles.Empty.Render(m.emptyMessage))
	}
	return rendered
}

// placeholderRow replaces the bottom border of a header-only table with a
// single row spanning every column, closed by its own border.
func (m Model) placeholderRow(rendered, text string) string {
	width := lipgloss.Width(rendered)
	lines := strings.Split(rendered, "\n")
	if len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}
	row := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), false, true, true, true).
		BorderForeground(m.styles.Border.GetForeground()).
		Width(max(width-2, lipgloss.Width(text))).
		Align(lipgloss.Center).
		Render(text)
	return strings.Join(append(lines, row), "\n")
}

// HelpView renders the key bindings.
func (m Model) HelpView() string {
	return m.help.View(m.keys)
}
