package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/salmonumbrella/pms-cli/internal/logging"
	"github.com/salmonumbrella/pms-cli/internal/notify"
	"github.com/salmonumbrella/pms-cli/internal/pms"
	"github.com/salmonumbrella/pms-cli/internal/resource"
	"github.com/salmonumbrella/pms-cli/internal/table"
)

var browseCmd = &cobra.Command{
	Use:   "browse <resource>",
	Short: "Browse a resource in an interactive table",
	Long: `Open an interactive, sortable table of a resource.

Move between columns with ←/→ and sort with enter or the column number;
rows slide to their new position when the order changes.

Keys:
  r      refetch from the server
  d      delete the selected row (asks for confirmation)
  n, ]   load the next page
  q      quit

Examples:
  pms browse rooms
  pms browse reservations --param status=confirmed`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

var (
	browseParamFlags []string
	browseSearch     string
)

func init() {
	browseCmd.Flags().StringArrayVar(&browseParamFlags, "param", nil, "Query parameter key=value (repeatable)")
	browseCmd.Flags().StringVar(&browseSearch, "search", "", "Free-text search")

	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, out := stdinFromContext(ctx), stdoutFromContext(ctx)
	if !isInteractiveFunc(in, out) {
		return fmt.Errorf("browse needs an interactive terminal; use 'pms list %s' instead", args[0])
	}

	params, err := parseParams(browseParamFlags)
	if err != nil {
		return err
	}
	if s := strings.TrimSpace(browseSearch); s != "" {
		params.Set("search", s)
	}
	params = pageParams(params, 0, pageSize)

	m, err := newBrowseModel(ctx, GetClient(), args[0], params)
	if err != nil {
		return err
	}
	_, err = runProgramFunc(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen())
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

type browseKeyMap struct {
	Refresh key.Binding
	Delete  key.Binding
	Next    key.Binding
	Quit    key.Binding
	table   table.KeyMap
}

func defaultBrowseKeys() browseKeyMap {
	return browseKeyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refetch")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Next:    key.NewBinding(key.WithKeys("n", "]"), key.WithHelp("n/]", "next page")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		table:   table.DefaultKeyMap(),
	}
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return append(k.table.ShortHelp(), k.Refresh, k.Delete, k.Next, k.Quit)
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// rowsLoadedMsg carries the rows of a query after a fetch.
type rowsLoadedMsg struct {
	rows    []any
	count   int
	hasNext bool
	err     error
}

// mutationDoneMsg carries the toasts a mutation produced.
type mutationDoneMsg struct {
	toasts []tea.Msg
	err    error
}

var (
	browseTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	browseStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	browseWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
)

type browseModel struct {
	ctx       context.Context
	transport resource.Transport
	layer     *resource.Layer
	query     *resource.ListQuery
	schema    pms.Schema
	inferred  bool

	table  table.Model
	toasts *notify.Toasts
	keys   browseKeyMap
	help   help.Model

	count      int
	hasNext    bool
	confirming string
}

func newBrowseModel(ctx context.Context, t resource.Transport, name string, params url.Values) (browseModel, error) {
	name = pms.NormalizeResource(name)
	layer := resource.NewLayer(t, nil, resource.WithLogger(logging.Logger()))
	schema := pms.SchemaFor(name, nil)

	m := browseModel{
		ctx:       ctx,
		transport: t,
		layer:     layer,
		query:     layer.List(name, params, true),
		schema:    schema,
		toasts:    notify.NewToasts(),
		keys:      defaultBrowseKeys(),
		help:      help.New(),
	}
	tbl, err := newBrowseTable(schema)
	if err != nil {
		return browseModel{}, err
	}
	m.table = tbl
	return m, nil
}

func newBrowseTable(schema pms.Schema) (table.Model, error) {
	return table.New(schema.Columns, nil,
		table.WithDefaultSort(schema.DefaultSort),
		table.WithLoading(true))
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.table.Init(), m.load(m.query.Fetch))
}

// load runs fetch against the list query off the UI goroutine.
func (m browseModel) load(fetch func(context.Context) error) tea.Cmd {
	q, ctx := m.query, m.ctx
	return func() tea.Msg {
		err := fetch(ctx)
		return rowsLoadedMsg{rows: q.Rows(), count: q.Count(), hasNext: q.HasNextPage(), err: err}
	}
}

// remove deletes a row through a layer whose notifier collects toasts, so
// they reach the model as messages.
func (m browseModel) remove(id string) tea.Cmd {
	ctx, t, cache, name := m.ctx, m.transport, m.layer.Cache(), m.schema.Resource
	return func() tea.Msg {
		var toasts []tea.Msg
		sender := notify.NewSender(func(msg tea.Msg) { toasts = append(toasts, msg) })
		layer := resource.NewLayer(t, sender, resource.WithCache(cache), resource.WithLogger(logging.Logger()))
		_, err := layer.Delete(name).Mutate(ctx, id)
		return mutationDoneMsg{toasts: toasts, err: err}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case rowsLoadedMsg:
		return m.handleRows(msg)

	case mutationDoneMsg:
		var cmds []tea.Cmd
		for _, t := range msg.toasts {
			cmds = append(cmds, m.toasts.Update(t))
		}
		if msg.err == nil {
			spin := m.table.SetLoading(true)
			cmds = append(cmds, spin, m.load(m.query.Refetch))
		}
		return m, tea.Batch(cmds...)

	case notify.ToastMsg:
		return m, m.toasts.Update(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Spinner ticks, animation frames and toast expiry.
	cmd := m.toasts.Update(msg)
	var tableCmd tea.Cmd
	m.table, tableCmd = m.table.Update(msg)
	return m, tea.Batch(cmd, tableCmd)
}

func (m browseModel) handleRows(msg rowsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		toast := m.toasts.Update(notify.ToastMsg{Kind: notify.KindError, Message: resource.ErrorMessage(msg.err)})
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(table.RowsMsg{Rows: msg.rows})
		return m, tea.Batch(toast, cmd)
	}

	if !m.schema.Known && !m.inferred && len(msg.rows) > 0 {
		m.schema = pms.Infer(m.schema.Resource, msg.rows)
		m.inferred = true
		tbl, err := newBrowseTable(m.schema)
		if err == nil {
			m.table = tbl
		}
	}

	m.count, m.hasNext = msg.count, msg.hasNext
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(table.RowsMsg{Rows: msg.rows})
	return m, cmd
}

func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.toasts.Blocking() {
		m.toasts.Dismiss()
		return m, nil
	}

	if m.confirming != "" {
		id := m.confirming
		m.confirming = ""
		if msg.String() == "y" {
			return m, m.remove(id)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		spin := m.table.SetLoading(true)
		return m, tea.Batch(spin, m.load(m.query.Refetch))
	case key.Matches(msg, m.keys.Next):
		if !m.hasNext {
			return m, nil
		}
		spin := m.table.SetLoading(true)
		return m, tea.Batch(spin, m.load(m.query.FetchNextPage))
	case key.Matches(msg, m.keys.Delete):
		if row, ok := m.table.SelectedRow(); ok {
			if v, ok := table.Lookup(row, "id"); ok && !table.IsNull(v) {
				m.confirming = table.FormatValue(v)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(browseTitleStyle.Render(m.schema.Title))
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	status := fmt.Sprintf("%d de %d", len(m.table.Rows()), m.count)
	if m.hasNext {
		status += " · n para cargar más"
	}
	b.WriteString(browseStatusStyle.Render(status))

	if m.confirming != "" {
		b.WriteString("\n")
		b.WriteString(browseWarnStyle.Render(fmt.Sprintf("¿Eliminar %s %s? (y/N)", m.schema.Resource, m.confirming)))
	}
	if toasts := m.toasts.View(); toasts != "" {
		b.WriteString("\n")
		b.WriteString(toasts)
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
