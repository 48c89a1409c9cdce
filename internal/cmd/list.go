package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/pms-cli/internal/output"
	"github.com/salmonumbrella/pms-cli/internal/pms"
	"github.com/salmonumbrella/pms-cli/internal/table"
)

var listCmd = &cobra.Command{
	Use:   "list <resource>",
	Short: "List a PMS resource",
	Long: `List the entities of a resource such as rooms, reservations or
housekeeping/tasks.

Rows are sorted client-side by --sort (or the resource's default sort).
Rows without a value for the sort key are listed first. Use --param to
send filters to the server and --all to follow every page.

Examples:
  pms list rooms
  pms list rooms --search 101
  pms list reservations --param status=confirmed --sort check_in --desc
  pms list housekeeping/tasks --all -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var (
	listParamFlags []string
	listSearch     string
	listSort       string
	listDesc       bool
	listAll        bool
	listPage       int
)

func init() {
	listCmd.Flags().StringArrayVar(&listParamFlags, "param", nil, "Query parameter key=value (repeatable)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Free-text search")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Column key to sort by")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "Sort in descending order")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Fetch every page")
	listCmd.Flags().IntVar(&listPage, "page", 0, "Page number to fetch")

	rootCmd.AddCommand(listCmd)
}

// sortStateFor picks the sort of a listing: the requested key, or the
// schema default when none is given.
func sortStateFor(schema pms.Schema, key string, desc bool) (table.SortState, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		state := schema.DefaultSort
		if desc && state.Key != "" {
			state.Direction = table.Desc
		}
		return state, nil
	}
	for _, c := range schema.Columns {
		if c.Key() == key && table.IsSortable(c) {
			dir := table.Asc
			if desc {
				dir = table.Desc
			}
			return table.SortState{Key: key, Direction: dir}, nil
		}
	}
	var sortable []string
	for _, c := range schema.Columns {
		if table.IsSortable(c) {
			sortable = append(sortable, c.Key())
		}
	}
	return table.SortState{}, fmt.Errorf("cannot sort %s by %q (sortable: %s)", schema.Resource, key, strings.Join(sortable, ", "))
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := pms.NormalizeResource(args[0])

	params, err := parseParams(listParamFlags)
	if err != nil {
		return err
	}
	if s := strings.TrimSpace(listSearch); s != "" {
		params.Set("search", s)
	}
	params = pageParams(params, listPage, pageSize)

	q := resourceLayer(ctx).List(name, params, true)
	if listAll {
		err = q.FetchAll(ctx)
	} else {
		err = q.Fetch(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", name, err)
	}

	rows := q.Rows()
	if listPage > 0 && !q.HasNextPage() && len(rows) > pageSize {
		// The server ignored the page parameter and returned everything.
		rows, _, _ = paginateRows(rows, listPage, pageSize)
	}

	schema := pms.SchemaFor(name, rows)
	state, err := sortStateFor(schema, listSort, listDesc)
	if err != nil {
		return err
	}
	rows = table.Sort(rows, schema.Columns, state)

	if !listAll && q.HasNextPage() && !output.QuietFromContext(ctx) {
		fmt.Fprintf(stderrFromContext(ctx), "Showing %d of %d %s. Use --all or --page to see more.\n", len(rows), q.Count(), name)
	}

	switch GetOutputFormat() {
	case output.FormatText, output.FormatTable:
		return printData(ctx, output.FromProjection(table.Project(schema.Columns, rows)))
	default:
		return printData(ctx, rows)
	}
}
