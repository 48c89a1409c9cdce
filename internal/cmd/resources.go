package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/pms-cli/internal/output"
	"github.com/salmonumbrella/pms-cli/internal/pms"
	"github.com/salmonumbrella/pms-cli/internal/table"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources [resource]",
	Short: "Show the resources the CLI knows",
	Long: `List the PMS resources with a built-in schema, or describe the
columns and actions of one resource.

Resources without a schema can still be listed; their columns are
inferred from the data.

Examples:
  pms resources
  pms resources reservations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 0 {
			return printData(ctx, resourceCatalogue())
		}

		schema, ok := pms.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown resource %q; run 'pms resources' for the list", args[0])
		}
		detail := describeSchema(schema)
		if structuredOutputRequested() {
			return printData(ctx, detail)
		}

		out := stdoutFromContext(ctx)
		fmt.Fprintf(out, "%s (%s)\n", schema.Title, schema.Resource)
		if schema.DefaultSort.Active() {
			fmt.Fprintf(out, "Default sort: %s %s\n", schema.DefaultSort.Key, schema.DefaultSort.Direction)
		}
		fmt.Fprintln(out, "\nColumns:")
		if err := printData(ctx, detail.columnsTable()); err != nil {
			return err
		}
		if len(detail.Actions) > 0 {
			fmt.Fprintln(out, "\nActions:")
			return printData(ctx, detail.actionsTable())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}

type resourceSummary struct {
	Resource    string `json:"resource" yaml:"resource"`
	Title       string `json:"title" yaml:"title"`
	DefaultSort string `json:"default_sort,omitempty" yaml:"default_sort,omitempty"`
	Actions     string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

func resourceCatalogue() []resourceSummary {
	schemas := pms.Resources()
	out := make([]resourceSummary, 0, len(schemas))
	for _, s := range schemas {
		row := resourceSummary{
			Resource: s.Resource,
			Title:    s.Title,
			Actions:  strings.Join(pms.ActionNames(s.Resource), ", "),
		}
		if s.DefaultSort.Active() {
			row.DefaultSort = s.DefaultSort.Key + " " + s.DefaultSort.Direction.String()
		}
		out = append(out, row)
	}
	return out
}

type columnDetail struct {
	Key      string `json:"key" yaml:"key"`
	Header   string `json:"header" yaml:"header"`
	Sortable bool   `json:"sortable" yaml:"sortable"`
	Align    string `json:"align" yaml:"align"`
}

type actionDetail struct {
	Name        string `json:"name" yaml:"name"`
	Method      string `json:"method" yaml:"method"`
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type schemaDetail struct {
	Resource    string         `json:"resource" yaml:"resource"`
	Title       string         `json:"title" yaml:"title"`
	DefaultSort string         `json:"default_sort,omitempty" yaml:"default_sort,omitempty"`
	Columns     []columnDetail `json:"columns" yaml:"columns"`
	Actions     []actionDetail `json:"actions,omitempty" yaml:"actions,omitempty"`
}

func describeSchema(s pms.Schema) schemaDetail {
	d := schemaDetail{Resource: s.Resource, Title: s.Title}
	if s.DefaultSort.Active() {
		d.DefaultSort = s.DefaultSort.Key + " " + s.DefaultSort.Direction.String()
	}
	for _, c := range s.Columns {
		align := "left"
		if c.Align() == table.AlignRight {
			align = "right"
		}
		d.Columns = append(d.Columns, columnDetail{
			Key:      c.Key(),
			Header:   c.Header(),
			Sortable: table.IsSortable(c),
			Align:    align,
		})
	}
	for _, a := range s.Actions {
		d.Actions = append(d.Actions, actionDetail{
			Name:        a.Name,
			Method:      a.Method,
			Path:        "/api/" + s.Resource + "/" + a.Path() + "/",
			Description: a.Description,
		})
	}
	return d
}

func (d schemaDetail) columnsTable() output.Table {
	t := output.Table{Headers: []string{"KEY", "HEADER", "SORTABLE", "ALIGN"}}
	for _, c := range d.Columns {
		sortable := "no"
		if c.Sortable {
			sortable = "yes"
		}
		t.Rows = append(t.Rows, []string{c.Key, c.Header, sortable, c.Align})
	}
	return t
}

func (d schemaDetail) actionsTable() output.Table {
	t := output.Table{Headers: []string{"NAME", "METHOD", "PATH", "DESCRIPTION"}}
	for _, a := range d.Actions {
		t.Rows = append(t.Rows, []string{a.Name, a.Method, a.Path, a.Description})
	}
	return t
}
