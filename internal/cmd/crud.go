package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/pms-cli/internal/pms"
	"github.com/salmonumbrella/pms-cli/internal/resource"
)

var getCmd = &cobra.Command{
	Use:   "get <resource> <id>",
	Short: "Show one entity",
	Long: `Fetch a single entity by id.

Examples:
  pms get rooms 12
  pms get reservations 431 -o json --query '.guest'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := pms.NormalizeResource(args[0])

		q := resourceLayer(ctx).Get(name, args[1], true)
		if err := q.Fetch(ctx); err != nil {
			return fmt.Errorf("failed to get %s %s: %w", name, args[1], err)
		}
		return printData(ctx, q.Data())
	},
}

var createCmd = &cobra.Command{
	Use:   "create <resource>",
	Short: "Create an entity",
	Long: `Create an entity from a JSON body.

--data accepts inline JSON, @path to read a file, or - to read stdin.

Examples:
  pms create guests --data '{"first_name":"Ana","last_name":"Ruiz"}'
  pms create reservations --data @reservation.json
  cat room.json | pms create rooms --data -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := pms.NormalizeResource(args[0])

		body, err := readDataFlag(ctx, createData)
		if err != nil {
			return err
		}
		if body == nil {
			return fmt.Errorf("--data is required")
		}

		data, err := resourceLayer(ctx).Create(name).Mutate(ctx, body)
		if err != nil {
			return silentError{err}
		}
		return printEntity(ctx, data, map[string]interface{}{"status": "created", "resource": name})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <resource> <id>",
	Short: "Partially update an entity",
	Long: `Send a partial update (PATCH) with the fields in --data.

Examples:
  pms update rooms 12 --data '{"status":"clean"}'
  pms update reservations 431 --data @changes.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := pms.NormalizeResource(args[0])
		id := strings.TrimSpace(args[1])

		body, err := readDataFlag(ctx, updateData)
		if err != nil {
			return err
		}
		if body == nil {
			return fmt.Errorf("--data is required")
		}

		data, err := resourceLayer(ctx).Update(name).Mutate(ctx, resource.UpdateInput{ID: id, Body: body})
		if err != nil {
			return silentError{err}
		}
		return printEntity(ctx, data, map[string]interface{}{"status": "updated", "resource": name, "id": id})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <resource> <id>",
	Short: "Delete an entity",
	Long: `Delete an entity by id.

This action is destructive and cannot be undone. Use the --yes flag
to skip the confirmation prompt.

Examples:
  pms delete rooms 42
  pms delete guests 7 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := pms.NormalizeResource(args[0])
		id := strings.TrimSpace(args[1])

		if !confirmDestructive(ctx, fmt.Sprintf("Are you sure you want to delete %s %s?", name, id)) {
			return nil
		}

		data, err := resourceLayer(ctx).Delete(name).Mutate(ctx, id)
		if err != nil {
			return silentError{err}
		}
		if !structuredOutputRequested() && len(strings.TrimSpace(string(data))) == 0 {
			return nil
		}
		return printEntity(ctx, data, map[string]interface{}{"status": "deleted", "resource": name, "id": id})
	},
}

var actionCmd = &cobra.Command{
	Use:   "action <resource> [id] <action>",
	Short: "Invoke a resource action",
	Long: `Invoke a named sub-action such as check-in or mark-all-read.

Item actions take an id; collection actions do not. Run
'pms resources <resource>' to see the registered actions. Actions the
CLI does not know are sent as given.

Examples:
  pms action reservations 431 check-in
  pms action housekeeping/tasks 88 complete --data '{"notes":"ok"}'
  pms action notifications mark-all-read
  pms action rooms 12 block --method PUT`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := pms.NormalizeResource(args[0])
		var id, actionName string
		if len(args) == 3 {
			id, actionName = strings.TrimSpace(args[1]), args[2]
		} else {
			actionName = args[1]
		}

		action, err := pms.ResolveAction(name, id, actionName, actionMethod)
		if err != nil {
			return err
		}
		body, err := readDataFlag(ctx, actionData)
		if err != nil {
			return err
		}

		data, err := resourceLayer(ctx).Dispatch(name).Mutate(ctx, resource.ActionInput{
			ID:     id,
			Action: action.Name,
			Method: action.Method,
			Body:   body,
		})
		if err != nil {
			return silentError{err}
		}
		return printEntity(ctx, data, nil)
	},
}

var (
	createData   string
	updateData   string
	actionData   string
	actionMethod string
)

func init() {
	createCmd.Flags().StringVar(&createData, "data", "", "JSON body, @file, or - for stdin")
	updateCmd.Flags().StringVar(&updateData, "data", "", "JSON body, @file, or - for stdin")
	actionCmd.Flags().StringVar(&actionData, "data", "", "JSON body, @file, or - for stdin")
	actionCmd.Flags().StringVar(&actionMethod, "method", "", "HTTP method (default from the action, POST otherwise)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(actionCmd)
}

// silentError marks an error that the notifier already showed. The exit
// status still reflects it; text output does not repeat it.
type silentError struct {
	err error
}

func (e silentError) Error() string { return e.err.Error() }
func (e silentError) Unwrap() error { return e.err }
