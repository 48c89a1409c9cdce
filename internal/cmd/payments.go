package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/pms-cli/internal/output"
	"github.com/salmonumbrella/pms-cli/internal/pms"
)

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Payment reports",
}

var paymentsSummaryCmd = &cobra.Command{
	Use:   "summary <reservation-id>",
	Short: "Summarise payments and refunds of a reservation",
	Long: `Add up the settled payments and refunds of a reservation and show
the balance against its total.

Only payments marked as deposits count towards the deposit line.

Examples:
  pms payments summary 431
  pms payments summary 431 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		summary, err := pms.FetchSummary(ctx, resourceLayer(ctx), args[0])
		if err != nil {
			return err
		}
		if structuredOutputRequested() {
			return printData(ctx, summary)
		}

		t := output.Table{Headers: []string{"CONCEPTO", "VALOR"}, Right: []bool{false, true}}
		for _, row := range summary.Rows() {
			t.Rows = append(t.Rows, []string{row[0], row[1]})
		}
		if err := printData(ctx, t); err != nil {
			return err
		}
		if !output.QuietFromContext(ctx) {
			fmt.Fprintf(stderrFromContext(ctx), "%d payments, %d refunds\n", summary.Payments, summary.Refunds)
		}
		return nil
	},
}

func init() {
	paymentsCmd.AddCommand(paymentsSummaryCmd)
	rootCmd.AddCommand(paymentsCmd)
}
