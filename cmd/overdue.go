package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/invoice-api/config"
	"github.com/yourusername/invoice-api/ledger"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/services"
)

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List a company's overdue invoices",
	Long: `List the open invoices of a company whose due date has passed,
oldest due date first, with the balance still owed.`,
	Example: `  invoice-api overdue --company 1`,
	RunE:    runOverdue,
}

func init() {
	rootCmd.AddCommand(overdueCmd)

	overdueCmd.Flags().Uint("company", 0, "Company id")
	overdueCmd.MarkFlagRequired("company")
}

func runOverdue(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("overdue")

	companyID, _ := cmd.Flags().GetUint("company")
	if companyID == 0 {
		return fmt.Errorf("company must be a positive id")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	svc := services.New(db, services.SettingsFromConfig(cfg))

	if _, err := svc.Companies.Get(cmd.Context(), companyID); err != nil {
		return err
	}
	invoices, err := svc.Invoices.Overdue(cmd.Context(), companyID)
	if err != nil {
		return err
	}

	today := svc.Settings.Now()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tCLIENT\tDUE\tDAYS\tBALANCE")
	for i := range invoices {
		inv := &invoices[i]
		client := ""
		if inv.Client != nil {
			client = inv.Client.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s %s\n",
			inv.InvoiceNumber,
			client,
			inv.DueTime().Format("2006-01-02"),
			ledger.DaysOverdue(inv, today),
			inv.Currency,
			inv.BalanceDue.StringFixed(2),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	log.Info().
		Uint("company_id", companyID).
		Int("overdue", len(invoices)).
		Msg("Overdue invoices listed")
	return nil
}
