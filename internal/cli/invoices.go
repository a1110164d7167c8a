package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otrade-bot/server/internal/invoice"
)

func newInvoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoices <session-id>",
		Short: "List invoices recorded for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := invoice.OpenStore(cfg.Invoice.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			invoices, err := store.BySession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(invoices) == 0 {
				fmt.Println("no invoices for this session")
				return nil
			}
			for _, inv := range invoices {
				fmt.Printf("%s  %s  %.2f %s  %s\n",
					inv.Number, inv.CreatedAt.Format("2006-01-02 15:04"),
					inv.Total, inv.Currency, inv.Reference)
			}
			return nil
		},
	}
}
