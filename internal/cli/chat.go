package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/otrade-bot/server/internal/app"
	"github.com/otrade-bot/server/internal/bot/orchestrator"
)

func newChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session with the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = "cli_" + uuid.NewString()[:8]
			}
			fmt.Printf("Session %s. Type 'quit' to exit.\n\n", sessionID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					break
				}

				res := a.Bot.ProcessTurn(ctx, orchestrator.TurnRequest{
					SessionID: sessionID,
					Message:   line,
				})
				fmt.Printf("\nbot> %s\n", res.Reply)
				printTurnDetails(res)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id to resume (default: a fresh one)")
	return cmd
}

func printTurnDetails(res *orchestrator.TurnResult) {
	fmt.Printf("     [category: %s | ready: %v", res.Category, res.ReadyForInvoice)
	if res.Invoice != nil {
		fmt.Printf(" | invoice: %s", res.Invoice.Number)
	}
	fmt.Println("]")

	u := res.Update
	for _, f := range []struct{ name, value string }{
		{"product", u.ProductName},
		{"unit", u.QuantityUnit},
		{"country", u.DestinationCountry},
		{"city", u.City},
		{"address", u.StreetAddress},
		{"incoterm", u.ShippingIncoterm},
		{"payment", u.PaymentOption},
	} {
		if f.value != "" {
			fmt.Printf("     %s: %s\n", f.name, f.value)
		}
	}
	if u.Quantity > 0 {
		fmt.Printf("     quantity: %d\n", u.Quantity)
	}
	fmt.Println()
}
