package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otrade-bot/server/internal/bot/model"
	"github.com/otrade-bot/server/internal/catalog"
)

func newProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products [query]",
		Short: "List or search catalog products",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := catalog.New(cfg.Catalog)

			var (
				products []model.Product
				err      error
			)
			if len(args) == 1 {
				products, err = client.Search(cmd.Context(), args[0], cfg.Conversation.CatalogPageSize)
			} else {
				products, err = client.List(cmd.Context(), cfg.Conversation.CatalogPageSize)
			}
			if err != nil {
				return err
			}
			if len(products) == 0 {
				fmt.Println("no products found")
				return nil
			}
			for _, p := range products {
				stock := "n/a"
				if p.StockQuantity != nil {
					stock = fmt.Sprintf("%d", *p.StockQuantity)
				}
				fmt.Printf("%-6d %-40s %8.2f  stock: %s\n", p.ID, p.Name, p.Price, stock)
			}
			return nil
		},
	}
}
