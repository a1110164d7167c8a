// Package cli provides a local console for exercising the assistant without
// the HTTP surface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/otrade-bot/server/internal/app"
	logx "github.com/otrade-bot/server/pkg/logger"
)

var cfg app.Config

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otrade-cli",
		Short: "OTRADE Bot wholesale trading assistant console",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = app.Load()
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{Environment: cfg.Env()})
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newInvoicesCmd())
	cmd.AddCommand(newProductsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
