package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canne/csm-router/internal/adapters/render/report"
)

func newBalanceCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show book balance across agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ctrl, cleanup, err := app.controller(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			balance, err := ctrl.BalanceReport(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Render(balance))
			return nil
		},
	}
}
