package cmd

import (
	"github.com/spf13/cobra"

	"github.com/canne/csm-router/internal/domain"
)

func newAssignCmd(app *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "assign <account-id>",
		Short: "Route a single account awaiting assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ctrl, cleanup, err := app.controller(ctx, dryRun)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := ctrl.AssignAccount(ctx, domain.AccountID(args[0]))
			if err != nil {
				return err
			}

			printResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate and review without persisting anything")

	return cmd
}
