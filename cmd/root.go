package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "csmrouter",
		Short:         "CSM routing engine: balance account assignments across agent books",
		Long:          "csmrouter assigns accounts awaiting a CSM to the agent whose book best absorbs them, balancing count, neediness, revenue and health mix, throttled by recent assignment volume and gated by an external reviewer.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newAssignCmd(app),
		newBalanceCmd(app),
	)

	return rootCmd
}
