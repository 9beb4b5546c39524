package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() (*commandContext, *cobra.Command) {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "paintbid",
		Short:         "Voice-guided painting estimates and bid management",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newCancelCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newBidCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return ctx, rootCmd
}
