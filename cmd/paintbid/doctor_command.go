package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paintbid/paintbid/internal/doctor"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, credentials, devices, and the bid store",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := doctor.Run(loaded)
			fmt.Fprintln(cmd.OutOrStdout(), report.String())
			if !report.OK() {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}
