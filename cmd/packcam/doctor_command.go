package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packcam/internal/deps"
	"packcam/internal/store"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and the persistence backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("External tools", colorize) {
				fmt.Fprintln(out, line)
			}

			failed := false
			for _, status := range deps.Check(cfg) {
				kind := statusOK
				message := status.Command
				if !status.Available {
					message = status.Detail
					if status.Optional {
						kind = statusWarn
					} else {
						kind = statusError
						failed = true
					}
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			for _, line := range renderSectionHeader("Persistence", colorize) {
				fmt.Fprintln(out, line)
			}
			storeErr := ctx.withStore(func(st store.Store) error {
				fmt.Fprintln(out, renderStatusLine("Store backend", statusOK, st.Backend(), colorize))
				return nil
			})
			if storeErr != nil {
				fmt.Fprintln(out, renderStatusLine("Store backend", statusError, storeErr.Error(), colorize))
				failed = true
			}

			if failed {
				return fmt.Errorf("doctor found problems")
			}
			return nil
		},
	}
}
