package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packcam/internal/devices"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "devices",
		Short:       "List local capture devices",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := devices.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No capture devices found; local recording will use the platform default")
				return nil
			}
			rows := make([][]string, 0, len(found))
			for _, device := range found {
				rows = append(rows, []string{device.ID, device.Label})
			}
			fmt.Fprintln(out, renderTable([]column{{title: "Device"}, {title: "Label"}}, rows))
			return nil
		},
	}
}
