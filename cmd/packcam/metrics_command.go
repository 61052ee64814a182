package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"packcam/internal/metrics"
	"packcam/internal/store"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var monthFlag string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Per-operator totals for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := resolveMonth(monthFlag)
			if err != nil {
				return err
			}

			return ctx.withStore(func(st store.Store) error {
				sessions, err := st.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				totals := metrics.Monthly(sessions, year, month)

				out := cmd.OutOrStdout()
				if len(totals) == 0 {
					fmt.Fprintf(out, "No sessions in %04d-%02d\n", year, int(month))
					return nil
				}

				rows := make([][]string, 0, len(totals))
				for _, total := range totals {
					rows = append(rows, []string{
						total.Employee,
						strconv.Itoa(total.Count),
						formatDurationMS(total.DurationMS),
					})
				}
				fmt.Fprintf(out, "Totals for %04d-%02d\n", year, int(month))
				fmt.Fprintln(out, renderTable(
					[]column{{title: "Operator"}, {title: "Sessions", numeric: true}, {title: "Recorded", numeric: true}},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&monthFlag, "month", "m", "", "Target month as YYYY-MM (default: current month)")
	return cmd
}

func resolveMonth(value string) (int, time.Month, error) {
	if value == "" {
		now := time.Now()
		return now.Year(), now.Month(), nil
	}
	parsed, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, expected YYYY-MM", value)
	}
	return parsed.Year(), parsed.Month(), nil
}
