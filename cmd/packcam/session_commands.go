package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packcam/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				sessions, err := st.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions recorded yet")
					return nil
				}

				rows := make([][]string, 0, len(sessions))
				for i := len(sessions) - 1; i >= 0; i-- {
					s := sessions[i]
					rows = append(rows, []string{
						s.Order,
						s.Employee,
						s.Start.Local().Format("2006-01-02 15:04:05"),
						formatDurationMS(s.DurationMS),
						s.FilePath,
					})
					if limit > 0 && len(rows) >= limit {
						break
					}
				}
				fmt.Fprintln(out, renderTable(
					[]column{{title: "Order"}, {title: "Operator"}, {title: "Started"}, {title: "Duration", numeric: true}, {title: "File"}},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many sessions (0 = all)")
	return cmd
}
