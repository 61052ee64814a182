package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packcam/internal/store"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the operator roster",
	}

	rosterCmd.AddCommand(newRosterListCommand(ctx))
	rosterCmd.AddCommand(newRosterAddCommand(ctx))
	rosterCmd.AddCommand(newRosterRenameCommand(ctx))
	rosterCmd.AddCommand(newRosterRemoveCommand(ctx))

	return rosterCmd
}

func newRosterListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				names, err := st.Users(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(names) == 0 {
					fmt.Fprintln(out, "No operators recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name})
				}
				fmt.Fprintln(out, renderTable([]column{{title: "Operator"}}, rows))
				return nil
			})
		},
	}
}

func newRosterAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add an operator to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				if err := st.AddUser(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", args[0])
				return nil
			})
		},
	}
}

func newRosterRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an operator, updating historical sessions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				if err := st.RenameUser(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newRosterRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an operator; past sessions keep the name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st store.Store) error {
				if err := st.DeleteUser(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}
