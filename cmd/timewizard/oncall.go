package main

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newOnCallCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oncall",
		Short: "Manage the on-call rotation",
	}
	cmd.AddCommand(
		newOnCallSetUserCmd(flags),
		newOnCallImportCmd(flags),
		newOnCallUpcomingCmd(flags),
	)
	return cmd
}

func newOnCallSetUserCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set-user <name>",
		Short: "Mark a user as the current user, creating it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.oncall.SetCurrentUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current user: %s\n", args[0])
			return nil
		},
	}
}

func newOnCallImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv>",
		Short: "Replace the stored schedule with a CSV sheet (\"-\" for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.oncall.ImportCSV(cmd.Context(), bytes.NewReader(data), a.today())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d assignments for %d users\n", res.Entries, len(res.Users))
			return nil
		},
	}
}

func newOnCallUpcomingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "List the current user's shifts from today on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			shifts, err := a.oncall.MyUpcomingShifts(cmd.Context(), a.today())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(shifts) == 0 {
				fmt.Fprintln(out, "no upcoming shifts")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tEND\tUSER\tSWAPPED")
			for _, s := range shifts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.StartDate, s.EndDate, s.UserName, s.IsSwapped)
			}
			return tw.Flush()
		},
	}
}
