package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/timesheet"
)

func newWeekCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "week [date]",
		Short: "Show the week containing a date (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			d, err := a.dateArg(args)
			if err != nil {
				return err
			}
			dash, err := a.timesheet.Dashboard(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printDashboard(cmd.OutOrStdout(), dash)
		},
	}
}

func newSummaryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [week-ending]",
		Short: "Print the weekly summary and pay-cycle roll-up as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			d, err := a.dateArg(args)
			if err != nil {
				return err
			}
			dash, err := a.timesheet.Dashboard(cmd.Context(), d)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dash)
		},
	}
}

func printDashboard(out io.Writer, dash timesheet.Dashboard) error {
	s := dash.Summary
	pay := ""
	if dash.Week.IsPayWeek {
		pay = " (pay week)"
	}
	fmt.Fprintf(out, "Week %s to %s%s\n", dash.Week.WeekStart, dash.Week.WeekEnding, pay)
	for _, h := range dash.Week.Holidays {
		fmt.Fprintf(out, "  holiday: %s %s\n", h.Date, h.Name)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LINE\tST\tOT\tTOTAL\t")
	for _, line := range s.LinesUsed {
		t := s.LineTotals[line]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", line, t.ST, t.OT, t.Total)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t\n", s.TotalST, s.TotalOT, s.TotalHours)
	if err := tw.Flush(); err != nil {
		return err
	}

	days := make([]calendar.Date, 0, len(s.DailyTotals))
	for d := range s.DailyTotals {
		days = append(days, d)
	}
	slices.SortFunc(days, calendar.Date.Compare)
	if len(days) > 0 {
		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "DAY\tST\tOT\tTOTAL\t")
		for _, d := range days {
			t := s.DailyTotals[d]
			fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\t\n", d.Weekday().String()[:3], d, t.ST, t.OT, t.Total)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if pc := dash.PayCycle; pc != nil {
		fmt.Fprintf(out, "\nPay cycle %s + %s: ST %s  OT %s  TOTAL %s\n",
			pc.PreviousWeekEnding, pc.WeekEndingDate, pc.TotalST, pc.TotalOT, pc.TotalHours)
	}
	return nil
}
