package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/report"
)

func newReportCmd(flags *globalFlags) *cobra.Command {
	var from, to, quick, format, outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a work-hours report for a date range",
		Example: `  timewizard report --range last30 --format csv
  timewizard report --from 2025-11-01 --to 2025-11-30 --format xlsx --out nov.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			switch format {
			case "csv", "xlsx", "json":
			default:
				return fmt.Errorf("unknown format %q (use csv, xlsx or json)", format)
			}

			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := reportPeriod(a.today(), quick, from, to)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			entries, err := a.timesheet.EntriesInRange(ctx, p)
			if err != nil {
				return err
			}
			notes, err := a.timesheet.NotesInRange(ctx, p)
			if err != nil {
				return err
			}
			rep, err := report.Build(entries, notes, p)
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath == "" && format != "json" {
				outPath = report.FileName(rep, format)
			}
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "csv":
				err = report.WriteCSV(out, rep)
			case "xlsx":
				err = report.WriteXLSX(out, rep)
			default:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(rep)
			}
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"period": p.String(),
				"rows":   len(rep.Rows),
				"out":    outPath,
			}).Info("report written")
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&quick, "range", "", "preset: last30, last3months, last6months, lastyear, ytd, alltime")
	cmd.Flags().StringVar(&format, "format", "csv", "csv, xlsx or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (\"-\" for stdout; default work_hours_report_<from>_to_<to>.<ext>)")
	cmd.MarkFlagsMutuallyExclusive("range", "from")
	cmd.MarkFlagsMutuallyExclusive("range", "to")
	return cmd
}

// reportPeriod resolves --range or --from/--to. With neither, the current
// week is reported.
func reportPeriod(today calendar.Date, quick, from, to string) (calendar.Period, error) {
	if quick != "" {
		return report.QuickRange(quick, today)
	}
	if from == "" && to == "" {
		return calendar.WeekOf(today), nil
	}
	if from == "" || to == "" {
		return calendar.Period{}, fmt.Errorf("--from and --to must be given together")
	}
	start, err := calendar.ParseDate(from)
	if err != nil {
		return calendar.Period{}, err
	}
	end, err := calendar.ParseDate(to)
	if err != nil {
		return calendar.Period{}, err
	}
	return calendar.NewPeriod(start, end)
}
