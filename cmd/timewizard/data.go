package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vrs/time-wizard/timesheet"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a JSON backup of entries, line codes and settings",
		Long: `export writes the backup document to file, or to stdout when file is
omitted or "-". The default name used by the web client is
timesheet_backup_<date>.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			doc, err := a.timesheet.Export(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				return err
			}
			a.log.WithField("entries", len(doc.TimeEntries)).Info("export written")
			return nil
		},
	}
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all timesheet data with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errAborted
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := timesheet.DecodeExport(data)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, flags, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.timesheet.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries, %d line codes, %d settings\n",
				res.Entries, res.Lines, res.Settings)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm replacing all existing data")
	return cmd
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
