package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vrs/time-wizard/config"
	"github.com/vrs/time-wizard/oncall"
)

func newSyncCmd(flags *globalFlags) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download the on-call schedule now, ignoring the freshness window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, func(c *config.Config) {
				if url != "" {
					c.OnCall.ScheduleURL = url
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			if a.syncer == nil {
				return oncall.ErrSyncNotConfigured
			}
			res, err := a.syncer.Sync(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "synced %d assignments at %s\n", res.Entries, res.SyncedAt.Format("2006-01-02 15:04"))
			if len(res.Users) > 0 {
				fmt.Fprintf(out, "users: %s\n", strings.Join(res.Users, ", "))
			}
			if res.UserShiftsChanged {
				fmt.Fprintln(out, "your upcoming shifts changed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "schedule CSV URL (overrides config)")
	return cmd
}
