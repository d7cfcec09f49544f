/*
main.go - Application entry point

PURPOSE:
  Command-line front end for the timesheet core. One binary runs the HTTP
  API (serve) and the offline tools (week, summary, export, import,
  report, sync, oncall).

CONFIGURATION:
  --config   TOML file (default timewizard.toml, optional)
  --db       SQLite database path, overrides config and TIMEWIZARD_DB
  --log-level
  See config/config.go for the environment variables.

EXAMPLES:
  # Run the API on port 3000
  timewizard serve --port 3000

  # This week's hours
  timewizard week

  # November report as a spreadsheet
  timewizard report --from 2025-11-01 --to 2025-11-30 --format xlsx

SEE ALSO:
  - root.go: Global flags and dependency wiring
  - serve.go: HTTP server with graceful shutdown
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
