package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vrs/time-wizard/calendar"
	"github.com/vrs/time-wizard/config"
	"github.com/vrs/time-wizard/logging"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/store/sqlite"
	"github.com/vrs/time-wizard/timesheet"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

// app is the wiring every subcommand works against. It is built lazily so
// --help never opens the database.
type app struct {
	cfg       config.Config
	log       *logrus.Logger
	loc       *time.Location
	store     *sqlite.Store
	timesheet *timesheet.Service
	oncall    *oncall.Service
	syncer    *oncall.Syncer
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Maintenance-of-way timesheet and on-call tracker",
		Long: `timewizard records ST/OT hours per line code and day, rolls them up by
Sunday-Saturday week and bi-weekly pay cycle, and tracks the on-call
weekend rotation.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultConfigFile, "TOML config file")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (\":memory:\" for a throwaway database)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(&flags),
		newWeekCmd(&flags),
		newSummaryCmd(&flags),
		newExportCmd(&flags),
		newImportCmd(&flags),
		newReportCmd(&flags),
		newSyncCmd(&flags),
		newOnCallCmd(&flags),
	)
	return root
}

// loadConfig applies flag overrides on top of config.Load and validates.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.dbPath != "" {
		cfg.DatabasePath = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// openApp loads configuration, opens the store and builds the services.
// The caller must call close.
func openApp(cmd *cobra.Command, flags *globalFlags, mutate func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.NewWithOutput(cfg.Log, config.AppName, cmd.ErrOrStderr())
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	holidays, err := calendar.HolidayCalendarByName(cfg.Holidays)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.DatabasePath, sqlite.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}

	ocs := oncall.NewService(store, log)
	a := &app{
		cfg:       cfg,
		log:       log,
		loc:       loc,
		store:     store,
		timesheet: timesheet.NewService(store, holidays, log),
		oncall:    ocs,
	}
	if cfg.OnCall.ScheduleURL != "" {
		a.syncer = oncall.NewSyncer(oncall.SyncerConfig{
			URL:      cfg.OnCall.ScheduleURL,
			Location: loc,
		}, ocs, store, nil, log)
	}
	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("close database")
	}
}

func (a *app) today() calendar.Date { return calendar.Today(a.loc) }

// dateArg parses args[0] as YYYY-MM-DD, defaulting to today.
func (a *app) dateArg(args []string) (calendar.Date, error) {
	if len(args) == 0 || args[0] == "" {
		return a.today(), nil
	}
	return calendar.ParseDate(args[0])
}

var errAborted = errors.New("aborted: pass --yes to confirm")
