/*
scheduler.go - Background on-call schedule sync

PURPOSE:
  Keeps the on-call schedule fresh without the user pressing "sync". A cron
  job checks whether the last successful sync is older than the sync
  interval (7 days by default) and, if so, downloads and imports the
  published CSV.

DESIGN:
  - robfig/cron drives the check (default spec "0 6 * * *")
  - Each run is bounded by a timeout context
  - Runs are skipped when no schedule URL or no current user is set
  - Start also performs one immediate check so a long-stopped server
    catches up on boot

USAGE:
  s, err := NewScheduleSyncScheduler(syncer, spec, timeout, log)
  s.Start()
  // ... later
  s.Stop()

SEE ALSO:
  - oncall/sync.go: Syncer.SyncIfDue
  - handlers.go: POST /api/oncall/sync (manual sync)
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vrs/time-wizard/logging"
	"github.com/vrs/time-wizard/oncall"
)

// DefaultSyncTimeout bounds one scheduled sync run.
const DefaultSyncTimeout = 2 * time.Minute

// ScheduleSyncScheduler runs Syncer.SyncIfDue on a cron schedule.
type ScheduleSyncScheduler struct {
	syncer  *oncall.Syncer
	timeout time.Duration
	log     logrus.FieldLogger

	cron    *cron.Cron
	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewScheduleSyncScheduler validates spec and registers the sync job.
func NewScheduleSyncScheduler(syncer *oncall.Syncer, spec string, timeout time.Duration, log logrus.FieldLogger) (*ScheduleSyncScheduler, error) {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	s := &ScheduleSyncScheduler{
		syncer:  syncer,
		timeout: timeout,
		log:     log.WithField("component", "sync-scheduler"),
		cron:    cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule sync job %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the cron loop and triggers one immediate check.
func (s *ScheduleSyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunOnce()
	}()
	s.log.Info("schedule sync scheduler started")
}

// Stop halts the cron loop and waits for running jobs.
func (s *ScheduleSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("schedule sync scheduler stopped")
}

// RunOnce performs one due-check and sync.
func (s *ScheduleSyncScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.syncer.SyncIfDue(ctx)
	switch {
	case errors.Is(err, oncall.ErrSyncNotConfigured), errors.Is(err, oncall.ErrNoCurrentUser):
		s.log.WithError(err).Debug("schedule sync skipped")
	case err != nil:
		s.log.WithError(err).Error("scheduled schedule sync failed")
	case res == nil:
		s.log.Debug("schedule is fresh")
	default:
		s.log.WithFields(logrus.Fields{
			"entries":             res.Entries,
			"user_shifts_changed": res.UserShiftsChanged,
		}).Info("schedule synced")
	}
}
