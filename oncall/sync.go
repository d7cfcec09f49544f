/*
sync.go - Pull the published rotation sheet into the local store

PURPOSE:
  The rotation is maintained in a shared spreadsheet published as CSV.
  Syncer downloads it, parses it and performs a clear-then-import through
  the Service, then records the sync time.

RETRIES:
  Transport failures and 5xx responses are retried with doubling backoff.
  4xx responses fail immediately.

STALENESS:
  SyncIfDue only syncs when the last successful sync is older than the
  interval (7 days by default) or has never happened.
*/
package oncall

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vrs/time-wizard/calendar"
)

const (
	// DefaultSyncInterval is how stale the local schedule may get.
	DefaultSyncInterval = 7 * 24 * time.Hour

	defaultFetchTimeout = 30 * time.Second
	defaultMaxAttempts  = 3
	defaultBackoff      = 2 * time.Second
	maxScheduleBytes    = 4 << 20
)

// SyncerConfig configures a Syncer. Zero values take the defaults.
type SyncerConfig struct {
	URL         string
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Location    *time.Location
}

// Syncer fetches the schedule CSV and imports it.
type Syncer struct {
	cfg     SyncerConfig
	service *Service
	store   Store
	client  *http.Client
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewSyncer creates a syncer. client and log may be nil.
func NewSyncer(cfg SyncerConfig, service *Service, store Store, client *http.Client, log logrus.FieldLogger) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = service.log
	}
	return &Syncer{
		cfg:     cfg,
		service: service,
		store:   store,
		client:  client,
		log:     log.WithField("component", "oncall-sync"),
		now:     time.Now,
	}
}

// SyncResult reports one completed sync.
type SyncResult struct {
	ImportResult
	SyncedAt time.Time `json:"synced_at"`
}

// Sync downloads and imports the schedule now. A current user must be
// configured; without one nothing is fetched.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	if s.cfg.URL == "" {
		return SyncResult{}, ErrSyncNotConfigured
	}
	current, err := s.service.CurrentUser(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if current == nil {
		return SyncResult{}, ErrNoCurrentUser
	}

	body, err := s.fetch(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	now := s.now()
	res, err := s.service.ImportCSV(ctx, body, calendar.Today(s.cfg.Location))
	if err != nil {
		return SyncResult{}, fmt.Errorf("import schedule: %w", err)
	}
	if err := s.store.SetLastSync(ctx, now); err != nil {
		return SyncResult{}, fmt.Errorf("record sync time: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"entries":        res.Entries,
		"shifts_changed": res.UserShiftsChanged,
	}).Info("schedule synced")
	return SyncResult{ImportResult: res, SyncedAt: now}, nil
}

// SyncIfDue runs Sync when the stored sync time is older than the interval.
// It returns (nil, nil) when the schedule is still fresh.
func (s *Syncer) SyncIfDue(ctx context.Context) (*SyncResult, error) {
	last, ok, err := s.store.LastSync(ctx)
	if err != nil {
		return nil, err
	}
	if !SyncNeeded(last, ok, s.now(), s.cfg.Interval) {
		s.log.WithField("last_sync", last).Debug("schedule fresh, skipping sync")
		return nil, nil
	}
	res, err := s.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SyncNeeded reports whether a sync is due. ok is false when no sync has
// ever completed.
func SyncNeeded(last time.Time, ok bool, now time.Time, interval time.Duration) bool {
	if !ok {
		return true
	}
	return now.Sub(last) >= interval
}

// fetch downloads the CSV body with retries.
func (s *Syncer) fetch(ctx context.Context) (io.Reader, error) {
	backoff := s.cfg.Backoff
	var lastErr *FetchError
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		body, ferr := s.fetchOnce(ctx)
		if ferr == nil {
			return body, nil
		}
		ferr.Attempts = attempt
		lastErr = ferr

		retryable := ferr.StatusCode == 0 || ferr.StatusCode >= 500
		if !retryable || attempt == s.cfg.MaxAttempts || errors.Is(ferr.Err, context.Canceled) {
			break
		}
		s.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"status":  ferr.StatusCode,
			"backoff": backoff,
		}).Warn("schedule fetch failed, retrying")

		select {
		case <-ctx.Done():
			lastErr.Err = ctx.Err()
			return nil, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (s *Syncer) fetchOnce(ctx context.Context) (io.Reader, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: s.cfg.URL, Err: err}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: s.cfg.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			URL:        s.cfg.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScheduleBytes))
	if err != nil {
		return nil, &FetchError{URL: s.cfg.URL, Err: err}
	}
	return bytes.NewReader(data), nil
}
