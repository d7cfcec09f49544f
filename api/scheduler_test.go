package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrs/time-wizard/api"
	"github.com/vrs/time-wizard/oncall"
	"github.com/vrs/time-wizard/store/memory"
)

func TestScheduleSyncScheduler_RejectsBadSpec(t *testing.T) {
	store := memory.New()
	syncer := oncall.NewSyncer(oncall.SyncerConfig{}, oncall.NewService(store, nil), store, nil, nil)

	_, err := api.NewScheduleSyncScheduler(syncer, "every tuesday", 0, nil)
	assert.Error(t, err)
}

func TestScheduleSyncScheduler_RunOnceSyncsWhenDue(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(rotation))
	}))
	defer srv.Close()

	// GIVEN: a configured URL and a current user
	ctx := context.Background()
	store := memory.New()
	svc := oncall.NewService(store, nil)
	require.NoError(t, svc.SetCurrentUser(ctx, "Alice"))
	syncer := oncall.NewSyncer(oncall.SyncerConfig{URL: srv.URL, Backoff: time.Millisecond}, svc, store, srv.Client(), nil)

	s, err := api.NewScheduleSyncScheduler(syncer, "0 6 * * *", time.Second, nil)
	require.NoError(t, err)

	// WHEN: two runs back to back
	s.RunOnce()
	s.RunOnce()

	// THEN: only the first downloads; the second sees a fresh schedule
	assert.Equal(t, int32(1), hits.Load())
	_, ok, err := store.LastSync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	schedule, err := store.Schedule(ctx)
	require.NoError(t, err)
	assert.Len(t, schedule, 2)
}

func TestScheduleSyncScheduler_StartStop(t *testing.T) {
	store := memory.New()
	syncer := oncall.NewSyncer(oncall.SyncerConfig{}, oncall.NewService(store, nil), store, nil, nil)
	s, err := api.NewScheduleSyncScheduler(syncer, "@every 1h", 0, nil)
	require.NoError(t, err)

	// Without a URL the immediate run is skipped; Stop must still return.
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
