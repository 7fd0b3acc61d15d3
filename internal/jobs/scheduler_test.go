package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youthportal/api/internal/config"
	"youthportal/api/internal/metrics"
)

type fakePruner struct {
	removed int
	err     error
	calls   int
}

func (f *fakePruner) PruneIndexes(context.Context) (int, error) {
	f.calls++
	return f.removed, f.err
}

type fakeCleaner struct {
	prefix string
	cutoff time.Time
	n      int
}

func (f *fakeCleaner) CleanupTemp(_ context.Context, prefix string, cutoff time.Time) (int, error) {
	f.prefix = prefix
	f.cutoff = cutoff
	return f.n, nil
}

var testJobs = config.JobsConfig{
	SweepSchedule:   "0 */15 * * * *",
	CleanupSchedule: "0 30 3 * * *",
	TempPrefix:      "tmp/",
	TempMaxAge:      24 * time.Hour,
}

func TestSweepSessionIndexes(t *testing.T) {
	m := metrics.New()
	pruner := &fakePruner{removed: 4}
	s := NewScheduler(testJobs, pruner, nil, m, zerolog.Nop())

	n, err := s.SweepSessionIndexes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Cleanups().WithLabelValues("session_index")))

	pruner.err = errors.New("redis down")
	_, err = s.SweepSessionIndexes(context.Background())
	assert.Error(t, err)
}

func TestCleanupTempObjects_UsesMaxAge(t *testing.T) {
	now := time.Date(2026, 4, 10, 3, 30, 0, 0, time.UTC)
	cleaner := &fakeCleaner{n: 2}
	s := NewScheduler(testJobs, nil, cleaner, metrics.New(), zerolog.Nop())
	s.now = func() time.Time { return now }

	n, err := s.CleanupTempObjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "tmp/", cleaner.prefix)
	assert.Equal(t, now.Add(-24*time.Hour), cleaner.cutoff)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	cfg := testJobs
	cfg.SweepSchedule = "every now and then"
	s := NewScheduler(cfg, &fakePruner{}, nil, nil, zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestRun_StopsWithContext(t *testing.T) {
	s := NewScheduler(testJobs, &fakePruner{}, &fakeCleaner{}, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Len(t, s.cron.Entries(), 2)
}
