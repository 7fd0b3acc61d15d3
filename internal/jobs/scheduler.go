package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"youthportal/api/internal/config"
	"youthportal/api/internal/metrics"
)

const jobTimeout = 2 * time.Minute

// IndexPruner drops per-user session index entries whose session has expired.
type IndexPruner interface {
	PruneIndexes(ctx context.Context) (int, error)
}

type TempCleaner interface {
	CleanupTemp(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	cfg     config.JobsConfig
	pruner  IndexPruner
	cleaner TempCleaner
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewScheduler wires the maintenance jobs. A nil cleaner disables temp
// object cleanup, e.g. when object storage is not configured.
func NewScheduler(cfg config.JobsConfig, pruner IndexPruner, cleaner TempCleaner, m *metrics.Metrics, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		cfg:     cfg,
		pruner:  pruner,
		cleaner: cleaner,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.pruner != nil {
		if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.runSweep); err != nil {
			return fmt.Errorf("schedule session sweep: %w", err)
		}
	}
	if s.cleaner != nil {
		if _, err := s.cron.AddFunc(s.cfg.CleanupSchedule, s.runCleanup); err != nil {
			return fmt.Errorf("schedule temp cleanup: %w", err)
		}
	}
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.SweepSessionIndexes(ctx); err != nil {
		s.log.Error().Err(err).Msg("session index sweep failed")
	}
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.CleanupTempObjects(ctx); err != nil {
		s.log.Error().Err(err).Msg("temp object cleanup failed")
	}
}

func (s *Scheduler) SweepSessionIndexes(ctx context.Context) (int, error) {
	n, err := s.pruner.PruneIndexes(ctx)
	s.metrics.ObserveCleanup("session_index", n)
	if err != nil {
		return n, err
	}
	s.log.Debug().Int("removed", n).Msg("session indexes swept")
	return n, nil
}

func (s *Scheduler) CleanupTempObjects(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.TempMaxAge)
	n, err := s.cleaner.CleanupTemp(ctx, s.cfg.TempPrefix, cutoff)
	s.metrics.ObserveCleanup("temp_objects", n)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.log.Info().Int("removed", n).Str("prefix", s.cfg.TempPrefix).Msg("temp objects removed")
	}
	return n, nil
}
