package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	"github.com/smallbiznis/bookingsync/internal/clock"
	"github.com/smallbiznis/bookingsync/internal/config"
	obscontext "github.com/smallbiznis/bookingsync/internal/observability/context"
	obsmetrics "github.com/smallbiznis/bookingsync/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobSubscriptionSync = "subscription_sync"
	JobStartupSync      = "startup_sync"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Sync       bookingsyncdomain.Service
	SyncConfig *config.SyncConfigHolder
	GenID      *snowflake.Node
	Clock      clock.Clock
	Metrics    *obsmetrics.SyncMetrics `optional:"true"`
	Config     Config                  `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	sync    bookingsyncdomain.Service
	tuning  *config.SyncConfigHolder
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.SyncMetrics
	cfg     Config
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Sync == nil || p.SyncConfig == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Sync()
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		sync:    p.Sync,
		tuning:  p.SyncConfig,
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: metrics,
		cfg:     p.Config,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	ctx = obscontext.WithJob(ctx, name)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")

	run := s.startRun(ctx, name)
	s.metrics.IncJobRun(name)
	err := fn(ctx, run)
	s.metrics.ObserveJobDuration(name, time.Since(run.started))
	run.finish(err)
	if err == nil {
		s.metrics.MarkJobSuccess(name, s.clock.Now())
		return nil
	}

	s.metrics.IncJobError(name, err)
	// Deadline is a soft timeout; the next tick resumes.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		run.log.Warn("scheduler.job.timeout", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs the periodic full sync with the regular horizon.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if !s.isJobEnabled(JobSubscriptionSync) {
		return nil
	}
	tuning := s.tuning.Get()
	return s.runJob(parent, JobSubscriptionSync, tuning.JobTimeout, s.syncJob(tuning.HorizonDays))
}

// RunStartup runs the one-off sync with the extended startup horizon. It is
// a no-op when startup sync is disabled.
func (s *Scheduler) RunStartup(parent context.Context) error {
	tuning := s.tuning.Get()
	if !tuning.StartupSync || !s.isJobEnabled(JobStartupSync) {
		return nil
	}
	return s.runJob(parent, JobStartupSync, tuning.JobTimeout, s.syncJob(tuning.StartupHorizonDays))
}

func (s *Scheduler) syncJob(horizonDays int) func(context.Context, *jobRun) error {
	return func(ctx context.Context, run *jobRun) error {
		res, err := s.sync.SyncAll(ctx, horizonDays)
		run.record(horizonDays, res)
		return err
	}
}

// RunForever runs the startup sync, then the periodic sync every
// RunInterval until ctx is done. Interval changes apply on the next tick.
func (s *Scheduler) RunForever(ctx context.Context) {
	if err := s.RunStartup(ctx); err != nil {
		s.log.Warn("scheduler.startup.failed", zap.Error(err))
	}

	interval := s.tuning.Get().RunInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler.run.failed", zap.Error(err))
		}

		if next := s.tuning.Get().RunInterval; next != interval && next > 0 {
			s.log.Info("scheduler.interval.changed",
				zap.Duration("from", interval),
				zap.Duration("to", next),
			)
			interval = next
			ticker.Reset(interval)
		}
		nextRun = s.clock.Now().Add(interval)
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty means every job runs.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
