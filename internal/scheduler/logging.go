package scheduler

import (
	"context"
	"time"

	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	obslogger "github.com/smallbiznis/bookingsync/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun tallies one execution of a job. Its logger carries the job name,
// run id and context fields.
type jobRun struct {
	log       *zap.Logger
	started   time.Time
	processed int
	failed    int
}

func (s *Scheduler) startRun(ctx context.Context, job string) *jobRun {
	run := &jobRun{
		log: obslogger.WithContext(ctx, s.log).With(
			zap.String("job", job),
			zap.String("run_id", s.genID.Generate().String()),
		),
		started: time.Now(),
	}
	run.log.Info("scheduler.job.start")
	return run
}

// record folds a SyncAll result into the run totals.
func (r *jobRun) record(horizonDays int, res bookingsyncdomain.Result) {
	r.processed += max(res.SubscriptionsProcessed, 0)
	r.failed += max(res.ErrorsCount, 0)
	r.log.Debug("scheduler.batch.result",
		zap.Int("horizon_days", horizonDays),
		zap.Int("bookings_created", res.BookingsCreated),
		zap.Int("bookings_cleaned", res.BookingsCleaned),
		zap.Int("incomplete_count", res.IncompleteCount),
	)
}

// finish logs the summary at warn when anything failed. A job error with no
// per-subscription failures still counts as one.
func (r *jobRun) finish(err error) {
	if err != nil && r.failed == 0 {
		r.failed = 1
	}
	level := zap.InfoLevel
	if r.failed > 0 {
		level = zap.WarnLevel
	}
	if ce := r.log.Check(level, "scheduler.job.finish"); ce != nil {
		ce.Write(
			zap.Int64("duration_ms", time.Since(r.started).Milliseconds()),
			zap.Int("processed_count", r.processed),
			zap.Int("error_count", r.failed),
		)
	}
}
