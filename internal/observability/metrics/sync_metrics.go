package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	"gorm.io/gorm"
)

const (
	SyncJobReasonDeadlineExceeded     = "deadline_exceeded"
	SyncJobReasonDBLockTimeout        = "db_lock_timeout"
	SyncJobReasonSerializationFailure = "serialization_failure"
	SyncJobReasonUniqueViolation      = "unique_violation"
	SyncJobReasonExternalSource       = "external_source"
	SyncJobReasonLockUnavailable      = "lock_unavailable"
	SyncJobReasonUnknown              = "unknown"
)

const (
	BookingOpCreated = "created"
	BookingOpRemoved = "removed"
	BookingOpSkipped = "skipped"
	BookingOpCleaned = "cleaned"
)

const LockResourceSubscription = "subscription"

// SyncMetrics captures synchronizer health signals.
type SyncMetrics struct {
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobTimeouts     *prometheus.CounterVec
	jobErrors       *prometheus.CounterVec
	runLoopLag      prometheus.Observer
	outcomes        *prometheus.CounterVec
	bookings        *prometheus.CounterVec
	externalRetries *prometheus.CounterVec
	lockWait        *prometheus.HistogramVec
	lastSuccess     *prometheus.GaugeVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

// NewSyncMetricsForRegistry builds an unshared instance on registerer.
func NewSyncMetricsForRegistry(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	return newSyncMetrics(registerer, cfg)
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "bookingsync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bookingsync_job_runs_total",
		Help:        "Sync job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job_name"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "bookingsync_job_duration_seconds",
		Help:        "Sync job latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		ConstLabels: constLabels,
	}, []string{"job_name"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bookingsync_job_timeouts_total",
		Help:        "Sync jobs that hit their deadline.",
		ConstLabels: constLabels,
	}, []string{"job_name"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bookingsync_job_errors_total",
		Help:        "Sync job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job_name", "reason"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "bookingsync_runloop_lag_seconds",
		Help:        "Run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bookingsync_subscription_outcomes_total",
		Help:        "Per-subscription sync outcomes by status and failure category.",
		ConstLabels: constLabels,
	}, []string{"status", "category"})
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bookingsync_bookings_total",
		Help:        "Bookings touched by the synchronizer by operation.",
		ConstLabels: constLabels,
	}, []string{"operation"})
	externalRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "bookingsync_external_retries_total",
		Help:        "Retried calls to the subscription source.",
		ConstLabels: constLabels,
	}, []string{"operation"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "bookingsync_lock_wait_seconds",
		Help:        "Time spent waiting for a sync lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"resource"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "bookingsync_job_last_success_timestamp_seconds",
		Help:        "Unix time of the last successful job run.",
		ConstLabels: constLabels,
	}, []string{"job_name"})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobTimeouts,
		jobErrors,
		runLoopLag,
		outcomes,
		bookings,
		externalRetries,
		lockWait,
		lastSuccess,
	)

	return &SyncMetrics{
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
		jobTimeouts:     jobTimeouts,
		jobErrors:       jobErrors,
		runLoopLag:      runLoopLag,
		outcomes:        outcomes,
		bookings:        bookings,
		externalRetries: externalRetries,
		lockWait:        lockWait,
		lastSuccess:     lastSuccess,
	}
}

func (m *SyncMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SyncMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SyncMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError increments the job error counter with classification.
func (m *SyncMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifySyncJobReason(err)).Inc()
}

func (m *SyncMetrics) MarkJobSuccess(job string, at time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *SyncMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

// ObserveOutcome counts a per-subscription result.
func (m *SyncMetrics) ObserveOutcome(o bookingsyncdomain.Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(o.Status), string(o.Category)).Inc()
	m.AddBookings(BookingOpCreated, o.BookingsCreated)
	m.AddBookings(BookingOpRemoved, o.BookingsRemoved)
	m.AddBookings(BookingOpSkipped, o.BookingsSkipped)
}

func (m *SyncMetrics) AddBookings(op string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.bookings.WithLabelValues(op).Add(float64(count))
}

func (m *SyncMetrics) IncExternalRetry(operation string) {
	if m == nil {
		return
	}
	m.externalRetries.WithLabelValues(operation).Inc()
}

func (m *SyncMetrics) ObserveLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// ClassifySyncJobReason maps sync errors to low-cardinality reasons.
func ClassifySyncJobReason(err error) string {
	if err == nil {
		return SyncJobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SyncJobReasonDeadlineExceeded
	}
	if errors.Is(err, bookingsyncdomain.ErrLockUnavailable) {
		return SyncJobReasonLockUnavailable
	}
	if hasPGCode(err, "55P03") {
		return SyncJobReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return SyncJobReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return SyncJobReasonUniqueViolation
	}
	if category, ok := bookingsyncdomain.CategoryOf(err); ok {
		return string(category)
	}
	return SyncJobReasonUnknown
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return hasPGCode(err, "55P03") || hasPGCode(err, "40001")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
