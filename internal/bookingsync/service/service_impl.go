package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/bookingsync/internal/account/domain"
	bookingdomain "github.com/smallbiznis/bookingsync/internal/booking/domain"
	"github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	"github.com/smallbiznis/bookingsync/internal/catalog"
	"github.com/smallbiznis/bookingsync/internal/clock"
	"github.com/smallbiznis/bookingsync/internal/config"
	obscontext "github.com/smallbiznis/bookingsync/internal/observability/context"
	"github.com/smallbiznis/bookingsync/internal/observability/logger"
	"github.com/smallbiznis/bookingsync/internal/observability/metrics"
	"github.com/smallbiznis/bookingsync/internal/observability/tracing"
	"github.com/smallbiznis/bookingsync/internal/occurrence"
	scheduledomain "github.com/smallbiznis/bookingsync/internal/schedule/domain"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"github.com/smallbiznis/bookingsync/internal/synclock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const notesPrefix = "Auto-generated from subscription %s."

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Source     subscriptiondomain.Source
	Schedules  scheduledomain.Service
	Accounts   accountdomain.Service
	Bookings   bookingdomain.Repository
	Locker     synclock.Locker
	Clock      clock.Clock
	GenID      *snowflake.Node
	Config     config.Config
	SyncConfig *config.SyncConfigHolder

	Metrics       *metrics.SyncMetrics `optional:"true"`
	DomainMetrics *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	source    subscriptiondomain.Source
	schedules scheduledomain.Service
	accounts  accountdomain.Service
	bookings  bookingdomain.Repository
	locker    synclock.Locker
	clock     clock.Clock
	genID     *snowflake.Node
	loc       *time.Location
	cfg       *config.SyncConfigHolder
	metrics   *metrics.SyncMetrics
	domainMet *metrics.Metrics
	tracer    trace.Tracer

	retryDelay time.Duration
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("bookingsync.service"),
		source:     p.Source,
		schedules:  p.Schedules,
		accounts:   p.Accounts,
		bookings:   p.Bookings,
		locker:     p.Locker,
		clock:      p.Clock,
		genID:      p.GenID,
		loc:        p.Config.Location(),
		cfg:        p.SyncConfig,
		metrics:    p.Metrics,
		domainMet:  p.DomainMetrics,
		tracer:     otel.Tracer("bookingsync/sync"),
		retryDelay: 500 * time.Millisecond,
	}
}

func (s *Service) SyncSubscription(ctx context.Context, subscriptionID string, horizonDays int) (domain.Outcome, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return domain.Outcome{}, domain.ErrInvalidSubscriptionID
	}
	if horizonDays < 0 {
		return domain.Outcome{SubscriptionID: id}, domain.ErrInvalidHorizon
	}

	ctx = obscontext.WithSubscriptionID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "bookingsync.sync_subscription", trace.WithAttributes(
		attribute.String("subscription_id", id),
		attribute.Int("horizon_days", horizonDays),
	))
	defer span.End()

	release, err := s.lock(ctx, id)
	if err != nil {
		out := domain.Outcome{SubscriptionID: id, Status: domain.StatusFailed, Message: err.Error()}
		s.finish(ctx, span, out, err)
		return out, err
	}
	defer release()

	sub, err := retry(ctx, s, "get", func(ctx context.Context) (subscriptiondomain.Subscription, error) {
		return s.source.Get(ctx, id)
	})
	var out domain.Outcome
	switch {
	case errors.Is(err, subscriptiondomain.ErrNotFound):
		out, err = s.purge(ctx, id)
	case err != nil:
		out, err = failed(domain.Outcome{SubscriptionID: id}, domain.ExternalSource(id, "fetch subscription", err))
	case !sub.HasStatus(s.cfg.Get().ActiveStatuses...):
		out, err = s.purge(ctx, id)
	default:
		out, err = s.sync(ctx, sub, horizonDays)
	}
	s.finish(ctx, span, out, err)
	return out, err
}

func (s *Service) SyncLoaded(ctx context.Context, sub subscriptiondomain.Subscription, horizonDays int) domain.Outcome {
	id := strings.TrimSpace(sub.ID)
	if id == "" {
		out, _ := failed(domain.Outcome{}, domain.Validation("", "subscription has no id", domain.ErrInvalidSubscriptionID))
		return out
	}
	sub.ID = id

	ctx = obscontext.WithSubscriptionID(ctx, id)
	ctx, span := s.tracer.Start(ctx, "bookingsync.sync_loaded", trace.WithAttributes(
		attribute.String("subscription_id", id),
		attribute.Int("horizon_days", horizonDays),
	))
	defer span.End()

	release, err := s.lock(ctx, id)
	if err != nil {
		out := domain.Outcome{SubscriptionID: id, Status: domain.StatusFailed, Message: err.Error()}
		s.finish(ctx, span, out, err)
		return out
	}
	defer release()

	var out domain.Outcome
	if sub.HasStatus(s.cfg.Get().ActiveStatuses...) {
		out, err = s.sync(ctx, sub, horizonDays)
	} else {
		out, err = s.purge(ctx, id)
	}
	s.finish(ctx, span, out, err)
	return out
}

// SyncAll lists active subscriptions, rebuilds each on a bounded pool, then
// removes future bookings of subscriptions that were not listed. Nothing is
// cleaned up when the list cannot be fetched.
func (s *Service) SyncAll(ctx context.Context, horizonDays int) (domain.Result, error) {
	if horizonDays < 0 {
		return domain.Result{}, domain.ErrInvalidHorizon
	}
	ctx, span := s.tracer.Start(ctx, "bookingsync.sync_all", trace.WithAttributes(
		attribute.Int("horizon_days", horizonDays),
	))
	defer span.End()
	log := logger.WithContext(ctx, s.log)

	subs, err := retry(ctx, s, "list", s.source.ListActive)
	if err != nil {
		syncErr := domain.ExternalSource("", "list active subscriptions", err)
		span.RecordError(tracing.SafeError(syncErr))
		span.SetStatus(codes.Error, string(domain.CategoryExternalSource))
		log.Error("bookingsync.batch.fetch_failed", zap.Error(err))
		return domain.Result{}, syncErr
	}

	cfg := s.cfg.Get()
	active := activeSet(subs, cfg.ActiveStatuses)
	log.Info("bookingsync.batch.started",
		zap.Int("listed", len(subs)),
		zap.Int("active", len(active)),
		zap.Int("workers", cfg.Workers),
	)

	outcomes := make([]domain.Outcome, len(active))
	var g errgroup.Group
	g.SetLimit(max(cfg.Workers, 1))
	for i, sub := range active {
		g.Go(func() error {
			outcomes[i] = s.SyncLoaded(ctx, sub, horizonDays)
			return nil
		})
	}
	_ = g.Wait()

	result := domain.Result{
		SubscriptionsProcessed: len(active),
		Outcomes:               outcomes,
	}
	for _, o := range outcomes {
		result.BookingsCreated += o.BookingsCreated
		switch o.Status {
		case domain.StatusFailed:
			result.ErrorsCount++
		case domain.StatusIncomplete:
			result.IncompleteCount++
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	// An empty active set never triggers cleanup.
	if len(active) == 0 {
		log.Warn("bookingsync.batch.cleanup_skipped", zap.String("reason", "empty_active_set"))
	} else {
		ids := make([]string, 0, len(active))
		for _, sub := range active {
			ids = append(ids, sub.ID)
		}
		cleaned, err := s.bookings.DeleteFutureNotIn(ctx, s.db, ids, s.startOfToday())
		if err != nil {
			log.Error("bookingsync.batch.cleanup_failed", zap.Error(err))
			return result, domain.Persistence("", "remove bookings of inactive subscriptions", err)
		}
		result.BookingsCleaned = int(cleaned)
		s.metrics.AddBookings(metrics.BookingOpCleaned, result.BookingsCleaned)
	}

	s.refreshCache(ctx, active)

	span.SetAttributes(
		attribute.Int("subscriptions_processed", result.SubscriptionsProcessed),
		attribute.Int("bookings_created", result.BookingsCreated),
		attribute.Int("bookings_cleaned", result.BookingsCleaned),
		attribute.Int("errors_count", result.ErrorsCount),
	)
	log.Info("bookingsync.batch.completed",
		zap.Int("subscriptions_processed", result.SubscriptionsProcessed),
		zap.Int("bookings_created", result.BookingsCreated),
		zap.Int("bookings_cleaned", result.BookingsCleaned),
		zap.Int("errors_count", result.ErrorsCount),
		zap.Int("incomplete_count", result.IncompleteCount),
	)
	return result, nil
}

// sync purges and regenerates future bookings for one subscription inside a
// single transaction. Caller holds the subscription lock.
func (s *Service) sync(ctx context.Context, sub subscriptiondomain.Subscription, horizonDays int) (domain.Outcome, error) {
	id := sub.ID
	out := domain.Outcome{SubscriptionID: id}

	schedule, err := s.schedules.Effective(ctx, sub)
	if err != nil {
		return failed(out, domain.Persistence(id, "load schedule", err))
	}
	out.ServiceCode = schedule.ServiceCode

	today := s.startOfToday()
	status := domain.StatusSynced
	var created, removed, skipped int

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accountID, err := s.accounts.Resolve(ctx, tx, sub.CustomerID)
		if err != nil {
			if errors.Is(err, accountdomain.ErrNotFound) {
				return domain.AccountUnresolved(id, sub.CustomerID, err)
			}
			return domain.Persistence(id, "resolve account", err)
		}

		if len(schedule.Days) == 0 {
			status = domain.StatusNoSchedule
			return nil
		}
		if !schedule.IsComplete() {
			status = domain.StatusIncomplete
			return nil
		}

		n, err := s.bookings.DeleteFutureBySubscription(ctx, tx, id, today)
		if err != nil {
			return domain.Persistence(id, "delete future bookings", err)
		}
		removed = int(n)

		now := s.clock.Now().UTC()
		label := catalog.LabelOf(schedule.ServiceCode)
		notes := bookingNotes(id, schedule.Notes)
		for _, occ := range occurrence.Generate(schedule, horizonDays, today, s.loc) {
			exists, err := s.bookings.ExistsForAccountAt(ctx, tx, accountID, occ.Start)
			if err != nil {
				return domain.Persistence(id, "check existing booking", err)
			}
			if exists {
				skipped++
				continue
			}
			subID := id
			booking := &bookingdomain.Booking{
				ID:             s.genID.Generate(),
				AccountID:      accountID,
				ServiceCode:    schedule.ServiceCode,
				ServiceLabel:   label,
				StartAt:        occ.Start,
				EndAt:          occ.End,
				Location:       strings.TrimSpace(schedule.Location),
				Units:          schedule.Units,
				Notes:          notes,
				Status:         bookingdomain.StatusScheduled,
				Source:         bookingdomain.SourceSubscription,
				SubscriptionID: &subID,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.bookings.Insert(ctx, tx, booking); err != nil {
				return domain.Persistence(id, "insert booking", err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		var syncErr *domain.SyncError
		if !errors.As(err, &syncErr) {
			syncErr = domain.Persistence(id, "commit", err)
		}
		return failed(out, syncErr)
	}

	out.Status = status
	if status == domain.StatusIncomplete {
		out.MissingFields = schedule.MissingNames()
		out.Message = "schedule incomplete"
	}
	out.BookingsCreated = created
	out.BookingsRemoved = removed
	out.BookingsSkipped = skipped
	return out, nil
}

// purge removes future subscription bookings of a subscription that is no
// longer active.
func (s *Service) purge(ctx context.Context, id string) (domain.Outcome, error) {
	out := domain.Outcome{SubscriptionID: id}
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.bookings.DeleteFutureBySubscription(ctx, tx, id, s.startOfToday())
		removed = n
		return err
	})
	if err != nil {
		return failed(out, domain.Persistence(id, "purge future bookings", err))
	}
	out.Status = domain.StatusPurged
	out.BookingsRemoved = int(removed)
	return out, nil
}

func (s *Service) refreshCache(ctx context.Context, subs []subscriptiondomain.Subscription) {
	schedules := make([]scheduledomain.Schedule, 0, len(subs))
	snapshot := make(map[string]map[string]string, len(subs))
	for _, sub := range subs {
		schedules = append(schedules, s.schedules.Extract(sub))
		snapshot[sub.ID] = sub.Metadata
	}
	if err := s.schedules.RefreshCache(ctx, schedules, snapshot); err != nil {
		logger.WithContext(ctx, s.log).Warn("bookingsync.batch.cache_refresh_failed", zap.Error(err))
	}
}

func (s *Service) lock(ctx context.Context, id string) (func(), error) {
	lockCtx := ctx
	if wait := s.cfg.Get().LockWait; wait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	start := time.Now()
	release, err := s.locker.Acquire(lockCtx, id)
	s.metrics.ObserveLockWait(metrics.LockResourceSubscription, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLockUnavailable, err)
	}
	return release, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, out domain.Outcome, err error) {
	s.metrics.ObserveOutcome(out)
	s.domainMet.RecordSyncOutcome(ctx, trigger(ctx), string(out.Status), string(catalog.FamilyOf(out.ServiceCode)), out.BookingsCreated)

	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("status", string(out.Status)),
		attribute.String("service_code", out.ServiceCode),
		attribute.Int("bookings_created", out.BookingsCreated),
		attribute.Int("bookings_removed", out.BookingsRemoved),
	)...)

	log := logger.WithContext(ctx, s.log)
	fields := []zap.Field{
		zap.String("status", string(out.Status)),
		zap.Int("bookings_created", out.BookingsCreated),
		zap.Int("bookings_removed", out.BookingsRemoved),
		zap.Int("bookings_skipped", out.BookingsSkipped),
	}
	switch {
	case err != nil:
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, string(out.Category))
		log.Warn("bookingsync.subscription.failed", append(fields,
			zap.String("category", string(out.Category)),
			zap.Error(err),
		)...)
	case out.Status == domain.StatusIncomplete:
		log.Info("bookingsync.subscription.incomplete", append(fields,
			zap.Strings("missing_fields", out.MissingFields),
		)...)
	default:
		log.Info("bookingsync.subscription.synced", fields...)
	}
}

func (s *Service) startOfToday() time.Time {
	y, m, d := s.clock.Now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func failed(out domain.Outcome, err *domain.SyncError) (domain.Outcome, error) {
	out.Status = domain.StatusFailed
	out.Category = err.Category
	out.Message = err.Message
	return out, err
}

func bookingNotes(subscriptionID, notes string) string {
	base := fmt.Sprintf(notesPrefix, subscriptionID)
	if notes = strings.TrimSpace(notes); notes != "" {
		return base + " " + notes
	}
	return base
}

// activeSet keeps subscriptions in one of statuses, dropping blank and
// duplicate ids while preserving order.
func activeSet(subs []subscriptiondomain.Subscription, statuses []string) []subscriptiondomain.Subscription {
	seen := make(map[string]struct{}, len(subs))
	out := make([]subscriptiondomain.Subscription, 0, len(subs))
	for _, sub := range subs {
		sub.ID = strings.TrimSpace(sub.ID)
		if sub.ID == "" || !sub.HasStatus(statuses...) {
			continue
		}
		if _, ok := seen[sub.ID]; ok {
			continue
		}
		seen[sub.ID] = struct{}{}
		out = append(out, sub)
	}
	return out
}

func trigger(ctx context.Context) string {
	if job := obscontext.JobFromContext(ctx); job != "" {
		return job
	}
	if actorType, _ := obscontext.ActorFromContext(ctx); actorType != "" {
		return actorType
	}
	return "direct"
}
