package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/bookingsync/internal/catalog"
	"github.com/smallbiznis/bookingsync/internal/clock"
	"github.com/smallbiznis/bookingsync/internal/schedule/domain"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Clock  clock.Clock
	Source subscriptiondomain.Source `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	clock    clock.Clock
	source   subscriptiondomain.Source
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("schedule.service"),
		repo:     p.Repo,
		clock:    p.Clock,
		source:   p.Source,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseWeekday(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseTimeOfDay(fl.Field().String())
		return ok
	})
	return v
}

func (s *Service) Extract(sub subscriptiondomain.Subscription) domain.Schedule {
	return Extract(sub)
}

func (s *Service) IsComplete(ctx context.Context, sub subscriptiondomain.Subscription) (bool, error) {
	if Extract(sub).IsComplete() {
		return true, nil
	}
	if strings.TrimSpace(sub.ID) == "" {
		return false, nil
	}
	entry, err := s.repo.Get(ctx, s.db, sub.ID)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.FullyPopulated(), nil
}

func (s *Service) FindIncomplete(ctx context.Context, subs []subscriptiondomain.Subscription) ([]domain.Incomplete, error) {
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		if id := strings.TrimSpace(sub.ID); id != "" {
			ids = append(ids, id)
		}
	}
	cached, err := s.repo.GetMany(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Incomplete, 0)
	for _, sub := range subs {
		id := strings.TrimSpace(sub.ID)
		if id == "" {
			continue
		}
		schedule := Extract(sub)
		if schedule.IsComplete() {
			continue
		}
		if entry, ok := cached[id]; ok && entry.FullyPopulated() {
			continue
		}
		out = append(out, domain.Incomplete{
			Subscription:   sub,
			SubscriptionID: id,
			CustomerID:     sub.CustomerID,
			Schedule:       schedule,
			MissingFields:  schedule.MissingNames(),
		})
	}
	return out, nil
}

func (s *Service) Effective(ctx context.Context, sub subscriptiondomain.Subscription) (domain.Schedule, error) {
	schedule := Extract(sub)
	if schedule.IsComplete() || schedule.SubscriptionID == "" {
		return schedule, nil
	}
	entry, err := s.repo.Get(ctx, s.db, schedule.SubscriptionID)
	if err != nil {
		return schedule, err
	}
	if entry == nil || !entry.FullyPopulated() {
		return schedule, nil
	}

	merged := fromCache(schedule, *entry)
	if !validWindow(merged.Start, merged.End, merged.ServiceCode) {
		start, _ := entry.Start()
		end, _ := entry.End()
		merged.Start, merged.End = &start, &end
	}
	merged.Missing = nil
	s.log.Debug("schedule.cache.applied",
		zap.String("subscription_id", schedule.SubscriptionID),
		zap.Strings("metadata_missing", schedule.MissingNames()),
	)
	return merged, nil
}

func (s *Service) SaveManualEntry(ctx context.Context, entry domain.ManualEntry) (domain.CacheEntry, error) {
	entry.SubscriptionID = strings.TrimSpace(entry.SubscriptionID)
	entry.Location = strings.TrimSpace(entry.Location)
	entry.ServiceCode = strings.TrimSpace(entry.ServiceCode)
	if err := s.validate.Struct(entry); err != nil {
		return domain.CacheEntry{}, mapValidationError(err)
	}
	if entry.ServiceCode != "" && !catalog.IsValidCode(entry.ServiceCode) {
		return domain.CacheEntry{}, domain.ErrInvalidServiceCode
	}

	days := domain.ParseDays(strings.Join(entry.Days, ","))
	start, _ := domain.ParseTimeOfDay(entry.StartTime)
	end, _ := domain.ParseTimeOfDay(entry.EndTime)
	if !validWindow(&start, &end, entry.ServiceCode) {
		return domain.CacheEntry{}, domain.ErrInvalidTimeWindow
	}

	startStr, endStr := start.String(), end.String()
	row := domain.CacheEntry{
		SubscriptionID: entry.SubscriptionID,
		Days:           domain.FormatDays(days),
		StartTime:      &startStr,
		EndTime:        &endStr,
		Units:          entry.Dogs,
		Location:       entry.Location,
		Notes:          strings.TrimSpace(entry.Notes),
		ServiceCode:    entry.ServiceCode,
		Source:         domain.CacheSourceManual,
		UpdatedAt:      s.clock.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, s.db, &row); err != nil {
		return domain.CacheEntry{}, err
	}
	s.log.Info("schedule.manual.saved",
		zap.String("subscription_id", row.SubscriptionID),
		zap.String("days", row.Days),
		zap.Bool("push_to_source", entry.PushToSource),
	)

	if !entry.PushToSource {
		return row, nil
	}
	if s.source == nil {
		return row, fmt.Errorf("%w: subscription source not configured", domain.ErrMetadataPush)
	}
	if err := s.source.UpdateMetadata(ctx, row.SubscriptionID, metadataFor(row)); err != nil {
		s.log.Warn("schedule.manual.push_failed",
			zap.String("subscription_id", row.SubscriptionID),
			zap.Error(err),
		)
		return row, fmt.Errorf("%w: %w", domain.ErrMetadataPush, err)
	}
	return row, nil
}

func (s *Service) RefreshCache(ctx context.Context, schedules []domain.Schedule, metadata map[string]map[string]string) error {
	ids := make([]string, 0, len(schedules))
	for _, sc := range schedules {
		if sc.SubscriptionID != "" {
			ids = append(ids, sc.SubscriptionID)
		}
	}
	existing, err := s.repo.GetMany(ctx, s.db, ids)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	var errs error
	for _, sc := range schedules {
		if sc.SubscriptionID == "" {
			continue
		}
		source := domain.CacheSourceSync
		if prev, ok := existing[sc.SubscriptionID]; ok && prev.Source == domain.CacheSourceManual {
			if !sc.IsComplete() {
				continue
			}
			source = domain.CacheSourceManual
		}
		row := cacheRow(sc, source, now)
		if md, ok := metadata[sc.SubscriptionID]; ok && len(md) > 0 {
			row.Metadata = toJSONMap(md)
		}
		if err := s.repo.Upsert(ctx, s.db, &row); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", sc.SubscriptionID, err))
		}
	}
	return errs
}

func cacheRow(sc domain.Schedule, source string, now time.Time) domain.CacheEntry {
	row := domain.CacheEntry{
		SubscriptionID: sc.SubscriptionID,
		Days:           domain.FormatDays(sc.Days),
		Units:          sc.Units,
		Location:       strings.TrimSpace(sc.Location),
		Notes:          sc.Notes,
		ServiceCode:    sc.ServiceCode,
		Source:         source,
		UpdatedAt:      now,
	}
	if sc.Start != nil {
		v := sc.Start.String()
		row.StartTime = &v
	}
	if sc.End != nil {
		v := sc.End.String()
		row.EndTime = &v
	}
	return row
}

func metadataFor(row domain.CacheEntry) map[string]string {
	md := map[string]string{
		"days":     row.Days,
		"location": row.Location,
		"dogs":     strconv.Itoa(row.Units),
		"notes":    row.Notes,
	}
	if row.StartTime != nil {
		md["start_time"] = *row.StartTime
	}
	if row.EndTime != nil {
		md["end_time"] = *row.EndTime
	}
	if row.ServiceCode != "" {
		md["service_code"] = row.ServiceCode
	}
	return md
}

func toJSONMap(md map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	field := verrs[0].Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	switch field {
	case "SubscriptionID":
		return domain.ErrInvalidSubscriptionID
	case "Days":
		return domain.ErrInvalidDays
	case "StartTime", "EndTime":
		return domain.ErrInvalidTimeWindow
	case "Location":
		return domain.ErrInvalidLocation
	case "Dogs":
		return domain.ErrInvalidUnits
	default:
		return err
	}
}
