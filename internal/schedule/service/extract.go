package service

import (
	"strconv"
	"strings"

	"github.com/smallbiznis/bookingsync/internal/catalog"
	"github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"github.com/smallbiznis/bookingsync/internal/servicecode"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

// Metadata keys, prefixed form first.
var (
	KeysDays     = []string{"schedule_days", "days"}
	KeysStart    = []string{"schedule_start_time", "start_time"}
	KeysEnd      = []string{"schedule_end_time", "end_time"}
	KeysLocation = []string{"schedule_location", "location"}
	KeysDogs     = []string{"schedule_dogs", "dogs"}
	KeysNotes    = []string{"schedule_notes", "notes"}
)

// Extract reads the schedule from subscription metadata and validates it.
// Absent or unparsable times stay nil so "never set" is distinguishable
// from an explicit value.
func Extract(sub subscriptiondomain.Subscription) domain.Schedule {
	s := domain.Schedule{
		SubscriptionID: strings.TrimSpace(sub.ID),
		Days:           domain.ParseDays(lookup(sub, KeysDays)),
		Location:       lookup(sub, KeysLocation),
		Units:          parseUnits(lookup(sub, KeysDogs)),
		Notes:          lookup(sub, KeysNotes),
		ServiceCode:    servicecode.ResolveOrDerive(sub),
	}
	if t, ok := domain.ParseTimeOfDay(lookup(sub, KeysStart)); ok {
		s.Start = &t
	}
	if t, ok := domain.ParseTimeOfDay(lookup(sub, KeysEnd)); ok {
		s.End = &t
	}
	s.Missing = Validate(s, sub)
	return s
}

// Validate returns the names of required fields that are missing or unusable.
// Start and end equal to the legacy 09:00/10:00 placeholders count as unset.
func Validate(s domain.Schedule, sub subscriptiondomain.Subscription) []domain.MissingField {
	var missing []domain.MissingField
	if len(s.Days) == 0 {
		missing = append(missing, domain.MissingDays)
	}
	if s.Start == nil || *s.Start == domain.SentinelStart {
		missing = append(missing, domain.MissingStartTime)
	}
	if s.End == nil || *s.End == domain.SentinelEnd || !validWindow(s.Start, s.End, s.ServiceCode) {
		missing = append(missing, domain.MissingEndTime)
	}
	if strings.TrimSpace(s.Location) == "" {
		missing = append(missing, domain.MissingLocation)
	}
	if s.Units <= 0 {
		missing = append(missing, domain.MissingDogs)
	}
	if _, ok := servicecode.Resolve(sub); !ok && !servicecode.HasDerivableLabel(sub) {
		missing = append(missing, domain.MissingServiceCode)
	}
	return missing
}

// validWindow requires end strictly after start, except for overnight
// services where an earlier end time means the next morning.
func validWindow(start, end *domain.TimeOfDay, code string) bool {
	if start == nil || end == nil {
		return true
	}
	if *start == *end {
		return false
	}
	if catalog.IsOvernight(code) {
		return true
	}
	return end.Minutes() > start.Minutes()
}

func lookup(sub subscriptiondomain.Subscription, keys []string) string {
	for _, k := range keys {
		if v := sub.Meta(k); v != "" {
			return v
		}
	}
	return ""
}

func parseUnits(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// fromCache overlays a complete cache row onto fields the metadata left
// unset. Values present in metadata are kept.
func fromCache(s domain.Schedule, entry domain.CacheEntry) domain.Schedule {
	if len(s.Days) == 0 {
		s.Days = domain.ParseDays(entry.Days)
	}
	if s.Start == nil || *s.Start == domain.SentinelStart {
		if t, ok := entry.Start(); ok {
			s.Start = &t
		}
	}
	if s.End == nil || *s.End == domain.SentinelEnd {
		if t, ok := entry.End(); ok {
			s.End = &t
		}
	}
	if strings.TrimSpace(s.Location) == "" {
		s.Location = entry.Location
	}
	if s.Units <= 0 {
		s.Units = entry.Units
	}
	if s.Notes == "" {
		s.Notes = entry.Notes
	}
	if entry.ServiceCode != "" && catalog.IsValidCode(entry.ServiceCode) && !catalog.IsValidCode(s.ServiceCode) {
		s.ServiceCode = entry.ServiceCode
	}
	return s
}
