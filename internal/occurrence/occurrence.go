// Package occurrence expands a weekly schedule into dated appointments.
package occurrence

import (
	"time"

	"github.com/smallbiznis/bookingsync/internal/catalog"
	scheduledomain "github.com/smallbiznis/bookingsync/internal/schedule/domain"
)

// Occurrence is one concrete appointment.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Generate walks every date from today through today+horizonDays inclusive
// and emits one occurrence per date whose weekday is scheduled. Times are
// interpreted in loc. Overnight services end on the following day.
// The result is chronological and depends only on the inputs.
func Generate(s scheduledomain.Schedule, horizonDays int, today time.Time, loc *time.Location) []Occurrence {
	if len(s.Days) == 0 || s.Start == nil || s.End == nil || horizonDays < 0 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	overnight := catalog.IsOvernight(s.ServiceCode)
	y, m, d := today.In(loc).Date()
	out := make([]Occurrence, 0, (horizonDays/7+1)*len(s.Days))
	for offset := 0; offset <= horizonDays; offset++ {
		date := time.Date(y, m, d+offset, 12, 0, 0, 0, loc)
		if !s.HasDay(scheduledomain.FromTime(date.Weekday())) {
			continue
		}
		dy, dm, dd := date.Date()
		start := s.Start.On(dy, dm, dd, loc)
		endDay := dd
		if overnight {
			endDay++
		}
		end := s.End.On(dy, dm, endDay, loc)
		out = append(out, Occurrence{Start: start, End: end})
	}
	return out
}
