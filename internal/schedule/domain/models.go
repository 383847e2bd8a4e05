// Package domain defines recurrence schedules derived from subscription
// metadata and the locally cached copy kept once a human has filled them in.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Weekday is a day token with Monday=0 through Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayTokens = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// String returns the three-letter token.
func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayTokens[d]
}

// FromTime converts a Go weekday to the Monday-based numbering.
func FromTime(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday accepts three-letter tokens and full day names in any case.
func ParseWeekday(token string) (Weekday, bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if len(token) < 3 {
		return 0, false
	}
	for i, t := range weekdayTokens {
		if strings.HasPrefix(token, t) {
			return Weekday(i), true
		}
	}
	return 0, false
}

// ParseDays splits a comma separated list of day tokens. Unknown tokens are
// ignored, duplicates collapse and the result is ordered Monday first.
func ParseDays(raw string) []Weekday {
	seen := map[Weekday]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		if d, ok := ParseWeekday(part); ok {
			seen[d] = struct{}{}
		}
	}
	days := make([]Weekday, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// FormatDays renders days as a comma separated token list.
func FormatDays(days []Weekday) string {
	tokens := make([]string, 0, len(days))
	for _, d := range days {
		tokens = append(tokens, d.String())
	}
	return strings.Join(tokens, ",")
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses HH:MM, H:MM or HH:MM:SS.
func ParseTimeOfDay(raw string) (TimeOfDay, bool) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return TimeOfDay{}, false
	}
	if len(parts) == 3 {
		if s, err := strconv.Atoi(parts[2]); err != nil || s < 0 || s > 59 {
			return TimeOfDay{}, false
		}
	}
	return TimeOfDay{Hour: h, Minute: m}, true
}

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On returns the instant on the given calendar date in loc.
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, t.Hour, t.Minute, 0, 0, loc)
}

// Legacy placeholders written by older tooling in place of real times.
var (
	SentinelStart = TimeOfDay{Hour: 9}
	SentinelEnd   = TimeOfDay{Hour: 10}
)

// MissingField names a schedule attribute a human still has to supply.
type MissingField string

const (
	MissingDays        MissingField = "days"
	MissingStartTime   MissingField = "start_time"
	MissingEndTime     MissingField = "end_time"
	MissingLocation    MissingField = "location"
	MissingDogs        MissingField = "dogs"
	MissingServiceCode MissingField = "service_code"
)

// Schedule is the recurrence pattern derived for one subscription.
type Schedule struct {
	SubscriptionID string
	Days           []Weekday
	Start          *TimeOfDay
	End            *TimeOfDay
	Location       string
	Units          int
	Notes          string
	ServiceCode    string
	Missing        []MissingField
}

// IsComplete reports whether no required field is missing.
func (s Schedule) IsComplete() bool {
	return len(s.Missing) == 0
}

// HasDay reports whether d is part of the day set.
func (s Schedule) HasDay(d Weekday) bool {
	for _, day := range s.Days {
		if day == d {
			return true
		}
	}
	return false
}

// MissingNames returns the missing field names as strings.
func (s Schedule) MissingNames() []string {
	out := make([]string, 0, len(s.Missing))
	for _, m := range s.Missing {
		out = append(out, string(m))
	}
	return out
}
