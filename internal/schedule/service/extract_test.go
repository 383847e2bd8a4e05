package service

import (
	"testing"

	"github.com/smallbiznis/bookingsync/internal/schedule/domain"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sub(id string, md map[string]string, items ...subscriptiondomain.LineItem) subscriptiondomain.Subscription {
	return subscriptiondomain.Subscription{
		ID:         id,
		CustomerID: "cus_123",
		Status:     subscriptiondomain.StatusActive,
		Metadata:   md,
		Items:      items,
	}
}

func TestExtractCompleteSchedule(t *testing.T) {
	s := Extract(sub("sub_a", map[string]string{
		"schedule_days":       "MON,WED,FRI",
		"schedule_start_time": "09:30",
		"schedule_end_time":   "11:30",
		"schedule_location":   "Home",
		"schedule_dogs":       "2",
		"service_code":        "WALK_LONG_SINGLE",
	}))

	assert.Equal(t, []domain.Weekday{domain.Monday, domain.Wednesday, domain.Friday}, s.Days)
	require.NotNil(t, s.Start)
	require.NotNil(t, s.End)
	assert.Equal(t, "09:30", s.Start.String())
	assert.Equal(t, "11:30", s.End.String())
	assert.Equal(t, "Home", s.Location)
	assert.Equal(t, 2, s.Units)
	assert.Equal(t, "WALK_LONG_SINGLE", s.ServiceCode)
	assert.True(t, s.IsComplete())
	assert.Empty(t, s.Missing)
}

func TestExtractOnlyDays(t *testing.T) {
	s := Extract(sub("sub_b", map[string]string{"schedule_days": "TUE,THU"}))

	assert.Equal(t, []domain.Weekday{domain.Tuesday, domain.Thursday}, s.Days)
	assert.Nil(t, s.Start)
	assert.Nil(t, s.End)
	assert.False(t, s.IsComplete())
	assert.ElementsMatch(t, []string{"start_time", "end_time", "location", "dogs", "service_code"}, s.MissingNames())
}

func TestExtractAliasKeysAndDayParsing(t *testing.T) {
	s := Extract(sub("sub_c", map[string]string{
		"days":       "fri, mon,Monday, xyz ,SUN",
		"start_time": "7:05",
		"end_time":   "08:15:00",
		"location":   "  Park ",
		"dogs":       "3",
		"notes":      "gate code 1234",
	}, subscriptiondomain.LineItem{PriceNickname: "Short Walk (Single)"}))

	assert.Equal(t, []domain.Weekday{domain.Monday, domain.Friday, domain.Sunday}, s.Days)
	assert.Equal(t, "07:05", s.Start.String())
	assert.Equal(t, "08:15", s.End.String())
	assert.Equal(t, 3, s.Units)
	assert.Equal(t, "gate code 1234", s.Notes)
	assert.Equal(t, "WALK_SHORT_SINGLE", s.ServiceCode)
	assert.True(t, s.IsComplete())
}

func TestExtractPrefixedKeyWins(t *testing.T) {
	s := Extract(sub("sub_d", map[string]string{
		"schedule_location": "Office",
		"location":          "Home",
		"schedule_dogs":     "",
		"dogs":              "4",
	}))
	assert.Equal(t, "Office", s.Location)
	assert.Equal(t, 4, s.Units)
}

func TestSentinelTimesAreIncomplete(t *testing.T) {
	s := Extract(sub("sub_e", map[string]string{
		"schedule_days":       "MON",
		"schedule_start_time": "09:00",
		"schedule_end_time":   "10:00",
		"schedule_location":   "Home",
		"schedule_dogs":       "1",
		"service_code":        "DAYCARE_SINGLE",
	}))
	assert.False(t, s.IsComplete())
	assert.ElementsMatch(t, []string{"start_time", "end_time"}, s.MissingNames())
}

func TestTimeWindowRules(t *testing.T) {
	base := map[string]string{
		"schedule_days":     "MON",
		"schedule_location": "Home",
		"schedule_dogs":     "1",
	}
	with := func(code, start, end string) domain.Schedule {
		md := map[string]string{}
		for k, v := range base {
			md[k] = v
		}
		md["service_code"] = code
		md["schedule_start_time"] = start
		md["schedule_end_time"] = end
		return Extract(sub("sub_w", md))
	}

	assert.Equal(t, []string{"end_time"}, with("WALK_LONG_SINGLE", "12:00", "12:00").MissingNames())
	assert.Equal(t, []string{"end_time"}, with("WALK_LONG_SINGLE", "12:00", "11:00").MissingNames())
	assert.True(t, with("BOARD_OVERNIGHT_SINGLE", "18:00", "08:00").IsComplete())
	assert.Equal(t, []string{"end_time"}, with("BOARD_OVERNIGHT_SINGLE", "18:00", "18:00").MissingNames())
}

func TestUnitsParsing(t *testing.T) {
	assert.Equal(t, 0, parseUnits(""))
	assert.Equal(t, 0, parseUnits("abc"))
	assert.Equal(t, 0, parseUnits("-2"))
	assert.Equal(t, 2, parseUnits("2"))
	assert.Equal(t, 2, parseUnits("2.0"))
}

func TestServiceCodeDerivedFromLabelCountsAsPresent(t *testing.T) {
	s := Extract(sub("sub_f", map[string]string{"schedule_days": "MON"},
		subscriptiondomain.LineItem{ProductName: "Puppy training"}))
	assert.NotContains(t, s.MissingNames(), "service_code")
	assert.Equal(t, "PUPPY_TRAINING", s.ServiceCode)
}
