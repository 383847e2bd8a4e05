package occurrence

import (
	"testing"
	"time"

	scheduledomain "github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tod(h, m int) *scheduledomain.TimeOfDay {
	return &scheduledomain.TimeOfDay{Hour: h, Minute: m}
}

// 2026-10-19 is a Monday.
var monday = time.Date(2026, 10, 19, 15, 4, 0, 0, time.UTC)

func TestGenerateMondaysOverOneWeek(t *testing.T) {
	s := scheduledomain.Schedule{
		Days:        []scheduledomain.Weekday{scheduledomain.Monday},
		Start:       tod(9, 30),
		End:         tod(11, 30),
		ServiceCode: "WALK_LONG_SINGLE",
	}
	got := Generate(s, 7, monday, time.UTC)

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC), got[0].Start)
	assert.Equal(t, time.Date(2026, 10, 19, 11, 30, 0, 0, time.UTC), got[0].End)
	assert.Equal(t, time.Date(2026, 10, 26, 9, 30, 0, 0, time.UTC), got[1].Start)
}

func TestGenerateIsDeterministic(t *testing.T) {
	s := scheduledomain.Schedule{
		Days:        []scheduledomain.Weekday{scheduledomain.Monday, scheduledomain.Wednesday, scheduledomain.Friday},
		Start:       tod(8, 0),
		End:         tod(9, 0),
		ServiceCode: "DAYCARE_SINGLE",
	}
	first := Generate(s, 90, monday, time.UTC)
	second := Generate(s, 90, monday, time.UTC)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i].Start.After(first[i-1].Start))
	}
	for _, o := range first {
		wd := scheduledomain.FromTime(o.Start.Weekday())
		assert.True(t, s.HasDay(wd))
	}
}

func TestGenerateOvernightRollsEnd(t *testing.T) {
	s := scheduledomain.Schedule{
		Days:        []scheduledomain.Weekday{scheduledomain.Saturday},
		Start:       tod(18, 0),
		End:         tod(8, 0),
		ServiceCode: "BOARD_OVERNIGHT_SINGLE",
	}
	got := Generate(s, 6, monday, time.UTC)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 10, 24, 18, 0, 0, 0, time.UTC), got[0].Start)
	assert.Equal(t, time.Date(2026, 10, 25, 8, 0, 0, 0, time.UTC), got[0].End)
}

func TestGenerateUsesLocation(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	s := scheduledomain.Schedule{
		Days:  []scheduledomain.Weekday{scheduledomain.Tuesday},
		Start: tod(7, 0),
		End:   tod(8, 0),
	}
	// 15:04 UTC Monday is already Tuesday 01:04 in AEST.
	got := Generate(s, 0, monday, loc)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC), got[0].Start.UTC())
}

func TestGenerateEmptyInputs(t *testing.T) {
	assert.Nil(t, Generate(scheduledomain.Schedule{}, 30, monday, time.UTC))
	assert.Nil(t, Generate(scheduledomain.Schedule{
		Days: []scheduledomain.Weekday{scheduledomain.Monday},
	}, 30, monday, time.UTC))
	assert.Nil(t, Generate(scheduledomain.Schedule{
		Days:  []scheduledomain.Weekday{scheduledomain.Monday},
		Start: tod(9, 0),
		End:   tod(10, 0),
	}, -1, monday, time.UTC))
}
