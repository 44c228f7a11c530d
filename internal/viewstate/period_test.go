package viewstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-07-15 is a Tuesday.
var scenarioNow = time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)

func TestParseDatePeriod(t *testing.T) {
	p, err := ParseDatePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, p)

	p, err = ParseDatePeriod(" This_Week ")
	require.NoError(t, err)
	assert.Equal(t, PeriodThisWeek, p)

	_, err = ParseDatePeriod("yesterday")
	assert.Error(t, err)
}

func TestMatchesPeriod(t *testing.T) {
	at := func(s string) time.Time {
		ts, ok := parseTimestamp(&s, time.UTC)
		require.True(t, ok, s)
		return ts
	}

	tests := []struct {
		name   string
		period DatePeriod
		value  string
		want   bool
	}{
		{"today matches this morning", PeriodToday, "2025-07-15T00:00:01Z", true},
		{"today rejects yesterday", PeriodToday, "2025-07-14T23:59:59Z", false},
		{"this week includes monday", PeriodThisWeek, "2025-07-14", true},
		{"this week includes sunday", PeriodThisWeek, "2025-07-20T23:00:00Z", true},
		{"this week excludes previous sunday", PeriodThisWeek, "2025-07-13T12:00:00Z", false},
		{"last week includes monday", PeriodLastWeek, "2025-07-07", true},
		{"last week excludes this monday", PeriodLastWeek, "2025-07-14", false},
		{"this month includes first", PeriodThisMonth, "2025-07-01", true},
		{"this month excludes june", PeriodThisMonth, "2025-06-30T23:59:59Z", false},
		{"last month includes june", PeriodLastMonth, "2025-06-20", true},
		{"last month excludes july", PeriodLastMonth, "2025-07-02", false},
		{"older includes month boundary", PeriodOlder, "2025-06-01", true},
		{"older includes may", PeriodOlder, "2025-05-10", true},
		{"older excludes mid june", PeriodOlder, "2025-06-10", false},
		{"all passes anything", PeriodAll, "1999-01-01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchesPeriod(tt.period, at(tt.value), true, scenarioNow, LastMonth30Day)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesPeriod_MissingDate(t *testing.T) {
	for _, p := range []DatePeriod{PeriodToday, PeriodThisWeek, PeriodLastWeek, PeriodThisMonth, PeriodLastMonth} {
		assert.False(t, matchesPeriod(p, time.Time{}, false, scenarioNow, LastMonth30Day), p)
	}
	assert.True(t, matchesPeriod(PeriodOlder, time.Time{}, false, scenarioNow, LastMonth30Day))
	assert.True(t, matchesPeriod(PeriodAll, time.Time{}, false, scenarioNow, LastMonth30Day))
}

func TestMatchesPeriod_LastMonthModes(t *testing.T) {
	// Thirty days before March 31 is still March.
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	march := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	assert.False(t, matchesPeriod(PeriodLastMonth, feb, true, now, LastMonth30Day))
	assert.True(t, matchesPeriod(PeriodLastMonth, march, true, now, LastMonth30Day))

	assert.True(t, matchesPeriod(PeriodLastMonth, feb, true, now, LastMonthCalendar))
	assert.False(t, matchesPeriod(PeriodLastMonth, march, true, now, LastMonthCalendar))
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	ts, ok := parseTimestamp(strPtr("2025-06-01T12:00:00Z"), loc)
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))

	ts, ok = parseTimestamp(strPtr("2025-06-01 08:15:00"), loc)
	require.True(t, ok)
	assert.Equal(t, loc, ts.Location())

	for _, raw := range []*string{nil, strPtr(""), strPtr("  "), strPtr("not a date"), strPtr("2025-13-45")} {
		_, ok := parseTimestamp(raw, loc)
		assert.False(t, ok)
	}
}

func TestStartOfWeek_Sunday(t *testing.T) {
	sunday := time.Date(2025, 7, 20, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC), startOfWeek(sunday))
}
