package viewstate

import (
	"fmt"
	"strings"
	"time"
)

// DatePeriod filters contacts by when they were last contacted.
type DatePeriod string

const (
	PeriodAll       DatePeriod = "all"
	PeriodToday     DatePeriod = "today"
	PeriodThisWeek  DatePeriod = "this_week"
	PeriodLastWeek  DatePeriod = "last_week"
	PeriodThisMonth DatePeriod = "this_month"
	PeriodLastMonth DatePeriod = "last_month"
	PeriodOlder     DatePeriod = "older"
)

// ParseDatePeriod accepts the wire names above; "" means all.
func ParseDatePeriod(s string) (DatePeriod, error) {
	switch p := DatePeriod(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodToday, PeriodThisWeek, PeriodLastWeek, PeriodThisMonth, PeriodLastMonth, PeriodOlder:
		return p, nil
	default:
		return "", fmt.Errorf("unknown date period %q", s)
	}
}

// LastMonthMode selects how "last month" is computed.
type LastMonthMode int

const (
	// LastMonth30Day takes the calendar month containing now-30 days.
	// This matches the behaviour users already see in the web app.
	LastMonth30Day LastMonthMode = iota
	// LastMonthCalendar takes the calendar month before the current one.
	LastMonthCalendar
)

// window is an inclusive [start, end] range.
type window struct {
	start, end time.Time
}

func (w window) contains(t time.Time) bool {
	return !t.Before(w.start) && !t.After(w.end)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of t's ISO week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func weekWindow(t time.Time) window {
	start := startOfWeek(t)
	return window{start: start, end: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func monthWindow(t time.Time) window {
	start := startOfMonth(t)
	return window{start: start, end: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// thirtyDaysAgo anchors both last_month (in 30-day mode) and older.
func thirtyDaysAgo(now time.Time) time.Time {
	return now.AddDate(0, 0, -30)
}

// matchesPeriod reports whether a contact last contacted at t (ok=false
// when missing or unparseable) belongs to period p.
func matchesPeriod(p DatePeriod, t time.Time, ok bool, now time.Time, mode LastMonthMode) bool {
	if p == PeriodAll || p == "" {
		return true
	}
	if !ok {
		return p == PeriodOlder
	}

	switch p {
	case PeriodToday:
		return !t.Before(startOfDay(now))
	case PeriodThisWeek:
		return weekWindow(now).contains(t)
	case PeriodLastWeek:
		return weekWindow(now.AddDate(0, 0, -7)).contains(t)
	case PeriodThisMonth:
		return monthWindow(now).contains(t)
	case PeriodLastMonth:
		if mode == LastMonthCalendar {
			return monthWindow(startOfMonth(now).AddDate(0, -1, 0)).contains(t)
		}
		return monthWindow(thirtyDaysAgo(now)).contains(t)
	case PeriodOlder:
		// the boundary instant itself counts as older
		return !t.After(startOfMonth(thirtyDaysAgo(now)))
	default:
		return true
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp reads a gateway timestamp. Zone-less values are read in
// loc. Malformed input reports ok=false instead of failing.
func parseTimestamp(raw *string, loc *time.Location) (time.Time, bool) {
	if raw == nil {
		return time.Time{}, false
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range timestampLayouts[1:] {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
