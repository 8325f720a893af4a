// Package dashboard computes read-side summary metrics over the four
// collections. Everything here is pure computation; no persistence calls.
package dashboard

import (
	"fmt"
	"time"
)

// Period names a dashboard date window.
type Period string

const (
	PeriodCurrentMonth Period = "current-month"
	PeriodLastMonth    Period = "last-month"
	PeriodCurrentWeek  Period = "current-week"
	PeriodLastWeek     Period = "last-week"
	PeriodToday        Period = "today"
	PeriodYesterday    Period = "yesterday"
	PeriodYearToDate   Period = "year-to-date"
	PeriodAllTime      Period = "all-time"
)

// Window is a closed date range. A zero Start and End means unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// Unbounded reports whether the window covers all time.
func (w Window) Unbounded() bool { return w.Start.IsZero() && w.End.IsZero() }

// Contains reports whether the date falls inside the window, inclusive on
// both ends. Only the calendar date matters.
func (w Window) Contains(t time.Time) bool {
	if w.Unbounded() {
		return true
	}
	d := dateOnly(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// ResolveWindow maps a named period to a concrete window relative to now.
// Weeks start on Monday.
func ResolveWindow(p Period, now time.Time) (Window, error) {
	today := dateOnly(now)

	switch p {
	case PeriodCurrentMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, -1)}, nil
	case PeriodLastMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return Window{Start: start, End: start.AddDate(0, 1, -1)}, nil
	case PeriodCurrentWeek:
		start := startOfWeek(today)
		return Window{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PeriodLastWeek:
		start := startOfWeek(today).AddDate(0, 0, -7)
		return Window{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PeriodToday:
		return Window{Start: today, End: today}, nil
	case PeriodYesterday:
		y := today.AddDate(0, 0, -1)
		return Window{Start: y, End: y}, nil
	case PeriodYearToDate:
		start := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: today}, nil
	case PeriodAllTime:
		return Window{}, nil
	}

	return Window{}, fmt.Errorf("ResolveWindow: unknown period %q", p)
}

// PreviousWindow returns the immediately preceding window of equal length,
// for trend comparison. The previous window of all-time is all-time itself.
func PreviousWindow(p Period, w Window) Window {
	if w.Unbounded() {
		return w
	}

	switch p {
	case PeriodCurrentMonth, PeriodLastMonth:
		start := w.Start.AddDate(0, -1, 0)
		return Window{Start: start, End: start.AddDate(0, 1, -1)}
	case PeriodYearToDate:
		return Window{Start: w.Start.AddDate(-1, 0, 0), End: w.End.AddDate(-1, 0, 0)}
	}

	days := int(w.End.Sub(w.Start).Hours()/24) + 1
	return Window{Start: w.Start.AddDate(0, 0, -days), End: w.End.AddDate(0, 0, -days)}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfWeek(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
