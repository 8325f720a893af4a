package ingest

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order; the first parse that lands in a plausible
// year wins. Unpadded layouts accept both "7/4/2024" and "07/04/2024", and
// month-first variants come before day-first ones, so an unambiguous file
// parses deterministically.
var dateLayouts = []string{
	"1/2/2006",
	"2/1/2006",
	"2006-1-2",
	"1-2-2006",
	"2-1-2006",
	"1/2/06",
	"2/1/06",
	"1-2-06",
	"2-1-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006/1/2",
	time.RFC3339,
}

const (
	minYear = 1900
	maxYear = 2100
)

// parseDate parses a CSV date value against the known layouts. A parse whose
// year falls outside [1900, 2100] is treated as a wrong-layout hit and the
// remaining layouts are still tried.
func parseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		if t.Year() < minYear || t.Year() > maxYear {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
