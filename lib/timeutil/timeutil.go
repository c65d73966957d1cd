package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the crawl-date format used by the vendor API
// (last_crawl, from_date).
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string. Longer strings
// (e.g. full timestamps) are truncated to their date prefix.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in the format YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DaysSince returns the number of whole days between the date string
// and now.
func DaysSince(now time.Time, date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return int(now.Sub(t).Hours() / 24), nil
}
