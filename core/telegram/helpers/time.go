package helpers

import (
	"strings"
	"time"
)

var releaseDateLayouts = map[string]struct{ parse, display string }{
	"day":   {"2006-01-02", "2 January 2006"},
	"month": {"2006-01", "January 2006"},
	"year":  {"2006", "2006"},
}

// ParseReleaseDate parses a release date at the given precision ("day",
// "month" or "year"). An unknown precision falls back to the length of date.
func ParseReleaseDate(date, precision string) (time.Time, string, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, "", false
	}
	precision = strings.ToLower(strings.TrimSpace(precision))
	if _, ok := releaseDateLayouts[precision]; !ok {
		switch len(date) {
		case 4:
			precision = "year"
		case 7:
			precision = "month"
		default:
			precision = "day"
		}
	}
	layout := releaseDateLayouts[precision]
	t, err := time.ParseInLocation(layout.parse, date, time.UTC)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, precision, true
}

// FormatReleaseDate renders a release date no more precisely than it is
// known. Unparseable input is returned trimmed.
func FormatReleaseDate(date, precision string) string {
	t, p, ok := ParseReleaseDate(date, precision)
	if !ok {
		return strings.TrimSpace(date)
	}
	return t.Format(releaseDateLayouts[p].display)
}
