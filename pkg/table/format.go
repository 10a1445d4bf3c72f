package table

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Never is the sentinel last-login value that is displayed verbatim.
const Never = "Never"

// AbsoluteDateLayout is used for dates a week or more in the past.
const AbsoluteDateLayout = "1/2/2006"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes found in the fixtures.
func ParseTimestamp(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// FormatRelativeDate collapses a timestamp into Today, Yesterday,
// "N days ago" for N < 7, or an absolute date.
//
// Future timestamps count as Today. Values that do not parse are returned
// unchanged.
func FormatRelativeDate(value string, now time.Time) string {
	if value == "" || value == Never {
		return value
	}

	ts, ok := ParseTimestamp(value)
	if !ok {
		return value
	}

	days := int(now.Sub(ts) / (24 * time.Hour))
	if now.Before(ts) {
		days = 0
	}

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return ts.Format(AbsoluteDateLayout)
	}
}

// BadgeClass returns the CSS class for a badge cell.
func BadgeClass(value string) string {
	return "badge-" + strings.ToLower(value)
}

// AvatarInitial returns the upper-cased first rune of value, or "?".
func AvatarInitial(value string) string {
	r, size := utf8.DecodeRuneInString(value)
	if size == 0 {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
