package analytics

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order; layouts without a zone are read as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an exported timestamp string.
// The boolean is false for empty or unrecognized values.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseOptionalTimestamp parses a nullable timestamp field
func parseOptionalTimestamp(value *string) (time.Time, bool) {
	if value == nil {
		return time.Time{}, false
	}
	return ParseTimestamp(*value)
}

// ParseMillis reads the leading integer of a millisecond field the way a lenient
// integer parser would: "1500" and "1500ms" yield 1500, "abc" and "-3" are rejected.
func ParseMillis(value *string) (float64, bool) {
	if value == nil {
		return 0, false
	}

	s := strings.TrimSpace(*value)
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	var ms float64
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		ms = ms*10 + float64(s[digits]-'0')
		digits++
	}

	if digits == 0 || (negative && ms != 0) {
		return 0, false
	}
	return ms, true
}
