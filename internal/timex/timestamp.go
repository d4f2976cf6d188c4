package timex

import (
	"strings"
	"time"
)

// layouts lists the timestamp shapes the backends produce: RFC 3339 from the
// REST API, Postgres text output for timestamptz and timestamp, and bare
// dates. Fractional seconds are optional for every layout when parsing.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp. It returns nil for empty input
// and for values that match none of the known layouts: a malformed value is
// treated as absent, never guessed. Values without a zone are read as UTC.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseNullTimestamp is ParseTimestamp for nullable scan targets.
func ParseNullTimestamp(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return ParseTimestamp(*s)
}

// Format renders t with layout, or fallback when t is nil.
func Format(t *time.Time, layout, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.Format(layout)
}
