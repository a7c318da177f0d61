// Package filterparse centralizes the permissive query-filter policy used by
// every list endpoint: malformed or unrecognized filter values are treated as
// if the filter were absent, never rejected.
package filterparse

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Date parses a YYYY-MM-DD value. ok is false for empty or malformed input.
func Date(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateRange converts optional date_from/date_to values into an inclusive
// day-granularity range expressed as [from, toExclusive). Either bound may be
// nil when absent or unparseable.
func DateRange(fromRaw, toRaw string) (from, toExclusive *time.Time) {
	if t, ok := Date(fromRaw); ok {
		from = &t
	}
	if t, ok := Date(toRaw); ok {
		end := t.AddDate(0, 0, 1)
		toExclusive = &end
	}
	return from, toExclusive
}

// Enum returns s when it is one of allowed, otherwise "".
func Enum(s string, allowed []string) string {
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return ""
}

// UserID parses a numeric user id. Returns 0 when absent or non-numeric.
func UserID(s string) uint {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

// UUID parses a uuid value. Returns uuid.Nil when absent or malformed.
func UUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
