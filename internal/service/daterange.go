package service

import (
	"fmt"
	"strings"
	"time"

	"accessdesk/internal/models"
)

const dateOnly = "2006-01-02"

// ParseDateRange parses inclusive creation-time bounds. Both bounds are
// required. Date-only values are taken as UTC days; a date-only end is
// extended to the last instant of that day.
func ParseDateRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, _, err := parseBound("start", rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, dayOnly, err := parseBound("end", rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dayOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, models.NewValidationError("start date must not be after end date")
	}
	return start, end, nil
}

func parseBound(name, raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, models.NewValidationError(name + " date is required")
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, models.NewValidationError(
		fmt.Sprintf("invalid %s date %q: expected YYYY-MM-DD or RFC 3339", name, raw))
}
