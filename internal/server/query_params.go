package server

import (
	"strings"
	"time"
)

// rangeParam is one bound of a time window taken from the query string.
type rangeParam struct {
	field string
	value string
}

// parseTimeRange reads a [from, to] window. Either bound may be RFC3339 or
// a bare date; bare dates widen to cover the whole day, so to is inclusive.
// When required is false, missing bounds come back nil.
func parseTimeRange(from, to rangeParam, required bool) (*time.Time, *time.Time, error) {
	start, err := parseBound(from, false, required)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseBound(to, true, required)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func parseBound(p rangeParam, endOfDay, required bool) (*time.Time, error) {
	value := strings.TrimSpace(p.value)
	if value == "" {
		if required {
			return nil, newValidationError(p.field, "invalid_"+p.field, p.field+" is required")
		}
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		if endOfDay {
			day = day.Add(24*time.Hour - time.Nanosecond)
		}
		return &day, nil
	}
	return nil, newValidationError(p.field, "invalid_"+p.field, p.field+" must be a date or RFC3339 timestamp")
}
