package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the 8-digit date layout used on the time axis and in event tables.
const DateLayout = "20060102"

// FormatDate converts an 8-digit YYYYMMDD date into the D/M/Y label shown on frames.
// Inputs that are not 8 characters long are returned unchanged.
func FormatDate(date string) string {
	if len(date) != 8 {
		return date
	}
	return fmt.Sprintf("%s/%s/%s", date[6:8], date[4:6], date[:4])
}

// NormalizeDate parses a date cell into its canonical YYYYMMDD form.
// Integer-like floats ("20010101.0") are accepted because spreadsheet exports
// often write date columns that way.
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
		s = fmt.Sprintf("%08d", int64(f))
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYYMMDD): %w", raw, err)
	}
	return s, nil
}

// DecodeTimeAxis converts raw time coordinate values into YYYYMMDD strings.
//
// Without CF units the values are fixed-width date integers (e.g. 20010101).
// With units of the form "<unit> since <reference>" they are offsets from the
// reference time.
func DecodeTimeAxis(values []float64, units string) ([]string, error) {
	out := make([]string, len(values))

	unit, ref, ok, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	if !ok {
		for i, v := range values {
			out[i] = fmt.Sprintf("%08d", int64(v))
		}
		return out, nil
	}

	for i, v := range values {
		t := ref.Add(time.Duration(v * float64(unit)))
		out[i] = t.Format(DateLayout)
	}
	return out, nil
}

// parseTimeUnits parses CF-style "days since 1970-01-01 00:00:00" units.
// It reports ok=false when the units do not describe an offset axis.
func parseTimeUnits(units string) (time.Duration, time.Time, bool, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, false, nil
	}

	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "days", "day", "d":
		unit = 24 * time.Hour
	case "hours", "hour", "h":
		unit = time.Hour
	case "minutes", "minute", "min":
		unit = time.Minute
	case "seconds", "second", "s":
		unit = time.Second
	default:
		return 0, time.Time{}, false, fmt.Errorf("unsupported time unit %q", parts[0])
	}

	refStr := strings.TrimSpace(parts[1])
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-1-2 15:4:5",
		"2006-01-02",
		"2006-1-2",
	} {
		if ref, err := time.Parse(layout, refStr); err == nil {
			return unit, ref, true, nil
		}
	}
	return 0, time.Time{}, false, fmt.Errorf("unsupported time reference %q", refStr)
}
