package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// EventRecord is one row of the event table.
type EventRecord struct {
	Row       int     // 1-based data row number in the source table.
	FirstDate string  // YYYYMMDD, inclusive.
	LastDate  string  // YYYYMMDD, inclusive.
	Longitude float64 // Degrees.
	Latitude  float64 // Degrees.
	Text      string  // Label shown next to the marker.
}

// WarningKind classifies recovered event-table problems.
type WarningKind int

const (
	// EventParseWarning marks a malformed row.
	EventParseWarning WarningKind = iota
	// EventLookupAmbiguity marks a row whose dates are not on the time axis.
	EventLookupAmbiguity
	// EventDistanceWarning marks an event placed far from its nearest grid node.
	EventDistanceWarning
)

func (k WarningKind) String() string {
	switch k {
	case EventParseWarning:
		return "parse"
	case EventLookupAmbiguity:
		return "lookup"
	case EventDistanceWarning:
		return "distance"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// EventWarning reports a row-level problem that was recovered locally.
// Parse and lookup warnings mean the row was skipped; distance warnings do not.
type EventWarning struct {
	Row  int
	Kind WarningKind
	Err  error
}

func (w *EventWarning) Error() string {
	return fmt.Sprintf("event row %d (%s): %v", w.Row, w.Kind, w.Err)
}

func (w *EventWarning) Unwrap() error {
	return w.Err
}

// Skipped reports whether the row was dropped from the index.
func (w *EventWarning) Skipped() bool {
	return w.Kind != EventDistanceWarning
}

// ParseEventRecord validates the raw cells of one event-table row.
func ParseEventRecord(row int, firstDate, lastDate, latitude, longitude, text string) (EventRecord, error) {
	rec := EventRecord{Row: row, Text: strings.TrimSpace(text)}

	var err error
	if rec.FirstDate, err = NormalizeDate(firstDate); err != nil {
		return rec, fmt.Errorf("first_date: %w", err)
	}
	if rec.LastDate, err = NormalizeDate(lastDate); err != nil {
		return rec, fmt.Errorf("last_date: %w", err)
	}
	if rec.Latitude, err = strconv.ParseFloat(strings.TrimSpace(latitude), 64); err != nil {
		return rec, fmt.Errorf("invalid latitude %q: %w", latitude, err)
	}
	if rec.Longitude, err = strconv.ParseFloat(strings.TrimSpace(longitude), 64); err != nil {
		return rec, fmt.Errorf("invalid longitude %q: %w", longitude, err)
	}
	if rec.Latitude < -90 || rec.Latitude > 90 {
		return rec, fmt.Errorf("latitude %.4f out of range [-90, 90]", rec.Latitude)
	}
	return rec, nil
}

// EventColumns are the required event-table columns.
var EventColumns = []string{"first_date", "last_date", "latitude", "longitude", "text"}
