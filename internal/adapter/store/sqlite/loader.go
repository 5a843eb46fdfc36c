// Package sqlite provides event table loading from SQLite databases.
package sqlite

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// DefaultTable is the table read when none is configured.
const DefaultTable = "events"

var tableNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EventStore reads event annotations from a table of a SQLite database.
type EventStore struct {
	path  string
	table string
}

var _ store.EventLoader = (*EventStore)(nil)

// NewEventStore creates a new SQLite event store.
func NewEventStore(path, table string) *EventStore {
	if table == "" {
		table = DefaultTable
	}
	return &EventStore{path: path, table: table}
}

// IsDatabase reports whether path names a SQLite file by extension.
func IsDatabase(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Load reads every row of the table in rowid order.
func (s *EventStore) Load() ([]domain.EventRecord, []*domain.EventWarning, error) {
	if !tableNameRE.MatchString(s.table) {
		return nil, nil, fmt.Errorf("invalid table name %q", s.table)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event database %s: %w", s.path, err)
	}
	defer func() { _ = db.Close() }()

	//nolint:gosec // G201: Table name validated against tableNameRE.
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(domain.EventColumns, ", "), s.table)
	rows, err := db.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]domain.EventRecord, 0)
	var warnings []*domain.EventWarning

	for row := 1; rows.Next(); row++ {
		var first, last, lat, lon, text sql.NullString
		if err := rows.Scan(&first, &last, &lat, &lon, &text); err != nil {
			warnings = append(warnings, &domain.EventWarning{Row: row, Kind: domain.EventParseWarning, Err: err})
			continue
		}

		rec, err := domain.ParseEventRecord(row, first.String, last.String, lat.String, lon.String, text.String)
		if err != nil {
			warnings = append(warnings, &domain.EventWarning{Row: row, Kind: domain.EventParseWarning, Err: err})
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", s.table, err)
	}

	return records, warnings, nil
}
