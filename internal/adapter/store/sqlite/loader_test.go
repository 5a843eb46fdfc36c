package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"go.ngs.io/heatflux-movie/internal/domain"
)

func createEventsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE events (first_date TEXT, last_date TEXT, latitude REAL, longitude REAL, text TEXT)`,
		`INSERT INTO events VALUES ('20010101', '20010102', 5.0, 10.0, 'flood')`,
		`INSERT INTO events VALUES (20010102, 20010103, 6.5, 11.0, 'fire')`,
		`INSERT INTO events VALUES ('bad', '20010103', 6.5, 11.0, 'broken')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestEventStore_Load(t *testing.T) {
	path := createEventsDB(t)

	records, warnings, err := NewEventStore(path, "").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "flood" || records[0].FirstDate != "20010101" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	// Integer dates are accepted.
	if records[1].FirstDate != "20010102" || records[1].Latitude != 6.5 {
		t.Errorf("unexpected second record: %+v", records[1])
	}

	if len(warnings) != 1 || warnings[0].Row != 3 || warnings[0].Kind != domain.EventParseWarning {
		t.Errorf("expected one parse warning for row 3, got %v", warnings)
	}
}

func TestEventStore_InvalidTable(t *testing.T) {
	path := createEventsDB(t)
	if _, _, err := NewEventStore(path, "events; DROP TABLE events").Load(); err == nil {
		t.Error("expected error for invalid table name")
	}
	if _, _, err := NewEventStore(path, "missing").Load(); err == nil {
		t.Error("expected error for missing table")
	}
}

func TestIsDatabase(t *testing.T) {
	if !IsDatabase("events.SQLite") || !IsDatabase("/tmp/e.db") {
		t.Error("expected database extensions to be detected")
	}
	if IsDatabase("events.csv") {
		t.Error("expected csv not to be detected as database")
	}
}
