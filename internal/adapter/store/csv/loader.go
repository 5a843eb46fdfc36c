// Package csv provides CSV-based event table loading.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// EventStore reads event annotations from a delimited text file.
type EventStore struct {
	path  string
	comma rune
}

var _ store.EventLoader = (*EventStore)(nil)

// NewEventStore creates a new CSV-based event store.
// Files ending in .tsv are read tab-delimited.
func NewEventStore(path string) *EventStore {
	comma := ','
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		comma = '\t'
	}
	return &EventStore{path: path, comma: comma}
}

// Load reads every row of the table. Malformed rows become parse warnings.
func (s *EventStore) Load() ([]domain.EventRecord, []*domain.EventWarning, error) {
	//nolint:gosec // G304: File path comes from configuration.
	file, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event table %s: %w", s.path, err)
	}
	defer func() { _ = file.Close() }()

	return ReadEvents(file, s.comma)
}

// ReadEvents parses an event table with a header row naming the columns.
func ReadEvents(r io.Reader, comma rune) ([]domain.EventRecord, []*domain.EventWarning, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// Read header.
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Map required columns; extra columns are ignored.
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	idx := make([]int, len(domain.EventColumns))
	for i, name := range domain.EventColumns {
		col, ok := columns[name]
		if !ok {
			return nil, nil, fmt.Errorf("invalid CSV header: missing column %s (got %v)", name, header)
		}
		idx[i] = col
	}

	// Read data rows.
	records := make([]domain.EventRecord, 0)
	var warnings []*domain.EventWarning

	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				warnings = append(warnings, &domain.EventWarning{Row: row, Kind: domain.EventParseWarning, Err: err})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		cell := func(i int) string {
			if idx[i] >= len(record) {
				return ""
			}
			return record[idx[i]]
		}

		rec, err := domain.ParseEventRecord(row, cell(0), cell(1), cell(2), cell(3), cell(4))
		if err != nil {
			warnings = append(warnings, &domain.EventWarning{Row: row, Kind: domain.EventParseWarning, Err: err})
			continue
		}
		records = append(records, rec)
	}

	return records, warnings, nil
}
