package usecase

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"go.ngs.io/heatflux-movie/internal/domain"
	"go.ngs.io/heatflux-movie/internal/events"
)

type fakeLoader struct {
	records  []domain.EventRecord
	warnings []*domain.EventWarning
	err      error
}

func (l *fakeLoader) Load() ([]domain.EventRecord, []*domain.EventWarning, error) {
	return l.records, l.warnings, l.err
}

func TestLoadEvents(t *testing.T) {
	src := newFakeSource("20010101", "20010102")
	loader := &fakeLoader{
		records: []domain.EventRecord{
			{Row: 1, FirstDate: "20010101", LastDate: "20010102", Longitude: 1, Latitude: 12, Text: "heat wave"},
			{Row: 3, FirstDate: "20020101", LastDate: "20020101", Text: "unknown"},
		},
		warnings: []*domain.EventWarning{
			{Row: 2, Kind: domain.EventParseWarning, Err: errors.New("bad latitude")},
		},
	}
	log, hook := test.NewNullLogger()

	idx, err := LoadEvents(loader, src, events.DefaultOptions(), log)
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if idx.At(0).Len() != 1 || idx.At(1).Len() != 1 {
		t.Errorf("expected one marker on both timepoints, got %v", idx)
	}
	if p := idx.At(0).Points[0]; p.X != 1 || p.Y != 2 {
		t.Errorf("expected marker at node (1, 2), got %v", p)
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Data["row"] != nil {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("expected 2 logged row warnings, got %d", warnings)
	}
}

func TestLoadEvents_TableError(t *testing.T) {
	log, _ := test.NewNullLogger()
	loader := &fakeLoader{err: errors.New("no such file")}
	if _, err := LoadEvents(loader, newFakeSource("20010101"), events.DefaultOptions(), log); err == nil {
		t.Error("expected error for unreadable table")
	}
}

func TestPreviewUseCase(t *testing.T) {
	src := newFakeSource("20010101", "20010102")
	seq, r, _ := newSequencer(src, events.Index{1: {Labels: []string{"x"}}}, 0)
	uc := NewPreviewUseCase(seq.Frames, r)

	info := uc.Dataset()
	if info.Timepoints != 2 || info.Rows != 4 || info.Cols != 4 || info.Variable != "H" {
		t.Errorf("unexpected dataset info: %+v", info)
	}
	if info.LatRange != [2]float64{10, 13} {
		t.Errorf("unexpected latitude range: %v", info.LatRange)
	}

	state, img, err := uc.Frame(1)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if img == nil || state.Label != "02/01/2001" {
		t.Errorf("unexpected frame: label=%q img=%v", state.Label, img)
	}
	if _, _, err := uc.Frame(5); !errors.Is(err, ErrTimepointOutOfRange) {
		t.Errorf("expected ErrTimepointOutOfRange, got %v", err)
	}

	a, err := uc.Events(0)
	if err != nil || a.Len() != 0 {
		t.Errorf("expected empty annotations, got %v (err=%v)", a, err)
	}
	if _, err := uc.Events(-1); !errors.Is(err, ErrTimepointOutOfRange) {
		t.Errorf("expected ErrTimepointOutOfRange, got %v", err)
	}
}
