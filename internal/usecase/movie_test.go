package usecase

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"go.ngs.io/heatflux-movie/internal/adapter/grid"
	"go.ngs.io/heatflux-movie/internal/domain"
	"go.ngs.io/heatflux-movie/internal/events"
	"go.ngs.io/heatflux-movie/internal/mesh"
	"go.ngs.io/heatflux-movie/internal/render"
)

const testFill = -999.0

// fakeSource serves the same 4x4 slice with a valid 2x2 block at every timepoint.
type fakeSource struct {
	times  []string
	empty  map[int]bool
	reads  []int
	closed bool
}

func newFakeSource(times ...string) *fakeSource {
	return &fakeSource{times: times, empty: map[int]bool{}}
}

func (f *fakeSource) Variable() string { return "H" }
func (f *fakeSource) Times() []string  { return f.times }

func (f *fakeSource) Axes() grid.Axes {
	return grid.Axes{Lon: []float64{0, 1, 2, 3}, Lat: []float64{10, 11, 12, 13}}
}

func (f *fakeSource) Slice(t int) (*domain.Slice, error) {
	f.reads = append(f.reads, t)
	nan := math.NaN()
	values := []float64{
		nan, nan, nan, nan,
		nan, 10, 20, nan,
		nan, 30, 40, nan,
		nan, nan, nan, nan,
	}
	if f.empty[t] {
		for i := range values {
			values[i] = nan
		}
	}
	return domain.NewSlice(4, 4, values)
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeRenderer struct {
	scenes []render.Scene
}

func (r *fakeRenderer) Render(s *render.Scene) (image.Image, error) {
	r.scenes = append(r.scenes, *s)
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

type fakeEncoder struct {
	frames int
	closes int
}

func (e *fakeEncoder) WriteFrame(image.Image) error {
	e.frames++
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closes++
	return nil
}

func newSequencer(src *fakeSource, idx events.Index, n int) (*Sequencer, *fakeRenderer, *fakeEncoder) {
	r := &fakeRenderer{}
	enc := &fakeEncoder{}
	log, _ := test.NewNullLogger()
	return &Sequencer{
		Frames: &FrameBuilder{
			Source:    src,
			Mesh:      mesh.NewBuilder(log),
			Events:    idx,
			FillValue: testFill,
		},
		Renderer:   r,
		Encoder:    enc,
		Timepoints: n,
		Log:        log,
	}, r, enc
}

func TestSequencer_EndToEnd(t *testing.T) {
	src := newFakeSource("20010101", "20010102", "20010103")
	idx, warnings := events.Build([]domain.EventRecord{
		{Row: 1, FirstDate: "20010102", LastDate: "20010102", Longitude: 2, Latitude: 11, Text: "flood"},
	}, src.Times(), src.Axes(), events.DefaultOptions())
	if len(warnings) != 0 {
		t.Fatalf("Unexpected warnings: %v", warnings)
	}
	seq, r, enc := newSequencer(src, idx, 3)

	stats, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Frames != 3 || enc.frames != 3 {
		t.Fatalf("expected 3 frames, got stats=%d encoder=%d", stats.Frames, enc.frames)
	}
	if enc.closes != 1 {
		t.Errorf("expected encoder closed once, got %d", enc.closes)
	}
	wantLabels := []string{"01/01/2001", "02/01/2001", "03/01/2001"}
	for i, s := range r.scenes {
		if s.Surface == nil || s.Surface.NumPoints() == 0 {
			t.Errorf("frame %d: expected a non-empty surface", i)
		}
		if s.Label != wantLabels[i] {
			t.Errorf("frame %d: expected label %s, got %s", i, wantLabels[i], s.Label)
		}
	}
	if r.scenes[0].Events.Len() != 0 || r.scenes[1].Events.Len() != 1 || r.scenes[2].Events.Len() != 0 {
		t.Error("expected the event only on the second frame")
	}
	for i, tp := range src.reads {
		if tp != i {
			t.Errorf("expected timepoints read in order, got %v", src.reads)
			break
		}
	}
}

func TestSequencer_ClipsToAvailable(t *testing.T) {
	src := newFakeSource("20010101", "20010102")
	seq, _, enc := newSequencer(src, nil, 10)
	log, hook := test.NewNullLogger()
	seq.Log = log

	stats, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Frames != 2 || enc.frames != 2 {
		t.Errorf("expected 2 frames, got %d", stats.Frames)
	}

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning about clipped timepoints")
	}
}

func TestSequencer_ZeroRendersAll(t *testing.T) {
	src := newFakeSource("20010101", "20010102", "20010103")
	seq, _, enc := newSequencer(src, nil, 0)
	log, hook := test.NewNullLogger()
	seq.Log = log

	stats, err := seq.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Frames != 3 || enc.frames != 3 {
		t.Errorf("expected 3 frames, got %d", stats.Frames)
	}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			t.Errorf("unexpected warning: %s", e.Message)
		}
	}
}

func TestSequencer_EmptySliceAborts(t *testing.T) {
	src := newFakeSource("20010101", "20010102", "20010103")
	src.empty[1] = true
	seq, _, enc := newSequencer(src, nil, 3)

	stats, err := seq.Run(context.Background())
	if !errors.Is(err, domain.ErrEmptySlice) {
		t.Fatalf("expected ErrEmptySlice, got %v", err)
	}
	if stats.Frames != 1 {
		t.Errorf("expected 1 frame before abort, got %d", stats.Frames)
	}
	if enc.closes != 1 {
		t.Errorf("expected encoder closed once on failure, got %d", enc.closes)
	}
}

func TestSequencer_Cancelled(t *testing.T) {
	src := newFakeSource("20010101", "20010102")
	seq, _, enc := newSequencer(src, nil, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := seq.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if enc.frames != 0 || enc.closes != 1 {
		t.Errorf("expected no frames and one close, got frames=%d closes=%d", enc.frames, enc.closes)
	}
}

func TestFrameBuilder_OutOfRange(t *testing.T) {
	src := newFakeSource("20010101")
	seq, _, _ := newSequencer(src, nil, 1)
	if _, err := seq.Frames.Build(1); !errors.Is(err, ErrTimepointOutOfRange) {
		t.Errorf("expected ErrTimepointOutOfRange, got %v", err)
	}
}
