package mesh

import (
	"errors"
	"math"
	"testing"

	"go.ngs.io/heatflux-movie/internal/domain"
)

const testFill = -999.0

// blockSlice returns a 4x4 slice whose only valid cells are the central 2x2 block.
func blockSlice(t *testing.T) *domain.Slice {
	t.Helper()
	nan := math.NaN()
	values := []float64{
		nan, nan, nan, nan,
		nan, 10, 20, nan,
		nan, 30, 40, nan,
		nan, nan, nan, nan,
	}
	s, err := domain.NewSlice(4, 4, values)
	if err != nil {
		t.Fatalf("Failed to create slice: %v", err)
	}
	return s
}

// TestBuild_SentinelBorder tests a slice whose missing cells hold the fill
// sentinel instead of NaN.
func TestBuild_SentinelBorder(t *testing.T) {
	f := testFill
	values := []float64{
		f, f, f, f,
		f, 10, 20, f,
		f, 30, 40, f,
		f, f, f, f,
	}
	s, err := domain.NewSlice(4, 4, values, testFill)
	if err != nil {
		t.Fatalf("Failed to create slice: %v", err)
	}

	conv := &countingConverter{}
	b := NewBuilder(nil)
	b.Converter = conv
	u, err := b.Build(s, testFill)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if conv.calls != 1 {
		t.Errorf("expected 1 converter call, got %d", conv.calls)
	}
	if u.NumPoints() != 4 || len(u.Cells) != 1 {
		t.Errorf("expected the 2x2 block, got %d points and %d cells", u.NumPoints(), len(u.Cells))
	}
}

type countingConverter struct {
	calls  int
	failN  int // Calls returning a degenerate grid before delegating.
	hard   error
	inner  DEMConverter
	filled [][]float64
}

func (c *countingConverter) Convert(dem [][]float64) (*StructuredGrid, error) {
	c.calls++
	c.filled = dem
	if c.hard != nil {
		return nil, c.hard
	}
	if c.calls <= c.failN {
		degenerate := make([][]float64, len(dem))
		for r, row := range dem {
			degenerate[r] = make([]float64, len(row))
			for i := range degenerate[r] {
				degenerate[r][i] = testFill
			}
		}
		return c.inner.Convert(degenerate)
	}
	return c.inner.Convert(dem)
}

func TestBuild_ValidBlock(t *testing.T) {
	b := NewBuilder(nil)
	u, err := b.Build(blockSlice(t), testFill)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if u.NumPoints() != 4 {
		t.Errorf("expected 4 points, got %d", u.NumPoints())
	}
	if len(u.Cells) != 1 {
		t.Errorf("expected 1 cell, got %d", len(u.Cells))
	}
	minPt, maxPt := u.Bounds()
	if minPt.Z != 10 || maxPt.Z != 40 {
		t.Errorf("expected z bounds [10, 40], got [%v, %v]", minPt.Z, maxPt.Z)
	}
	if minPt.X != 1 || minPt.Y != 1 || maxPt.X != 2 || maxPt.Y != 2 {
		t.Errorf("unexpected xy bounds: %v %v", minPt, maxPt)
	}
	for i, p := range u.Points {
		if p.Z != u.Heat[i] {
			t.Errorf("point %d: expected Heat %v to equal z, got %v", i, p.Z, u.Heat[i])
		}
	}
}

func TestBuild_RetriesUntilAccepted(t *testing.T) {
	conv := &countingConverter{failN: 3}
	b := &Builder{Converter: conv, MaxAttempts: 20}

	u, err := b.Build(blockSlice(t), testFill)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if conv.calls != 4 {
		t.Errorf("expected 4 converter calls, got %d", conv.calls)
	}
	if u.NumPoints() == 0 {
		t.Error("expected a non-empty mesh")
	}
}

func TestBuild_GivesUpAtCap(t *testing.T) {
	conv := &countingConverter{failN: math.MaxInt}
	b := &Builder{Converter: conv, MaxAttempts: DefaultMaxAttempts}

	_, err := b.Build(blockSlice(t), testFill)
	var mce *domain.MeshConstructionError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MeshConstructionError, got %v", err)
	}
	if mce.Attempts != DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, mce.Attempts)
	}
	if conv.calls != DefaultMaxAttempts {
		t.Errorf("expected %d converter calls, got %d", DefaultMaxAttempts, conv.calls)
	}
}

func TestBuild_MinEqualsFillRejected(t *testing.T) {
	// Fill above the threshold floor keeps masked cells; min z is then the fill.
	values := []float64{5.5, 6, math.NaN(), 7}
	s, err := domain.NewSlice(2, 2, values)
	if err != nil {
		t.Fatalf("Failed to create slice: %v", err)
	}
	conv := &countingConverter{}
	b := &Builder{Converter: conv, MaxAttempts: 5}

	_, err = b.Build(s, 5)
	var mce *domain.MeshConstructionError
	if !errors.As(err, &mce) {
		t.Fatalf("expected MeshConstructionError, got %v", err)
	}
	if conv.calls != 5 {
		t.Errorf("expected 5 converter calls, got %d", conv.calls)
	}
	if conv.filled[1][0] != 5 {
		t.Errorf("expected masked cell filled with 5, got %v", conv.filled[1][0])
	}
}

func TestBuild_EmptySlice(t *testing.T) {
	s, err := domain.NewSlice(2, 2, []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()})
	if err != nil {
		t.Fatalf("Failed to create slice: %v", err)
	}
	conv := &countingConverter{}
	b := &Builder{Converter: conv}

	_, err = b.Build(s, testFill)
	if !errors.Is(err, domain.ErrEmptySlice) {
		t.Errorf("expected ErrEmptySlice, got %v", err)
	}
	if conv.calls != 0 {
		t.Errorf("expected no converter calls, got %d", conv.calls)
	}
}

func TestBuild_ConverterFailureIsPermanent(t *testing.T) {
	hard := errors.New("boom")
	conv := &countingConverter{hard: hard}
	b := &Builder{Converter: conv, MaxAttempts: 20}

	_, err := b.Build(blockSlice(t), testFill)
	if !errors.Is(err, hard) {
		t.Fatalf("expected converter error, got %v", err)
	}
	var mce *domain.MeshConstructionError
	if errors.As(err, &mce) {
		t.Error("converter failure should not be reported as MeshConstructionError")
	}
	if conv.calls != 1 {
		t.Errorf("expected 1 converter call, got %d", conv.calls)
	}
}

func TestThreshold_Floor(t *testing.T) {
	g, err := DEMConverter{}.Convert([][]float64{
		{0, 0, 0},
		{0, 0, -5},
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	u := Threshold(g, -2)
	if len(u.Cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(u.Cells))
	}
	if u.NumPoints() != 4 {
		t.Errorf("expected 4 points, got %d", u.NumPoints())
	}
	for _, p := range u.Points {
		if p.X > 1 {
			t.Errorf("unexpected point from dropped cell: %v", p)
		}
	}

	if all := Threshold(g, -10); len(all.Cells) != 2 || all.NumPoints() != 6 {
		t.Errorf("expected 2 cells and 6 points, got %d and %d", len(all.Cells), all.NumPoints())
	}
}

func TestDEMConverter_RaggedRows(t *testing.T) {
	if _, err := (DEMConverter{}).Convert([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected error for ragged rows")
	}
}
