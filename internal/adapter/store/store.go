package store

import (
	"go.ngs.io/heatflux-movie/internal/adapter/grid"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// FieldSource is the interface for reading a time series of 2D field slices.
type FieldSource interface {
	// Variable returns the name of the field variable being read.
	Variable() string

	// Times returns the time axis as YYYYMMDD strings, one per timepoint.
	Times() []string

	// Axes returns the longitude and latitude coordinates.
	Axes() grid.Axes

	// Slice reads the masked 2D slice of timepoint t.
	Slice(t int) (*domain.Slice, error)

	// Close releases the underlying file handle.
	Close() error
}

// EventLoader is the interface for reading the event annotation table.
type EventLoader interface {
	// Load returns the well-formed rows in table order, plus one warning per
	// malformed row. An error means the table itself could not be read.
	Load() ([]domain.EventRecord, []*domain.EventWarning, error)
}

// Default coordinate variable names, tried in order.
var (
	TimeVarNames = []string{"time", "t"}
	LatVarNames  = []string{"latitude", "lat", "y"}
	LonVarNames  = []string{"longitude", "lon", "x"}
)

// TransposeFlat transposes a row-major rows x cols array into cols x rows.
func TransposeFlat(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = data[r*cols+c]
		}
	}
	return out
}
