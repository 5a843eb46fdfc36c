package domain

import (
	"fmt"
	"math"
)

// Slice is one timepoint of the gridded field: a rows x cols array with a validity mask.
type Slice struct {
	Rows   int       // Number of latitude rows.
	Cols   int       // Number of longitude columns.
	Values []float64 // Row-major values; masked cells hold arbitrary data.
	Valid  []bool    // Valid[i] is false for missing cells.
}

// NewSlice builds a slice from row-major values, masking NaNs and cells equal
// to any of fills. NaN fills are ignored.
func NewSlice(rows, cols int, values []float64, fills ...float64) (*Slice, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid slice shape %dx%d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("slice has %d values, expected %d", len(values), rows*cols)
	}

	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = !math.IsNaN(v) && !isFill(v, fills)
	}

	return &Slice{Rows: rows, Cols: cols, Values: values, Valid: valid}, nil
}

func isFill(v float64, fills []float64) bool {
	for _, f := range fills {
		if v == f {
			return true
		}
	}
	return false
}

// At returns the value at (row, col) and whether it is valid.
func (s *Slice) At(row, col int) (float64, bool) {
	i := row*s.Cols + col
	return s.Values[i], s.Valid[i]
}

// Min returns the minimum valid value. ok is false when every cell is masked.
func (s *Slice) Min() (minVal float64, ok bool) {
	for i, v := range s.Values {
		if !s.Valid[i] {
			continue
		}
		if !ok || v < minVal {
			minVal = v
			ok = true
		}
	}
	return minVal, ok
}

// ValidCount returns the number of unmasked cells.
func (s *Slice) ValidCount() int {
	n := 0
	for _, ok := range s.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Filled returns a rows x cols copy with every masked cell replaced by fill.
func (s *Slice) Filled(fill float64) [][]float64 {
	out := make([][]float64, s.Rows)
	for r := 0; r < s.Rows; r++ {
		row := make([]float64, s.Cols)
		for c := 0; c < s.Cols; c++ {
			if v, ok := s.At(r, c); ok {
				row[c] = v
			} else {
				row[c] = fill
			}
		}
		out[r] = row
	}
	return out
}
