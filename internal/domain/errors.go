package domain

import (
	"errors"
	"fmt"
)

// ErrEmptySlice is returned when a timepoint slice has no valid cells.
var ErrEmptySlice = errors.New("slice has no valid data")

// MeshConstructionError is returned when no acceptable mesh was produced within
// the attempt budget. The run has to be restarted.
type MeshConstructionError struct {
	Attempts int
	Err      error // Last rejection reason.
}

func (e *MeshConstructionError) Error() string {
	return fmt.Sprintf("mesh construction failed after %d attempts (rerun required): %v", e.Attempts, e.Err)
}

func (e *MeshConstructionError) Unwrap() error {
	return e.Err
}
