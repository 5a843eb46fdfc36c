package usecase

import (
	"errors"
	"fmt"

	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/domain"
	"go.ngs.io/heatflux-movie/internal/events"
	"go.ngs.io/heatflux-movie/internal/mesh"
	"go.ngs.io/heatflux-movie/internal/render"
)

// ErrTimepointOutOfRange is returned for a timepoint outside the time axis.
var ErrTimepointOutOfRange = errors.New("timepoint out of range")

// FrameState is everything known about the frame being produced.
type FrameState struct {
	Index int    // Timepoint index.
	Date  string // YYYYMMDD.
	render.Scene
}

// FrameBuilder turns one timepoint of the field into a renderable frame.
type FrameBuilder struct {
	Source           store.FieldSource
	Mesh             *mesh.Builder
	Events           events.Index
	FillValue        float64
	SmoothIterations int
	Relaxation       float64
}

// Build reads timepoint t, builds and smooths its mesh, and attaches the
// date label and event annotations.
func (b *FrameBuilder) Build(t int) (*FrameState, error) {
	times := b.Source.Times()
	if t < 0 || t >= len(times) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrTimepointOutOfRange, t, len(times))
	}

	slice, err := b.Source.Slice(t)
	if err != nil {
		return nil, fmt.Errorf("failed to read timepoint %d: %w", t, err)
	}
	u, err := b.Mesh.Build(slice, b.FillValue)
	if err != nil {
		return nil, fmt.Errorf("failed to build mesh for timepoint %d (%s): %w", t, times[t], err)
	}

	relaxation := b.Relaxation
	if relaxation == 0 {
		relaxation = mesh.DefaultRelaxation
	}

	return &FrameState{
		Index: t,
		Date:  times[t],
		Scene: render.Scene{
			Label:   domain.FormatDate(times[t]),
			Surface: mesh.Smooth(u, b.SmoothIterations, relaxation),
			Events:  b.Events.At(t),
		},
	}, nil
}
