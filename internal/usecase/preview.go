package usecase

import (
	"image"
	"sync"

	"go.ngs.io/heatflux-movie/internal/events"
	"go.ngs.io/heatflux-movie/internal/render"
)

// DatasetInfo summarizes the opened dataset.
type DatasetInfo struct {
	Variable   string     `json:"variable"`
	Times      []string   `json:"times"`
	Timepoints int        `json:"timepoints"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	LonRange   [2]float64 `json:"lon_range"`
	LatRange   [2]float64 `json:"lat_range"`
}

// PreviewUseCase renders single frames on demand.
// Dataset access is serialized since the NetCDF handle is not goroutine-safe.
type PreviewUseCase struct {
	mu       sync.Mutex
	frames   *FrameBuilder
	renderer render.Renderer
}

// NewPreviewUseCase creates a new preview use case.
func NewPreviewUseCase(frames *FrameBuilder, renderer render.Renderer) *PreviewUseCase {
	return &PreviewUseCase{
		frames:   frames,
		renderer: renderer,
	}
}

// Dataset returns the dataset summary.
func (uc *PreviewUseCase) Dataset() DatasetInfo {
	src := uc.frames.Source
	axes := src.Axes()
	times := src.Times()
	return DatasetInfo{
		Variable:   src.Variable(),
		Times:      times,
		Timepoints: len(times),
		Rows:       len(axes.Lat),
		Cols:       len(axes.Lon),
		LonRange:   [2]float64{axes.Lon[0], axes.Lon[len(axes.Lon)-1]},
		LatRange:   [2]float64{axes.Lat[0], axes.Lat[len(axes.Lat)-1]},
	}
}

// Frame renders timepoint t.
func (uc *PreviewUseCase) Frame(t int) (*FrameState, image.Image, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	state, err := uc.frames.Build(t)
	if err != nil {
		return nil, nil, err
	}
	img, err := uc.renderer.Render(&state.Scene)
	if err != nil {
		return nil, nil, err
	}
	return state, img, nil
}

// Events returns the annotations of timepoint t, which may be empty.
func (uc *PreviewUseCase) Events(t int) (*events.Annotations, error) {
	if n := len(uc.frames.Source.Times()); t < 0 || t >= n {
		return nil, ErrTimepointOutOfRange
	}
	a := uc.frames.Events.At(t)
	if a == nil {
		a = &events.Annotations{}
	}
	return a, nil
}
