package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/heatflux-movie/internal/render"
	"go.ngs.io/heatflux-movie/internal/video"
)

// Stats summarizes a finished run.
type Stats struct {
	Frames  int
	Elapsed time.Duration
}

// Sequencer renders the leading timepoints of a field into an encoder.
type Sequencer struct {
	Frames     *FrameBuilder
	Renderer   render.Renderer
	Encoder    video.Encoder
	Timepoints int // Number of leading timepoints; <= 0 renders all of them.
	Log        logrus.FieldLogger
}

// Run emits one frame per timepoint, in order. The encoder is closed before
// Run returns, also on failure. Cancelling ctx stops the run between frames.
func (s *Sequencer) Run(ctx context.Context) (stats Stats, err error) {
	log := s.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	start := time.Now()
	defer func() {
		if cerr := s.Encoder.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finalize output: %w", cerr)
		}
		stats.Elapsed = time.Since(start)
	}()

	available := len(s.Frames.Source.Times())
	n := s.Timepoints
	if n <= 0 || n > available {
		if n > available {
			log.WithFields(logrus.Fields{
				"requested": n,
				"available": available,
			}).Warn("fewer timepoints in dataset than requested")
		}
		n = available
	}

	for t := 0; t < n; t++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("render cancelled at timepoint %d: %w", t, err)
		}

		// Each frame's state is scoped to its iteration.
		state, err := s.Frames.Build(t)
		if err != nil {
			return stats, err
		}
		log.WithFields(logrus.Fields{
			"timepoint": t,
			"date":      state.Date,
			"points":    state.Surface.NumPoints(),
			"events":    state.Events.Len(),
		}).Info("rendering time point")

		img, err := s.Renderer.Render(&state.Scene)
		if err != nil {
			return stats, fmt.Errorf("failed to render timepoint %d: %w", t, err)
		}
		if err := s.Encoder.WriteFrame(img); err != nil {
			return stats, fmt.Errorf("failed to write frame %d: %w", t, err)
		}
		stats.Frames++
	}
	return stats, nil
}
