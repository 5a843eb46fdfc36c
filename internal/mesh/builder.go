package mesh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"go.ngs.io/heatflux-movie/internal/domain"
)

// DefaultMaxAttempts is the retry cap for one slice.
const DefaultMaxAttempts = 20

// ThresholdMargin is subtracted from floor(min) to get the threshold floor.
const ThresholdMargin = 2

var errDegenerate = errors.New("degenerate mesh")

// Builder turns masked slices into thresholded meshes.
type Builder struct {
	Converter   Converter
	MaxAttempts int
	Log         logrus.FieldLogger
}

// NewBuilder returns a Builder using the DEM converter and the default cap.
func NewBuilder(log logrus.FieldLogger) *Builder {
	return &Builder{
		Converter:   DEMConverter{},
		MaxAttempts: DefaultMaxAttempts,
		Log:         log,
	}
}

// Build converts s into a non-empty mesh whose minimum z differs from fill.
// Degenerate results are retried up to MaxAttempts times in total.
func (b *Builder) Build(s *domain.Slice, fill float64) (*Unstructured, error) {
	minVal, ok := s.Min()
	if !ok {
		return nil, domain.ErrEmptySlice
	}
	lower := math.Floor(minVal) - ThresholdMargin
	dem := s.Filled(fill)

	maxAttempts := b.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	conv := b.Converter
	if conv == nil {
		conv = DEMConverter{}
	}
	log := b.logger()

	var (
		attempts  int
		permanent bool
		result    *Unstructured
	)
	op := func() error {
		attempts++
		g, err := conv.Convert(dem)
		if err != nil {
			permanent = true
			return backoff.Permanent(fmt.Errorf("failed to convert slice to grid: %w", err))
		}
		u := Threshold(g, lower)
		if u.NumPoints() == 0 {
			return fmt.Errorf("%w: no points above %g", errDegenerate, lower)
		}
		if minPt, _ := u.Bounds(); minPt.Z == fill {
			return fmt.Errorf("%w: minimum z equals fill value %g", errDegenerate, fill)
		}
		result = u
		return nil
	}
	notify := func(err error, _ time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt":      attempts,
			"max_attempts": maxAttempts,
		}).WithError(err).Warn("mesh rejected, retrying")
	}

	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(maxAttempts-1))
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if permanent {
			return nil, err
		}
		return nil, &domain.MeshConstructionError{Attempts: attempts, Err: err}
	}
	if attempts > 1 {
		log.WithField("attempts", attempts).Info("mesh accepted after retry")
	}
	return result, nil
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log != nil {
		return b.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
