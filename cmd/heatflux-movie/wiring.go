package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/adapter/store/csv"
	"go.ngs.io/heatflux-movie/internal/adapter/store/heatflux"
	"go.ngs.io/heatflux-movie/internal/adapter/store/native"
	"go.ngs.io/heatflux-movie/internal/adapter/store/sqlite"
	"go.ngs.io/heatflux-movie/internal/config"
	"go.ngs.io/heatflux-movie/internal/events"
	"go.ngs.io/heatflux-movie/internal/mesh"
	"go.ngs.io/heatflux-movie/internal/render"
	"go.ngs.io/heatflux-movie/internal/usecase"
	"go.ngs.io/heatflux-movie/internal/video"
)

// openSource opens the dataset with the configured backend.
func openSource(cfg config.Config) (store.FieldSource, error) {
	switch cfg.Backend {
	case config.BackendNative:
		return native.Open(cfg.DatasetPath, cfg.Variable, cfg.FillValue)
	default:
		return heatflux.Open(cfg.DatasetPath, cfg.Variable, cfg.FillValue)
	}
}

// newEventLoader picks the event table reader from the file extension.
func newEventLoader(cfg config.Config) store.EventLoader {
	if sqlite.IsDatabase(cfg.EventTablePath) {
		return sqlite.NewEventStore(cfg.EventTablePath, cfg.EventsTable)
	}
	return csv.NewEventStore(cfg.EventTablePath)
}

// newFrameBuilder opens the dataset and indexes the event table.
// The returned function closes the dataset.
func newFrameBuilder(cfg config.Config, log *logrus.Logger) (*usecase.FrameBuilder, func(), error) {
	src, err := openSource(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeSource := func() {
		if err := src.Close(); err != nil {
			log.WithError(err).Warn("Failed to close dataset")
		}
	}

	log.WithFields(logrus.Fields{
		"variable":   src.Variable(),
		"timepoints": len(src.Times()),
		"rows":       len(src.Axes().Lat),
		"cols":       len(src.Axes().Lon),
		"backend":    cfg.Backend,
	}).Info("Dataset opened")

	var idx events.Index
	if cfg.EventsEnabled() {
		idx, err = usecase.LoadEvents(newEventLoader(cfg), src, events.Options{
			Height:        cfg.EventHeight,
			MaxDistanceKm: cfg.EventMaxDistance,
		}, log)
		if err != nil {
			closeSource()
			return nil, nil, err
		}
	}

	builder := mesh.NewBuilder(log)
	builder.MaxAttempts = cfg.MaxMeshAttempts

	return &usecase.FrameBuilder{
		Source:           src,
		Mesh:             builder,
		Events:           idx,
		FillValue:        cfg.FillValue,
		SmoothIterations: cfg.SmoothIterations,
		Relaxation:       mesh.DefaultRelaxation,
	}, closeSource, nil
}

func newRenderer(cfg config.Config) (*render.Raster, error) {
	return render.NewRaster(render.Options{
		Width:    cfg.Width,
		Height:   cfg.Height,
		ColorMap: cfg.ColorMap,
		ValueMin: cfg.ValueMin,
		ValueMax: cfg.ValueMax,
		Opacity:  cfg.Opacity,
	})
}

func newEncoder(cfg config.Config) (video.Encoder, error) {
	if cfg.Encoder == config.EncoderFrames {
		return video.NewFrames(cfg.OutputPath)
	}
	return video.NewFFmpeg(cfg.FFmpegPath, cfg.OutputPath, cfg.Framerate)
}

// runServer serves handler on addr until ctx is cancelled.
func runServer(ctx context.Context, addr string, handler http.Handler, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
