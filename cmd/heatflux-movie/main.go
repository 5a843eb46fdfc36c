// Package main provides the heatflux-movie command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.ngs.io/heatflux-movie/internal/config"
	httpHandler "go.ngs.io/heatflux-movie/internal/http"
	"go.ngs.io/heatflux-movie/internal/usecase"
)

const version = "0.1.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

func init() {
	Cfg = config.NewViper()
	err := config.AddFlags(Cfg, Root.PersistentFlags(), map[string]*pflag.FlagSet{
		config.ScopeRender: renderCmd.Flags(),
		config.ScopeServe:  serveCmd.Flags(),
	})
	if err != nil {
		panic(err)
	}

	Root.AddCommand(versionCmd)
	Root.AddCommand(renderCmd)
	Root.AddCommand(serveCmd)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "heatflux-movie",
	Short: "Render gridded heat-flux anomalies as an animated surface.",
	Long: `heatflux-movie reads a time x latitude x longitude field from a NetCDF file,
turns every timepoint into a height surface colored by value and writes the
frames to a video.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'HEATFLUX_var' where 'var'
is the name of the variable to be set.`,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return config.ReadFile(Cfg) },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("heatflux-movie v%s\n", version)
	},
	DisableAutoGenTag: true,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the leading timepoints into a video.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(Cfg)
		if err != nil {
			return err
		}
		if err := cfg.ValidateRender(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runRender(ctx, cfg, newLogger(cfg))
	},
	DisableAutoGenTag: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve single rendered frames over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(Cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, newLogger(cfg))
	},
	DisableAutoGenTag: true,
}

func main() {
	if err := Root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func runRender(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{
		"dataset_path":        cfg.DatasetPath,
		"output_path":         cfg.OutputPath,
		"n_timepoints":        cfg.Timepoints,
		"n_smooth_iterations": cfg.SmoothIterations,
		"event_table_path":    cfg.EventTablePath,
		"opacity":             cfg.Opacity,
		"framerate":           cfg.Framerate,
	}).Info("Starting render")

	frames, closeSource, err := newFrameBuilder(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	encoder, err := newEncoder(cfg)
	if err != nil {
		return err
	}

	seq := &usecase.Sequencer{
		Frames:     frames,
		Renderer:   renderer,
		Encoder:    encoder,
		Timepoints: cfg.Timepoints,
		Log:        log,
	}
	stats, err := seq.Run(ctx)
	if err != nil {
		return fmt.Errorf("render failed after %d frames: %w", stats.Frames, err)
	}

	log.WithFields(logrus.Fields{
		"frames":  stats.Frames,
		"elapsed": stats.Elapsed.Round(time.Millisecond).String(),
		"output":  cfg.OutputPath,
	}).Info("Render complete")
	return nil
}

func runServe(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	frames, closeSource, err := newFrameBuilder(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	router := httpHandler.SetupRouter(usecase.NewPreviewUseCase(frames, renderer), log)

	log.WithField("listen", cfg.Listen).Info("Preview server listening")
	log.Info("API endpoints: GET /health, /v1/dataset, /v1/frames/:timepoint, /v1/events/:timepoint")
	return runServer(ctx, cfg.Listen, router, log)
}
