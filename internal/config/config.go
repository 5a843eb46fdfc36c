// Package config declares the command-line options and resolves them into
// a validated run configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "HEATFLUX"

// Backends, encoders and the disabled event table marker.
const (
	BackendCgo    = "cgo"
	BackendNative = "native"
	EncoderFFmpeg = "ffmpeg"
	EncoderFrames = "frames"
	NoEventTable  = "none"
)

// Command scopes an option is registered on. An option without scopes is a
// persistent flag of the root command.
const (
	ScopeRender = "render"
	ScopeServe  = "serve"
)

// Option is one configuration variable.
type Option struct {
	Name, Usage, Shorthand string
	Default                interface{}
	Scopes                 []string
}

// Options are the configuration variables available to the commands.
var Options = []Option{
	{
		Name:  "config",
		Usage: "config specifies the path to a configuration file (TOML, YAML or JSON).",
	},
	{
		Name:      "dataset_path",
		Shorthand: "d",
		Usage:     "dataset_path is the NetCDF file holding the time x lat x lon field.",
	},
	{
		Name:    "variable",
		Usage:   "variable is the 3D field to render. Empty auto-detects it.",
		Default: "",
	},
	{
		Name:    "backend",
		Usage:   "backend selects the NetCDF reader: cgo (libnetcdf) or native (pure Go).",
		Default: BackendCgo,
	},
	{
		Name:    "fill_value",
		Usage:   "fill_value is the missing-data sentinel: dataset cells equal to it are masked, and masked cells are replaced by it before meshing.",
		Default: -999.0,
	},
	{
		Name:    "event_table_path",
		Usage:   "event_table_path is a CSV/TSV or SQLite event table, or \"none\".",
		Default: NoEventTable,
	},
	{
		Name:    "events_sqlite_table",
		Usage:   "events_sqlite_table is the table read from a SQLite event file.",
		Default: "events",
	},
	{
		Name:    "event_height",
		Usage:   "event_height is the z coordinate of event markers.",
		Default: 150.0,
	},
	{
		Name:    "event_max_distance_km",
		Usage:   "event_max_distance_km warns about events farther than this from their grid node. 0 disables the check.",
		Default: 0.0,
	},
	{
		Name:    "n_smooth_iterations",
		Usage:   "n_smooth_iterations is the number of Laplacian smoothing passes.",
		Default: 0,
	},
	{
		Name:    "max_mesh_attempts",
		Usage:   "max_mesh_attempts caps the mesh construction attempts per timepoint.",
		Default: 20,
	},
	{
		Name:    "opacity",
		Usage:   "opacity of the surface, in (0, 1].",
		Default: 1.0,
	},
	{
		Name:    "color_map",
		Usage:   "color_map is one of seismic, blackbody, kindlmann.",
		Default: "seismic",
	},
	{
		Name:    "value_min",
		Usage:   "value_min is the lower end of the color range.",
		Default: -200.0,
	},
	{
		Name:    "value_max",
		Usage:   "value_max is the upper end of the color range.",
		Default: 200.0,
	},
	{
		Name:    "width",
		Usage:   "width of the frames in pixels.",
		Default: 1920,
	},
	{
		Name:    "height",
		Usage:   "height of the frames in pixels.",
		Default: 1080,
	},
	{
		Name:    "log_level",
		Usage:   "log_level is one of debug, info, warn, error.",
		Default: "info",
	},
	{
		Name:      "output_path",
		Shorthand: "o",
		Usage:     "output_path is the MP4 file, or the directory for the frames encoder.",
		Default:   "output.mp4",
		Scopes:    []string{ScopeRender},
	},
	{
		Name:      "n_timepoints",
		Shorthand: "n",
		Usage:     "n_timepoints is the number of leading timepoints to render; 0 renders all of them.",
		Default:   10,
		Scopes:    []string{ScopeRender},
	},
	{
		Name:    "framerate",
		Usage:   "framerate of the output video in frames per second.",
		Default: 5,
		Scopes:  []string{ScopeRender},
	},
	{
		Name:    "encoder",
		Usage:   "encoder is ffmpeg (MP4) or frames (numbered PNG files).",
		Default: EncoderFFmpeg,
		Scopes:  []string{ScopeRender},
	},
	{
		Name:    "ffmpeg_path",
		Usage:   "ffmpeg_path is the ffmpeg binary. Empty searches PATH.",
		Default: "",
		Scopes:  []string{ScopeRender},
	},
	{
		Name:    "listen",
		Usage:   "listen is the address of the preview server.",
		Default: ":8080",
		Scopes:  []string{ScopeServe},
	},
}

// NewViper returns a viper instance reading HEATFLUX_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// AddFlags declares every option on the flag set of its scope and binds it
// into v. root receives the unscoped options.
func AddFlags(v *viper.Viper, root *pflag.FlagSet, scoped map[string]*pflag.FlagSet) error {
	for _, o := range Options {
		sets := []*pflag.FlagSet{root}
		if len(o.Scopes) > 0 {
			sets = sets[:0]
			for _, s := range o.Scopes {
				set, ok := scoped[s]
				if !ok {
					return fmt.Errorf("no flag set for scope %q of option %s", s, o.Name)
				}
				sets = append(sets, set)
			}
		}
		for _, set := range sets {
			if err := addFlag(set, o); err != nil {
				return err
			}
			if err := v.BindPFlag(o.Name, set.Lookup(o.Name)); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", o.Name, err)
			}
		}
	}
	return nil
}

func addFlag(set *pflag.FlagSet, o Option) error {
	switch d := o.Default.(type) {
	case nil:
		set.StringP(o.Name, o.Shorthand, "", o.Usage)
	case string:
		set.StringP(o.Name, o.Shorthand, d, o.Usage)
	case int:
		set.IntP(o.Name, o.Shorthand, d, o.Usage)
	case float64:
		set.Float64P(o.Name, o.Shorthand, d, o.Usage)
	case bool:
		set.BoolP(o.Name, o.Shorthand, d, o.Usage)
	default:
		return fmt.Errorf("invalid default type %T for option %s", o.Default, o.Name)
	}
	return nil
}

// SetDefaults registers the option defaults on v without flags.
func SetDefaults(v *viper.Viper) {
	for _, o := range Options {
		if o.Default != nil {
			v.SetDefault(o.Name, o.Default)
		}
	}
}

// ReadFile loads the file named by the "config" option, if any.
func ReadFile(v *viper.Viper) error {
	path := v.GetString("config")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}
	return nil
}

// Config is the resolved, validated configuration of one run.
type Config struct {
	DatasetPath      string
	Variable         string
	Backend          string
	FillValue        float64
	EventTablePath   string
	EventsTable      string
	EventHeight      float64
	EventMaxDistance float64
	SmoothIterations int
	MaxMeshAttempts  int
	Opacity          float64
	ColorMap         string
	ValueMin         float64
	ValueMax         float64
	Width            int
	Height           int
	LogLevel         logrus.Level
	OutputPath       string
	Timepoints       int
	Framerate        int
	Encoder          string
	FFmpegPath       string
	Listen           string
}

// EventsEnabled reports whether an event table was configured.
func (c Config) EventsEnabled() bool {
	p := strings.TrimSpace(c.EventTablePath)
	return p != "" && !strings.EqualFold(p, NoEventTable)
}

// Load resolves v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		DatasetPath:      v.GetString("dataset_path"),
		Variable:         v.GetString("variable"),
		Backend:          strings.ToLower(v.GetString("backend")),
		FillValue:        v.GetFloat64("fill_value"),
		EventTablePath:   v.GetString("event_table_path"),
		EventsTable:      v.GetString("events_sqlite_table"),
		EventHeight:      v.GetFloat64("event_height"),
		EventMaxDistance: v.GetFloat64("event_max_distance_km"),
		SmoothIterations: v.GetInt("n_smooth_iterations"),
		MaxMeshAttempts:  v.GetInt("max_mesh_attempts"),
		Opacity:          v.GetFloat64("opacity"),
		ColorMap:         v.GetString("color_map"),
		ValueMin:         v.GetFloat64("value_min"),
		ValueMax:         v.GetFloat64("value_max"),
		Width:            v.GetInt("width"),
		Height:           v.GetInt("height"),
		OutputPath:       v.GetString("output_path"),
		Timepoints:       v.GetInt("n_timepoints"),
		Framerate:        v.GetInt("framerate"),
		Encoder:          strings.ToLower(v.GetString("encoder")),
		FFmpegPath:       v.GetString("ffmpeg_path"),
		Listen:           v.GetString("listen"),
	}

	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return c, fmt.Errorf("invalid log_level: %w", err)
	}
	c.LogLevel = level

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks value ranges shared by every command.
func (c Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("dataset_path is required")
	}
	switch c.Backend {
	case BackendCgo, BackendNative:
	default:
		return fmt.Errorf("invalid backend %q (expected %s or %s)", c.Backend, BackendCgo, BackendNative)
	}
	switch c.Encoder {
	case "", EncoderFFmpeg, EncoderFrames:
	default:
		return fmt.Errorf("invalid encoder %q (expected %s or %s)", c.Encoder, EncoderFFmpeg, EncoderFrames)
	}
	if c.Opacity <= 0 || c.Opacity > 1 {
		return fmt.Errorf("opacity %g out of range (0, 1]", c.Opacity)
	}
	if c.SmoothIterations < 0 {
		return fmt.Errorf("n_smooth_iterations must be >= 0, got %d", c.SmoothIterations)
	}
	if c.MaxMeshAttempts <= 0 {
		return fmt.Errorf("max_mesh_attempts must be > 0, got %d", c.MaxMeshAttempts)
	}
	if c.Timepoints < 0 {
		return fmt.Errorf("n_timepoints must be >= 0, got %d", c.Timepoints)
	}
	if c.Framerate < 0 {
		return fmt.Errorf("framerate must be >= 0, got %d", c.Framerate)
	}
	if c.ValueMin >= c.ValueMax {
		return fmt.Errorf("value_min %g must be below value_max %g", c.ValueMin, c.ValueMax)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.EventMaxDistance < 0 {
		return fmt.Errorf("event_max_distance_km must be >= 0, got %g", c.EventMaxDistance)
	}
	return nil
}

// ValidateRender checks the options only the render command needs.
func (c Config) ValidateRender() error {
	if c.Framerate <= 0 {
		return fmt.Errorf("framerate must be > 0, got %d", c.Framerate)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	return nil
}
