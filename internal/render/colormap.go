// Package render draws frame scenes into raster images.
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// DefaultColorMap is the diverging map used when none is configured.
const DefaultColorMap = "seismic"

var colorMaps = map[string]func() palette.ColorMap{
	"seismic":   func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"blackbody": moreland.ExtendedBlackBody,
	"kindlmann": moreland.ExtendedKindlmann,
}

// ColorMapNames returns the supported color map names.
func ColorMapNames() []string {
	names := make([]string, 0, len(colorMaps))
	for name := range colorMaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewColorMap returns the named color map spanning [lo, hi].
func NewColorMap(name string, lo, hi float64) (palette.ColorMap, error) {
	if name == "" {
		name = DefaultColorMap
	}
	ctor, ok := colorMaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown color map %q (supported: %v)", name, ColorMapNames())
	}
	if !(lo < hi) {
		return nil, fmt.Errorf("invalid color range [%g, %g]", lo, hi)
	}
	cm := ctor()
	cm.SetMax(hi)
	cm.SetMin(lo)
	return cm, nil
}

// clampedColor looks v up in cm, clamping out-of-range values to the ends.
func clampedColor(cm palette.ColorMap, v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, fmt.Errorf("cannot color NaN")
	}
	v = math.Max(cm.Min(), math.Min(cm.Max(), v))
	c, err := cm.At(v)
	if err != nil {
		return nil, fmt.Errorf("failed to look up color for %g: %w", v, err)
	}
	return c, nil
}
