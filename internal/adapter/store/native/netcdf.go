// Package native reads gridded heat-flux time series with a pure-Go NetCDF decoder.
// It needs no libnetcdf and serves builds without cgo.
package native

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"go.ngs.io/heatflux-movie/internal/adapter/grid"
	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// Dataset retrieves field slices from a NetCDF file one timepoint at a time.
type Dataset struct {
	nc       api.Group
	field    api.VarGetter
	name     string
	times    []string
	axes     grid.Axes
	lonFirst bool // Field is stored as (time, lon, lat).

	fills  []float64 // File fill attribute and configured sentinel.
	scale  float64
	offset float64
}

var _ store.FieldSource = (*Dataset)(nil)

// Open opens a NetCDF (classic or HDF5-based) file.
// When variable is empty or absent, the only 3D variable is used.
// sentinel is masked as in heatflux.Open.
func Open(path, variable string, sentinel float64) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	d, err := newDataset(nc, variable, sentinel)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return d, nil
}

func newDataset(nc api.Group, variable string, sentinel float64) (*Dataset, error) {
	d := &Dataset{nc: nc, scale: 1, fills: []float64{sentinel}}

	lat, err := axisValues(nc, store.LatVarNames)
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v): %w", store.LatVarNames, err)
	}
	lon, err := axisValues(nc, store.LonVarNames)
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v): %w", store.LonVarNames, err)
	}
	d.axes = grid.Axes{Lon: lon, Lat: lat}
	if err := d.axes.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coordinate axes: %w", err)
	}

	var timeVar api.VarGetter
	for _, name := range store.TimeVarNames {
		if vg, err := nc.GetVarGetter(name); err == nil {
			timeVar = vg
			break
		}
	}
	if timeVar == nil {
		return nil, fmt.Errorf("time variable not found (tried: %v)", store.TimeVarNames)
	}
	raw, err := timeVar.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read time axis: %w", err)
	}
	rawTimes, err := toFloat64s(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read time axis: %w", err)
	}
	units, _ := textAttr(timeVar.Attributes(), "units")
	if d.times, err = domain.DecodeTimeAxis(rawTimes, units); err != nil {
		return nil, fmt.Errorf("failed to decode time axis: %w", err)
	}

	if d.field, d.name, err = findField(nc, variable); err != nil {
		return nil, err
	}
	shape := d.field.Shape()
	nTime, nLat, nLon := int64(len(d.times)), int64(len(lat)), int64(len(lon))
	if shape[0] != nTime {
		return nil, fmt.Errorf("variable %s has %d timepoints, time axis has %d", d.name, shape[0], nTime)
	}
	switch {
	case shape[1] == nLat && shape[2] == nLon:
	case shape[1] == nLon && shape[2] == nLat:
		d.lonFirst = true
	default:
		return nil, fmt.Errorf("dimension mismatch: %s is %v, expected [%d, %d, %d]",
			d.name, shape, nTime, nLat, nLon)
	}

	attrs := d.field.Attributes()
	for _, key := range []string{"_FillValue", "missing_value"} {
		if fv, ok := floatAttr(attrs, key); ok {
			d.fills = append(d.fills, fv)
			break
		}
	}
	if v, ok := floatAttr(attrs, "scale_factor"); ok {
		d.scale = v
	}
	if v, ok := floatAttr(attrs, "add_offset"); ok {
		d.offset = v
	}

	return d, nil
}

func findField(nc api.Group, variable string) (api.VarGetter, string, error) {
	if variable != "" {
		if vg, err := nc.GetVarGetter(variable); err == nil {
			if n := len(vg.Shape()); n != 3 {
				return nil, "", fmt.Errorf("variable %s must be 3D (time, lat, lon), got %dD", variable, n)
			}
			return vg, variable, nil
		}
	}

	var candidates []string
	var found api.VarGetter
	for _, name := range nc.ListVariables() {
		vg, err := nc.GetVarGetter(name)
		if err != nil || len(vg.Shape()) != 3 {
			continue
		}
		candidates = append(candidates, name)
		found = vg
	}
	switch len(candidates) {
	case 0:
		return nil, "", fmt.Errorf("no 3D variable found (requested %q)", variable)
	case 1:
		return found, candidates[0], nil
	default:
		return nil, "", fmt.Errorf("variable %q not found and several 3D variables exist: %s",
			variable, strings.Join(candidates, ", "))
	}
}

func axisValues(nc api.Group, names []string) ([]float64, error) {
	var lastErr error = fmt.Errorf("no candidate variable present")
	for _, name := range names {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			continue
		}
		v, err := vg.Values()
		if err != nil {
			lastErr = err
			continue
		}
		out, err := toFloat64s(v)
		if err != nil {
			lastErr = err
			continue
		}
		return out, nil
	}
	return nil, lastErr
}

// Variable returns the field variable name.
func (d *Dataset) Variable() string {
	return d.name
}

// Times returns the YYYYMMDD time axis.
func (d *Dataset) Times() []string {
	return d.times
}

// Axes returns the coordinate axes.
func (d *Dataset) Axes() grid.Axes {
	return d.axes
}

// Slice reads timepoint t as a masked (lat, lon) slice.
func (d *Dataset) Slice(t int) (*domain.Slice, error) {
	if t < 0 || t >= len(d.times) {
		return nil, fmt.Errorf("timepoint %d out of range [0, %d)", t, len(d.times))
	}
	v, err := d.field.GetSlice(int64(t), int64(t)+1)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at timepoint %d: %w", d.name, t, err)
	}
	values, err := firstPlane(v)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at timepoint %d: %w", d.name, t, err)
	}

	nLat, nLon := len(d.axes.Lat), len(d.axes.Lon)
	if d.lonFirst {
		values = store.TransposeFlat(values, nLon, nLat)
	}

	s, err := domain.NewSlice(nLat, nLon, values, d.fills...)
	if err != nil {
		return nil, err
	}
	if d.scale != 1 || d.offset != 0 {
		for i, ok := range s.Valid {
			if ok {
				s.Values[i] = s.Values[i]*d.scale + d.offset
			}
		}
	}
	return s, nil
}

// Close closes the file.
func (d *Dataset) Close() error {
	d.nc.Close()
	return nil
}

type number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func flatten[T number](planes [][][]T) []float64 {
	if len(planes) == 0 {
		return nil
	}
	var out []float64
	for _, row := range planes[0] {
		out = append(out, widen(row)...)
	}
	return out
}

func toFloat64s(v interface{}) ([]float64, error) {
	switch data := v.(type) {
	case []float64:
		return data, nil
	case []float32:
		return widen(data), nil
	case []int64:
		return widen(data), nil
	case []int32:
		return widen(data), nil
	case []int16:
		return widen(data), nil
	case []int8:
		return widen(data), nil
	case []uint32:
		return widen(data), nil
	case []uint16:
		return widen(data), nil
	default:
		return nil, fmt.Errorf("unsupported 1D value type %T", v)
	}
}

func firstPlane(v interface{}) ([]float64, error) {
	switch data := v.(type) {
	case [][][]float64:
		return flatten(data), nil
	case [][][]float32:
		return flatten(data), nil
	case [][][]int32:
		return flatten(data), nil
	case [][][]int16:
		return flatten(data), nil
	case [][][]int8:
		return flatten(data), nil
	case [][][]int64:
		return flatten(data), nil
	default:
		return nil, fmt.Errorf("unsupported 3D value type %T", v)
	}
}

func floatAttr(attrs api.AttributeMap, key string) (float64, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch a := v.(type) {
	case float64:
		return a, true
	case float32:
		return float64(a), true
	case int32:
		return float64(a), true
	case int16:
		return float64(a), true
	case int64:
		return float64(a), true
	}
	if vals, err := toFloat64s(v); err == nil && len(vals) > 0 {
		return vals[0], true
	}
	return 0, false
}

func textAttr(attrs api.AttributeMap, key string) (string, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
