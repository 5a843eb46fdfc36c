// Package heatflux provides access to gridded heat-flux time series stored in NetCDF files.
package heatflux

import (
	"fmt"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/heatflux-movie/internal/adapter/grid"
	"go.ngs.io/heatflux-movie/internal/adapter/store"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// DefaultVariable is the heat-flux variable name of the HOLAPS anomaly products.
const DefaultVariable = "surface_upward_sensible_heat_flux"

// Dataset is an open NetCDF file exposing one 3D (time, lat, lon) field.
type Dataset struct {
	nc       netcdf.Dataset
	field    netcdf.Var
	name     string
	times    []string
	axes     grid.Axes
	lonFirst bool // Field is stored as (time, lon, lat).

	fills  []float64 // File fill attribute and configured sentinel.
	scale  float64
	offset float64
}

var _ store.FieldSource = (*Dataset)(nil)

// Open opens a NetCDF file and locates the field variable.
// When variable is empty or absent from the file, the only 3D variable is used.
// Cells equal to sentinel are masked along with the file's _FillValue or
// missing_value; a NaN sentinel masks only those.
func Open(path, variable string, sentinel float64) (*Dataset, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}

	d, err := newDataset(nc, variable, sentinel)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	return d, nil
}

func newDataset(nc netcdf.Dataset, variable string, sentinel float64) (*Dataset, error) {
	d := &Dataset{nc: nc, scale: 1, fills: []float64{sentinel}}

	// Read coordinate axes.
	lat, err := readAxis(nc, store.LatVarNames)
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v): %w", store.LatVarNames, err)
	}
	lon, err := readAxis(nc, store.LonVarNames)
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v): %w", store.LonVarNames, err)
	}
	d.axes = grid.Axes{Lon: lon, Lat: lat}
	if err := d.axes.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coordinate axes: %w", err)
	}

	// Read time axis.
	var timeVar netcdf.Var
	var timeFound bool
	for _, name := range store.TimeVarNames {
		if v, err := nc.Var(name); err == nil {
			timeVar = v
			timeFound = true
			break
		}
	}
	if !timeFound {
		return nil, fmt.Errorf("time variable not found (tried: %v)", store.TimeVarNames)
	}
	rawTimes, err := readFloat64Var(timeVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read time axis: %w", err)
	}
	d.times, err = domain.DecodeTimeAxis(rawTimes, getTextAttr(timeVar, "units"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode time axis: %w", err)
	}

	// Locate the field.
	d.field, d.name, err = findField(nc, variable)
	if err != nil {
		return nil, err
	}

	dims, err := d.field.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	lens := make([]uint64, len(dims))
	for i, dim := range dims {
		if lens[i], err = dim.Len(); err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
	}

	nTime, nLat, nLon := uint64(len(d.times)), uint64(len(lat)), uint64(len(lon))
	if lens[0] != nTime {
		return nil, fmt.Errorf("variable %s has %d timepoints, time axis has %d", d.name, lens[0], nTime)
	}
	switch {
	case lens[1] == nLat && lens[2] == nLon:
		// Data is [time, lat, lon].
	case lens[1] == nLon && lens[2] == nLat:
		// Data is [time, lon, lat] - transpose on read.
		d.lonFirst = true
	default:
		return nil, fmt.Errorf("dimension mismatch: %s is [%d, %d, %d], expected [%d, %d, %d]",
			d.name, lens[0], lens[1], lens[2], nTime, nLat, nLon)
	}

	if fv, ok := getFillValue(d.field); ok {
		d.fills = append(d.fills, fv)
	}
	if v, ok := getFloatAttr(d.field, "scale_factor"); ok {
		d.scale = v
	}
	if v, ok := getFloatAttr(d.field, "add_offset"); ok {
		d.offset = v
	}

	return d, nil
}

// findField returns the requested variable, or the single 3D variable of the file.
func findField(nc netcdf.Dataset, variable string) (netcdf.Var, string, error) {
	if variable != "" {
		if v, err := nc.Var(variable); err == nil {
			dims, err := v.Dims()
			if err != nil {
				return netcdf.Var{}, "", fmt.Errorf("failed to get dimensions of %s: %w", variable, err)
			}
			if len(dims) != 3 {
				return netcdf.Var{}, "", fmt.Errorf("variable %s must be 3D (time, lat, lon), got %dD", variable, len(dims))
			}
			return v, variable, nil
		}
	}

	n, err := nc.NVars()
	if err != nil {
		return netcdf.Var{}, "", fmt.Errorf("failed to count variables: %w", err)
	}
	var candidates []string
	var found netcdf.Var
	for i := 0; i < n; i++ {
		v := nc.VarN(i)
		dims, err := v.Dims()
		if err != nil || len(dims) != 3 {
			continue
		}
		name, err := v.Name()
		if err != nil {
			continue
		}
		candidates = append(candidates, name)
		found = v
	}

	switch len(candidates) {
	case 0:
		return netcdf.Var{}, "", fmt.Errorf("no 3D variable found (requested %q)", variable)
	case 1:
		return found, candidates[0], nil
	default:
		return netcdf.Var{}, "", fmt.Errorf("variable %q not found and several 3D variables exist: %s",
			variable, strings.Join(candidates, ", "))
	}
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

	nLat, nLon := len(d.axes.Lat), len(d.axes.Lon)
	start := []uint64{uint64(t), 0, 0}
	count := []uint64{1, uint64(nLat), uint64(nLon)}
	if d.lonFirst {
		count = []uint64{1, uint64(nLon), uint64(nLat)}
	}

	raw, err := read3DSlice(d.field, start, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at timepoint %d: %w", d.name, t, err)
	}
	if d.lonFirst {
		raw = store.TransposeFlat(raw, nLon, nLat)
	}

	s, err := domain.NewSlice(nLat, nLon, raw, d.fills...)
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

// Close closes the NetCDF file.
func (d *Dataset) Close() error {
	return d.nc.Close()
}

// readAxis reads the first 1D coordinate variable found among names.
func readAxis(nc netcdf.Dataset, names []string) ([]float64, error) {
	var lastErr error = fmt.Errorf("no candidate variable present")
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		data, err := readFloat64Var(v)
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, lastErr
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := getFloatAttr(v, name); ok {
			return fv, true
		}
	}
	return 0, false
}

// getFloatAttr reads a numeric scalar attribute as float64.
func getFloatAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if err := a.ReadFloat64s(buf); err == nil {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := a.ReadFloat32s(buf); err == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if err := a.ReadInt32s(buf); err == nil {
			return float64(buf[0]), true
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := a.ReadInt16s(buf); err == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT64:
		buf := make([]int64, n)
		if err := a.ReadInt64s(buf); err == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

// getTextAttr reads a character attribute, returning "" when absent.
func getTextAttr(v netcdf.Var, name string) string {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	if t, err := a.Type(); err != nil || t != netcdf.CHAR {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

// readFloat64Var reads a 1D variable as float64.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}

	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return read3DSlice(v, []uint64{0}, []uint64{length})
}

// read3DSlice reads a hyperslab of any numeric variable and converts it to float64.
func read3DSlice(v netcdf.Var, start, count []uint64) ([]float64, error) {
	total := uint64(1)
	for _, c := range count {
		total *= c
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64Slice(data, start, count); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	case netcdf.INT64:
		tmp := make([]int64, total)
		if err := v.ReadInt64Slice(tmp, start, count); err != nil {
			return nil, err
		}
		return widen(tmp), nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

func widen[T int16 | int32 | int64 | float32](in []T) []float64 {
	out := make([]float64, len(in))
	for i, val := range in {
		out[i] = float64(val)
	}
	return out
}
