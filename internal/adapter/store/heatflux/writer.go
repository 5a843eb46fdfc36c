package heatflux

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// Field describes a (time, lat, lon) field to be written to a NetCDF file.
type Field struct {
	Variable  string
	Units     string    // Units of the field, e.g. "W m-2".
	Times     []int32   // YYYYMMDD date integers, or offsets when TimeUnits is set.
	TimeUnits string    // Optional CF units such as "days since 2001-01-01".
	Lon       []float64 // Longitude axis.
	Lat       []float64 // Latitude axis.
	Values    []float32 // Row-major [time][lat][lon] values, [time][lon][lat] when LonFirst.
	Fill      float32   // Written as _FillValue.
	OmitFill  bool      // Leave out _FillValue; missing cells are plain sentinels.
	LonFirst  bool      // Store the field as (time, longitude, latitude).
}

// WriteFile writes f as a classic NetCDF file, replacing any existing file.
func WriteFile(path string, f *Field) error {
	want := len(f.Times) * len(f.Lat) * len(f.Lon)
	if len(f.Values) != want {
		return fmt.Errorf("field has %d values, expected %d", len(f.Values), want)
	}

	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	timeDim, err := nc.AddDim("time", uint64(len(f.Times)))
	if err != nil {
		return fmt.Errorf("failed to add time dimension: %w", err)
	}
	latDim, err := nc.AddDim("latitude", uint64(len(f.Lat)))
	if err != nil {
		return fmt.Errorf("failed to add latitude dimension: %w", err)
	}
	lonDim, err := nc.AddDim("longitude", uint64(len(f.Lon)))
	if err != nil {
		return fmt.Errorf("failed to add longitude dimension: %w", err)
	}

	timeVar, err := nc.AddVar("time", netcdf.INT, []netcdf.Dim{timeDim})
	if err != nil {
		return fmt.Errorf("failed to add time variable: %w", err)
	}
	latVar, err := nc.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return fmt.Errorf("failed to add latitude variable: %w", err)
	}
	lonVar, err := nc.AddVar("longitude", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return fmt.Errorf("failed to add longitude variable: %w", err)
	}
	fieldDims := []netcdf.Dim{timeDim, latDim, lonDim}
	if f.LonFirst {
		fieldDims = []netcdf.Dim{timeDim, lonDim, latDim}
	}
	fieldVar, err := nc.AddVar(f.Variable, netcdf.FLOAT, fieldDims)
	if err != nil {
		return fmt.Errorf("failed to add %s variable: %w", f.Variable, err)
	}

	// Attributes.
	if f.TimeUnits != "" {
		if err := timeVar.Attr("units").WriteBytes([]byte(f.TimeUnits)); err != nil {
			return fmt.Errorf("failed to write time units: %w", err)
		}
	}
	if err := latVar.Attr("units").WriteBytes([]byte("degrees_north")); err != nil {
		return fmt.Errorf("failed to write latitude units: %w", err)
	}
	if err := lonVar.Attr("units").WriteBytes([]byte("degrees_east")); err != nil {
		return fmt.Errorf("failed to write longitude units: %w", err)
	}
	if !f.OmitFill {
		if err := fieldVar.Attr("_FillValue").WriteFloat32s([]float32{f.Fill}); err != nil {
			return fmt.Errorf("failed to write _FillValue: %w", err)
		}
	}
	if f.Units != "" {
		if err := fieldVar.Attr("units").WriteBytes([]byte(f.Units)); err != nil {
			return fmt.Errorf("failed to write field units: %w", err)
		}
	}

	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	// Data.
	if err := timeVar.WriteInt32s(f.Times); err != nil {
		return fmt.Errorf("failed to write time: %w", err)
	}
	if err := latVar.WriteFloat64s(f.Lat); err != nil {
		return fmt.Errorf("failed to write latitude: %w", err)
	}
	if err := lonVar.WriteFloat64s(f.Lon); err != nil {
		return fmt.Errorf("failed to write longitude: %w", err)
	}
	if err := fieldVar.WriteFloat32s(f.Values); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Variable, err)
	}

	return nil
}
