// Package grid provides coordinate-axis lookups for gridded fields.
package grid

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// Axes holds the longitude and latitude coordinates of a regular grid.
type Axes struct {
	Lon []float64 // Longitudes, one per column.
	Lat []float64 // Latitudes, one per row.
}

// Validate checks that both axes are non-empty and strictly monotonic.
// Decreasing axes are allowed since many products store latitude north to south.
func (a *Axes) Validate() error {
	if len(a.Lon) == 0 {
		return fmt.Errorf("longitude axis is empty")
	}
	if len(a.Lat) == 0 {
		return fmt.Errorf("latitude axis is empty")
	}
	if !monotonic(a.Lon) {
		return fmt.Errorf("longitude coordinates must be strictly monotonic")
	}
	if !monotonic(a.Lat) {
		return fmt.Errorf("latitude coordinates must be strictly monotonic")
	}
	return nil
}

func monotonic(v []float64) bool {
	if len(v) < 2 {
		return true
	}
	increasing := v[1] > v[0]
	for i := 1; i < len(v); i++ {
		if increasing && v[i] <= v[i-1] {
			return false
		}
		if !increasing && v[i] >= v[i-1] {
			return false
		}
	}
	return true
}

// NearestIndex returns the index of the axis value closest to v.
// There is no distance limit: values outside the axis map to the nearest edge.
// Ties resolve to the lowest index.
func NearestIndex(axis []float64, v float64) int {
	best := -1
	bestDiff := math.Inf(1)
	for i, a := range axis {
		if d := math.Abs(a - v); d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best
}

// Nearest returns the column and row indices of the grid node closest to (lon, lat),
// searching each axis independently. lon is first put on the axis convention.
func (a *Axes) Nearest(lon, lat float64) (col, row int) {
	return NearestIndex(a.Lon, NormalizeLon(a.Lon, lon)), NearestIndex(a.Lat, lat)
}

// lonAxisWraps reports whether the axis uses the [0, 360) convention.
func lonAxisWraps(lons []float64) bool {
	if len(lons) == 0 {
		return false
	}
	minVal := lons[0]
	maxVal := lons[len(lons)-1]
	if minVal > maxVal {
		minVal, maxVal = maxVal, minVal
	}
	return minVal >= 0 && maxVal > 180
}

// NormalizeLon maps lon into [0, 360) when the axis uses that convention
// and returns it unchanged otherwise.
func NormalizeLon(lons []float64, lon float64) float64 {
	if !lonAxisWraps(lons) {
		return lon
	}
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// Node returns the coordinates of grid node (col, row).
func (a *Axes) Node(col, row int) (lon, lat float64) {
	return a.Lon[col], a.Lat[row]
}

// DistanceKm returns the great-circle distance between two points in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}
