// Package events maps event-table rows onto the frames they cover.
package events

import (
	"fmt"

	"github.com/unixpickle/model3d/model3d"

	"go.ngs.io/heatflux-movie/internal/adapter/grid"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// DefaultHeight is the z coordinate of event markers.
const DefaultHeight = 150.0

// Annotations are the markers drawn on one frame. Points[i] is labelled Labels[i].
type Annotations struct {
	Points []model3d.Coord3D
	Labels []string
}

// Len returns the number of markers.
func (a *Annotations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Points)
}

// Index maps a timepoint index to its annotations. It is read-only once built.
type Index map[int]*Annotations

// At returns the annotations for timepoint t, or nil.
func (idx Index) At(t int) *Annotations {
	return idx[t]
}

// Options controls marker placement.
type Options struct {
	Height        float64 // Marker z.
	MaxDistanceKm float64 // Warn when the nearest grid node is farther; 0 disables.
}

// DefaultOptions returns markers at DefaultHeight with the distance check off.
func DefaultOptions() Options {
	return Options{Height: DefaultHeight}
}

// Build places every record on the frames between its first and last date.
// Rows whose dates are not on the time axis are skipped with a lookup warning.
// Entries are appended in record order, each record chronologically.
func Build(records []domain.EventRecord, times []string, axes grid.Axes, opts Options) (Index, []*domain.EventWarning) {
	position := make(map[string]int, len(times))
	for i, t := range times {
		if _, ok := position[t]; !ok {
			position[t] = i
		}
	}

	idx := Index{}
	var warnings []*domain.EventWarning
	for _, rec := range records {
		first, ok := position[rec.FirstDate]
		if !ok {
			warnings = append(warnings, lookupWarning(rec, fmt.Errorf("first_date %s is not on the time axis", rec.FirstDate)))
			continue
		}
		last, ok := position[rec.LastDate]
		if !ok {
			warnings = append(warnings, lookupWarning(rec, fmt.Errorf("last_date %s is not on the time axis", rec.LastDate)))
			continue
		}
		if first > last {
			warnings = append(warnings, lookupWarning(rec, fmt.Errorf("first_date %s is after last_date %s", rec.FirstDate, rec.LastDate)))
			continue
		}

		col, row := axes.Nearest(rec.Longitude, rec.Latitude)
		if col < 0 || row < 0 {
			warnings = append(warnings, lookupWarning(rec, fmt.Errorf("grid axes are empty")))
			continue
		}
		if opts.MaxDistanceKm > 0 {
			lon, lat := axes.Node(col, row)
			if d := grid.DistanceKm(rec.Latitude, rec.Longitude, lat, lon); d > opts.MaxDistanceKm {
				warnings = append(warnings, &domain.EventWarning{
					Row:  rec.Row,
					Kind: domain.EventDistanceWarning,
					Err:  fmt.Errorf("nearest grid node is %.1f km away (limit %.1f km)", d, opts.MaxDistanceKm),
				})
			}
		}

		p := model3d.XYZ(float64(col), float64(row), opts.Height)
		for t := first; t <= last; t++ {
			a := idx[t]
			if a == nil {
				a = &Annotations{}
				idx[t] = a
			}
			a.Points = append(a.Points, p)
			a.Labels = append(a.Labels, rec.Text)
		}
	}
	return idx, warnings
}

func lookupWarning(rec domain.EventRecord, err error) *domain.EventWarning {
	return &domain.EventWarning{Row: rec.Row, Kind: domain.EventLookupAmbiguity, Err: err}
}
