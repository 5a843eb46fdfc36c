// Package main writes a synthetic heat-flux anomaly dataset and event table.
package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"go.ngs.io/heatflux-movie/internal/adapter/store/heatflux"
	"go.ngs.io/heatflux-movie/internal/domain"
)

// Region defines the geographic bounds and resolution of the grid.
type Region struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// blob is a Gaussian anomaly drifting across the grid.
type blob struct {
	Lat, Lon     float64 // Position on day 0.
	DLat, DLon   float64 // Drift per day, degrees.
	Amplitude    float64 // W m-2, signed.
	Radius       float64 // degrees
	Label        string
	FirstDay     int
	DurationDays int
}

const fillValue = -999

func main() {
	outDir := flag.String("out", "./data", "Output directory")
	name := flag.String("name", "heatflux_anomaly.nc", "NetCDF file name")
	variable := flag.String("variable", heatflux.DefaultVariable, "Field variable name")
	start := flag.String("start", "20030601", "First date (YYYYMMDD)")
	days := flag.Int("days", 30, "Number of daily timepoints")
	latMin := flag.Float64("lat-min", 35.0, "Minimum latitude")
	latMax := flag.Float64("lat-max", 60.0, "Maximum latitude")
	lonMin := flag.Float64("lon-min", -10.0, "Minimum longitude")
	lonMax := flag.Float64("lon-max", 30.0, "Maximum longitude")
	resolution := flag.Float64("resolution", 0.25, "Grid resolution in degrees")
	border := flag.Int("mask-border", 3, "Width in cells of the masked border")
	cfTime := flag.Bool("cf-time", false, "Write time as CF 'days since' offsets instead of YYYYMMDD")
	flag.Parse()

	log := logrus.New()

	region := Region{
		LatMin:     *latMin,
		LatMax:     *latMax,
		LonMin:     *lonMin,
		LonMax:     *lonMax,
		Resolution: *resolution,
	}
	if region.LatMax <= region.LatMin || region.LonMax <= region.LonMin || region.Resolution <= 0 {
		log.Fatalf("Invalid region: %+v", region)
	}
	if *days <= 0 {
		log.Fatalf("days must be > 0, got %d", *days)
	}
	first, err := time.Parse(domain.DateLayout, *start)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	blobs := defaultBlobs(region)
	field := generateField(region, blobs, first, *days, *border, *cfTime)
	field.Variable = *variable

	ncPath := filepath.Join(*outDir, *name)
	if err := heatflux.WriteFile(ncPath, field); err != nil {
		log.Fatalf("Failed to write NetCDF: %v", err)
	}

	csvPath := filepath.Join(*outDir, "events.csv")
	if err := writeEvents(csvPath, blobs, first, *days); err != nil {
		log.Fatalf("Failed to write events: %v", err)
	}

	log.WithFields(logrus.Fields{
		"netcdf": ncPath,
		"events": csvPath,
		"rows":   len(field.Lat),
		"cols":   len(field.Lon),
		"days":   *days,
	}).Info("Generation complete")
}

// defaultBlobs places one warm and two cool anomalies inside the region.
func defaultBlobs(r Region) []blob {
	midLat := (r.LatMin + r.LatMax) / 2
	midLon := (r.LonMin + r.LonMax) / 2
	spanLat := r.LatMax - r.LatMin
	spanLon := r.LonMax - r.LonMin
	return []blob{
		{
			Lat: midLat - spanLat/6, Lon: r.LonMin + spanLon/4,
			DLat: spanLat / 120, DLon: spanLon / 60,
			Amplitude: 180, Radius: spanLat / 8,
			Label: "heat wave", FirstDay: 2, DurationDays: 6,
		},
		{
			Lat: midLat + spanLat/5, Lon: midLon + spanLon/5,
			DLat: -spanLat / 150, DLon: -spanLon / 90,
			Amplitude: -140, Radius: spanLat / 10,
			Label: "cold spell", FirstDay: 10, DurationDays: 4,
		},
		{
			Lat: midLat, Lon: midLon,
			Amplitude: -60, Radius: spanLat / 5,
			Label: "overcast", FirstDay: 0, DurationDays: 1,
		},
	}
}

// generateField samples the blobs on the grid, one slice per day.
func generateField(r Region, blobs []blob, first time.Time, days, border int, cfTime bool) *heatflux.Field {
	nLat := int((r.LatMax-r.LatMin)/r.Resolution) + 1
	nLon := int((r.LonMax-r.LonMin)/r.Resolution) + 1

	lat := make([]float64, nLat)
	for i := range lat {
		lat[i] = r.LatMin + float64(i)*r.Resolution
	}
	lon := make([]float64, nLon)
	for j := range lon {
		lon[j] = r.LonMin + float64(j)*r.Resolution
	}

	f := &heatflux.Field{
		Units:  "W m-2",
		Lat:    lat,
		Lon:    lon,
		Times:  make([]int32, days),
		Values: make([]float32, 0, days*nLat*nLon),
		Fill:   fillValue,
	}
	if cfTime {
		f.TimeUnits = "days since " + first.Format("2006-01-02")
	}

	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		if cfTime {
			f.Times[d] = int32(d)
		} else {
			v, _ := strconv.Atoi(date.Format(domain.DateLayout))
			f.Times[d] = int32(v)
		}

		for i := 0; i < nLat; i++ {
			for j := 0; j < nLon; j++ {
				if i < border || j < border || i >= nLat-border || j >= nLon-border {
					f.Values = append(f.Values, fillValue)
					continue
				}
				v := 15 * math.Sin(lat[i]*math.Pi/7+float64(d)/5) * math.Cos(lon[j]*math.Pi/11)
				for _, b := range blobs {
					cLat := b.Lat + b.DLat*float64(d)
					cLon := b.Lon + b.DLon*float64(d)
					dist2 := (lat[i]-cLat)*(lat[i]-cLat) + (lon[j]-cLon)*(lon[j]-cLon)
					v += b.Amplitude * math.Exp(-dist2/(2*b.Radius*b.Radius))
				}
				f.Values = append(f.Values, float32(v))
			}
		}
	}
	return f
}

// writeEvents writes one row per blob, clipped to the generated date range.
func writeEvents(path string, blobs []blob, first time.Time, days int) error {
	//nolint:gosec // G304: path is built from the output directory flag
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create events file: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"first_date", "last_date", "latitude", "longitude", "text"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, b := range blobs {
		if b.FirstDay >= days {
			continue
		}
		last := min(b.FirstDay+b.DurationDays-1, days-1)
		mid := float64(b.FirstDay+last) / 2
		row := []string{
			first.AddDate(0, 0, b.FirstDay).Format(domain.DateLayout),
			first.AddDate(0, 0, last).Format(domain.DateLayout),
			strconv.FormatFloat(b.Lat+b.DLat*mid, 'f', 3, 64),
			strconv.FormatFloat(b.Lon+b.DLon*mid, 'f', 3, 64),
			b.Label,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}
	return file.Close()
}
