// Package mesh converts masked field slices into renderable height surfaces.
package mesh

import (
	"fmt"
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// ScalarName is the name of the per-point scalar carried through the pipeline.
const ScalarName = "Heat"

// StructuredGrid is a height field with one point per input cell.
// Points[r*Cols+c] is (c, r, value).
type StructuredGrid struct {
	Rows, Cols int
	Points     []model3d.Coord3D
	Heat       []float64
}

// Converter turns a filled 2D array into a structured height grid.
type Converter interface {
	Convert(dem [][]float64) (*StructuredGrid, error)
}

// DEMConverter maps grid cell (row, col) to the point (col, row, value).
type DEMConverter struct{}

// Convert builds the structured grid for dem.
func (DEMConverter) Convert(dem [][]float64) (*StructuredGrid, error) {
	rows := len(dem)
	if rows == 0 {
		return nil, fmt.Errorf("empty elevation array")
	}
	cols := len(dem[0])
	if cols == 0 {
		return nil, fmt.Errorf("empty elevation row")
	}

	g := &StructuredGrid{
		Rows:   rows,
		Cols:   cols,
		Points: make([]model3d.Coord3D, 0, rows*cols),
		Heat:   make([]float64, 0, rows*cols),
	}
	for r, row := range dem {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d values, expected %d", r, len(row), cols)
		}
		for c, v := range row {
			g.Points = append(g.Points, model3d.XYZ(float64(c), float64(r), v))
			g.Heat = append(g.Heat, v)
		}
	}
	return g, nil
}

// Unstructured is the thresholded grid: the kept quad cells and the points they use.
type Unstructured struct {
	Points []model3d.Coord3D
	Heat   []float64
	Cells  [][4]int // Counter-clockwise quads indexing Points.
}

// NumPoints returns the number of points.
func (u *Unstructured) NumPoints() int {
	return len(u.Points)
}

// Bounds returns the axis-aligned bounding box of the points.
// An empty grid reports NaN bounds.
func (u *Unstructured) Bounds() (minPt, maxPt model3d.Coord3D) {
	return bounds(u.Points)
}

func bounds(points []model3d.Coord3D) (minPt, maxPt model3d.Coord3D) {
	if len(points) == 0 {
		nan := math.NaN()
		return model3d.XYZ(nan, nan, nan), model3d.XYZ(nan, nan, nan)
	}
	minPt, maxPt = points[0], points[0]
	for _, p := range points[1:] {
		minPt = minPt.Min(p)
		maxPt = maxPt.Max(p)
	}
	return minPt, maxPt
}

// Threshold keeps the cells whose every corner has a scalar >= lower.
// Points not used by a kept cell are dropped; the rest keep their grid order.
func Threshold(g *StructuredGrid, lower float64) *Unstructured {
	var kept [][4]int
	used := make([]bool, len(g.Points))
	for r := 0; r+1 < g.Rows; r++ {
		for c := 0; c+1 < g.Cols; c++ {
			cell := [4]int{
				r*g.Cols + c,
				r*g.Cols + c + 1,
				(r+1)*g.Cols + c + 1,
				(r+1)*g.Cols + c,
			}
			keep := true
			for _, i := range cell {
				if g.Heat[i] < lower {
					keep = false
					break
				}
			}
			if !keep {
				continue
			}
			for _, i := range cell {
				used[i] = true
			}
			kept = append(kept, cell)
		}
	}

	u := &Unstructured{}
	remap := make([]int, len(g.Points))
	for i, ok := range used {
		if !ok {
			continue
		}
		remap[i] = len(u.Points)
		u.Points = append(u.Points, g.Points[i])
		u.Heat = append(u.Heat, g.Heat[i])
	}
	u.Cells = make([][4]int, len(kept))
	for n, cell := range kept {
		for k, i := range cell {
			u.Cells[n][k] = remap[i]
		}
	}
	return u
}
