package mesh

import (
	"math"

	"github.com/unixpickle/model3d/model3d"
)

// DefaultRelaxation is the relaxation factor used by Laplacian smoothing.
const DefaultRelaxation = 0.01

// cornerAngle is the boundary turn angle, in radians, above which a point is fixed.
var cornerAngle = 15 * math.Pi / 180

// Surface is a triangulated polygonal surface with a per-point Heat scalar.
type Surface struct {
	Points    []model3d.Coord3D
	Heat      []float64
	Triangles [][3]int
}

// ExtractSurface splits every quad cell of u into two triangles.
// Points and scalars are copied unchanged.
func ExtractSurface(u *Unstructured) *Surface {
	s := &Surface{
		Points:    append([]model3d.Coord3D(nil), u.Points...),
		Heat:      append([]float64(nil), u.Heat...),
		Triangles: make([][3]int, 0, 2*len(u.Cells)),
	}
	for _, c := range u.Cells {
		s.Triangles = append(s.Triangles,
			[3]int{c[0], c[1], c[2]},
			[3]int{c[0], c[2], c[3]},
		)
	}
	return s
}

// NumPoints returns the number of points.
func (s *Surface) NumPoints() int {
	return len(s.Points)
}

// Bounds returns the axis-aligned bounding box of the points.
func (s *Surface) Bounds() (minPt, maxPt model3d.Coord3D) {
	return bounds(s.Points)
}

// Triangle returns triangle i as model3d geometry.
func (s *Surface) Triangle(i int) *model3d.Triangle {
	t := s.Triangles[i]
	return &model3d.Triangle{s.Points[t[0]], s.Points[t[1]], s.Points[t[2]]}
}

// TriangleHeat returns the mean scalar over the corners of triangle i.
func (s *Surface) TriangleHeat(i int) float64 {
	t := s.Triangles[i]
	return (s.Heat[t[0]] + s.Heat[t[1]] + s.Heat[t[2]]) / 3
}

// Mesh returns the surface as a model3d mesh.
func (s *Surface) Mesh() *model3d.Mesh {
	tris := make([]*model3d.Triangle, len(s.Triangles))
	for i := range s.Triangles {
		tris[i] = s.Triangle(i)
	}
	return model3d.NewMeshTriangles(tris)
}

// Smooth extracts the surface of u and applies iterations passes of
// Laplacian relaxation. Boundary points only move along the boundary and
// boundary corners stay fixed.
// Scalars stay attached to their points.
func Smooth(u *Unstructured, iterations int, relaxation float64) *Surface {
	s := ExtractSurface(u)
	if iterations <= 0 || len(s.Points) == 0 {
		return s
	}

	neighbors := s.adjacency()
	cur := s.Points
	next := make([]model3d.Coord3D, len(cur))
	for it := 0; it < iterations; it++ {
		for i, p := range cur {
			ns := neighbors[i]
			if len(ns) == 0 {
				next[i] = p
				continue
			}
			var mean model3d.Coord3D
			for _, j := range ns {
				mean = mean.Add(cur[j])
			}
			mean = mean.Scale(1 / float64(len(ns)))
			next[i] = p.Add(mean.Sub(p).Scale(relaxation))
		}
		cur, next = next, cur
	}
	s.Points = cur
	return s
}

type edge struct{ a, b int }

func newEdge(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// adjacency returns the smoothing neighbors of each point. Interior points
// use every connected point, boundary points use their two boundary
// neighbors, and corners get none.
func (s *Surface) adjacency() [][]int {
	uses := map[edge]int{}
	var order []edge
	for _, t := range s.Triangles {
		for k := 0; k < 3; k++ {
			e := newEdge(t[k], t[(k+1)%3])
			if _, ok := uses[e]; !ok {
				order = append(order, e)
			}
			uses[e]++
		}
	}

	onBoundary := make([]bool, len(s.Points))
	for _, e := range order {
		if uses[e] == 1 {
			onBoundary[e.a] = true
			onBoundary[e.b] = true
		}
	}

	neighbors := make([][]int, len(s.Points))
	for _, e := range order {
		boundaryEdge := uses[e] == 1
		if !onBoundary[e.a] || boundaryEdge {
			neighbors[e.a] = append(neighbors[e.a], e.b)
		}
		if !onBoundary[e.b] || boundaryEdge {
			neighbors[e.b] = append(neighbors[e.b], e.a)
		}
	}

	for i, ns := range neighbors {
		if !onBoundary[i] {
			continue
		}
		if len(ns) != 2 || s.turnAngle(ns[0], i, ns[1]) > cornerAngle {
			neighbors[i] = nil
		}
	}
	return neighbors
}

// turnAngle returns the angle between segments a->p and p->b.
func (s *Surface) turnAngle(a, p, b int) float64 {
	in := s.Points[p].Sub(s.Points[a])
	out := s.Points[b].Sub(s.Points[p])
	denom := in.Norm() * out.Norm()
	if denom == 0 {
		return math.Pi
	}
	cos := math.Max(-1, math.Min(1, in.Dot(out)/denom))
	return math.Acos(cos)
}
