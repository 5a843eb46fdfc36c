package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"go.ngs.io/heatflux-movie/internal/events"
	"go.ngs.io/heatflux-movie/internal/mesh"
)

// Scene is everything drawn on one frame.
type Scene struct {
	Label   string              // Date label, upper right.
	Surface *mesh.Surface       // Height surface colored by Heat.
	Events  *events.Annotations // Optional markers.
}

// Renderer draws a scene into an image.
type Renderer interface {
	Render(s *Scene) (image.Image, error)
}

// Options configures the raster renderer.
type Options struct {
	Width, Height      int
	ColorMap           string
	ValueMin, ValueMax float64
	Opacity            float64
}

// DefaultOptions returns the standard frame settings.
func DefaultOptions() Options {
	return Options{
		Width:    1920,
		Height:   1080,
		ColorMap: DefaultColorMap,
		ValueMin: -200,
		ValueMax: 200,
		Opacity:  1,
	}
}

// Layout fractions of the frame height.
const (
	marginFrac   = 0.03
	colorBarFrac = 0.09
	labelFrac    = 0.035
	markerFrac   = 0.018
	eventFrac    = 0.02
)

// pointsPerInch makes one canvas point one pixel.
const pointsPerInch = 72

// reliefScale flattens heights before computing normals for shading.
const reliefScale = 0.1

var (
	labelColor  = color.NRGBA{B: 255, A: 255}
	markerColor = color.NRGBA{G: 176, A: 255}
	boxColor    = color.NRGBA{A: 255}
	lightDir    = model3d.XYZ(0.4, 0.4, 1).Normalize()
)

// Raster renders scenes with a top-down orthographic camera onto a gonum
// image canvas.
type Raster struct {
	opts Options
	cmap palette.ColorMap
}

// NewRaster validates opts and returns a renderer.
func NewRaster(opts Options) (*Raster, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.Opacity <= 0 || opts.Opacity > 1 {
		return nil, fmt.Errorf("opacity %g out of range (0, 1]", opts.Opacity)
	}
	cm, err := NewColorMap(opts.ColorMap, opts.ValueMin, opts.ValueMax)
	if err != nil {
		return nil, err
	}
	return &Raster{opts: opts, cmap: cm}, nil
}

// Render draws s on a white canvas.
func (r *Raster) Render(s *Scene) (image.Image, error) {
	if s == nil || s.Surface == nil {
		return nil, fmt.Errorf("scene has no surface")
	}

	w := vg.Length(r.opts.Width)
	h := vg.Length(r.opts.Height)
	c := vgimg.NewWith(
		vgimg.UseWH(w, h),
		vgimg.UseDPI(pointsPerInch),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(c)

	margin := h * marginFrac
	barHeight := h * colorBarFrac
	area := vg.Rectangle{
		Min: vg.Point{X: margin, Y: margin + barHeight + margin},
		Max: vg.Point{X: w - margin, Y: h - margin - h*labelFrac*2},
	}
	proj, ok := fit(s.Surface, area)
	if ok {
		if err := r.drawSurface(dc, s.Surface, proj); err != nil {
			return nil, err
		}
		if s.Events.Len() > 0 {
			r.drawEvents(dc, s.Events, proj, h)
		}
	}

	r.drawColorBar(draw.Crop(dc, w/4, -w/4, margin, barHeight+margin-h))
	drawLabel(dc, s.Label, w, h, margin)

	return c.Image(), nil
}

// projection maps grid (col, row) coordinates to canvas points.
type projection struct {
	origin model3d.Coord3D
	offset vg.Point
	scale  float64
}

func (p projection) point(c model3d.Coord3D) vg.Point {
	return vg.Point{
		X: p.offset.X + vg.Length((c.X-p.origin.X)*p.scale),
		Y: p.offset.Y + vg.Length((c.Y-p.origin.Y)*p.scale),
	}
}

// fit centers the surface's xy extent in area, preserving aspect ratio.
func fit(s *mesh.Surface, area vg.Rectangle) (projection, bool) {
	if len(s.Points) == 0 {
		return projection{}, false
	}
	minPt, maxPt := s.Bounds()
	dx := math.Max(maxPt.X-minPt.X, 1)
	dy := math.Max(maxPt.Y-minPt.Y, 1)
	aw := float64(area.Max.X - area.Min.X)
	ah := float64(area.Max.Y - area.Min.Y)
	scale := math.Min(aw/dx, ah/dy)
	return projection{
		origin: minPt,
		offset: vg.Point{
			X: area.Min.X + vg.Length((aw-(maxPt.X-minPt.X)*scale)/2),
			Y: area.Min.Y + vg.Length((ah-(maxPt.Y-minPt.Y)*scale)/2),
		},
		scale: scale,
	}, true
}

func (r *Raster) drawSurface(c draw.Canvas, s *mesh.Surface, proj projection) error {
	// Painter's order: lower triangles first, the camera looks down -z.
	order := make([]int, len(s.Triangles))
	depth := make([]float64, len(s.Triangles))
	for i := range order {
		order[i] = i
		t := s.Triangle(i)
		depth[i] = t[0].Z + t[1].Z + t[2].Z
	}
	sort.SliceStable(order, func(a, b int) bool { return depth[order[a]] < depth[order[b]] })

	for _, i := range order {
		base, err := clampedColor(r.cmap, s.TriangleHeat(i))
		if err != nil {
			return fmt.Errorf("failed to color triangle %d: %w", i, err)
		}
		t := s.Triangle(i)
		c.SetColor(shade(base, t, r.opts.Opacity))

		var p vg.Path
		p.Move(proj.point(t[0]))
		p.Line(proj.point(t[1]))
		p.Line(proj.point(t[2]))
		p.Close()
		c.Fill(p)
	}
	return nil
}

// shade applies two-sided Lambert lighting and opacity to base.
func shade(base color.Color, t *model3d.Triangle, opacity float64) color.Color {
	flat := model3d.Triangle{
		model3d.XYZ(t[0].X, t[0].Y, t[0].Z*reliefScale),
		model3d.XYZ(t[1].X, t[1].Y, t[1].Z*reliefScale),
		model3d.XYZ(t[2].X, t[2].Y, t[2].Z*reliefScale),
	}
	intensity := 1.0
	if n := flat.Normal(); !math.IsNaN(n.X) {
		intensity = 0.35 + 0.65*math.Abs(n.Dot(lightDir))
	}

	nc := color.NRGBAModel.Convert(base).(color.NRGBA)
	scale := func(v uint8) uint8 {
		return uint8(math.Round(float64(v) * intensity))
	}
	return color.NRGBA{
		R: scale(nc.R),
		G: scale(nc.G),
		B: scale(nc.B),
		A: uint8(math.Round(255 * opacity)),
	}
}

func (r *Raster) drawColorBar(dc draw.Canvas) {
	p := plot.New()
	p.BackgroundColor = color.Transparent
	p.Add(&plotter.ColorBar{ColorMap: r.cmap})
	p.HideY()
	p.X.Padding = 0
	p.X.Label.Text = mesh.ScalarName
	p.Draw(dc)
}

func textStyle(c color.Color, size vg.Length) text.Style {
	return text.Style{
		Color:   c,
		Font:    font.From(plot.DefaultFont, size),
		Handler: plot.DefaultTextHandler,
	}
}

func (r *Raster) drawEvents(dc draw.Canvas, a *events.Annotations, proj projection, h vg.Length) {
	radius := h * markerFrac / 2
	sty := textStyle(color.White, h*eventFrac)
	sty.YAlign = text.YTop
	pad := sty.Font.Size / 3

	for i, pt := range a.Points {
		at := proj.point(pt)

		dc.SetColor(markerColor)
		var dot vg.Path
		dot.Move(vg.Point{X: at.X + radius, Y: at.Y})
		dot.Arc(at, radius, 0, 2*math.Pi)
		dot.Close()
		dc.Fill(dot)

		label := a.Labels[i]
		box := vg.Rectangle{Min: vg.Point{X: at.X + radius + pad, Y: at.Y + radius}}
		box.Max = vg.Point{
			X: box.Min.X + sty.Width(label) + 2*pad,
			Y: box.Min.Y + sty.Height(label) + 2*pad,
		}
		dc.SetColor(boxColor)
		dc.Fill(box.Path())
		dc.FillText(sty, vg.Point{X: box.Min.X + pad, Y: box.Max.Y - pad}, label)
	}
}

// drawLabel writes txt in the upper right corner.
func drawLabel(dc draw.Canvas, txt string, w, h, margin vg.Length) {
	if txt == "" {
		return
	}
	sty := textStyle(labelColor, h*labelFrac)
	sty.XAlign = text.XRight
	sty.YAlign = text.YTop
	dc.FillText(sty, vg.Point{X: w - margin, Y: h - margin}, txt)
}
