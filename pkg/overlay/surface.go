// Package overlay draws live detection feedback over the camera preview.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/teslashibe/face-checkin/pkg/detection"
	"golang.org/x/image/vector"
)

// Style describes how a stroke is drawn.
type Style struct {
	Color color.RGBA
	Width float64
	Dash  []float64 // alternating on/off lengths in pixels; empty = solid
}

// Surface is a 2D drawing target sized in pixels.
type Surface interface {
	Size() (w, h int)
	Resize(w, h int)
	Clear()
	StrokeRect(r detection.BoundingBox, st Style)
	StrokePath(pts []detection.Point, st Style)
	StrokeArc(cx, cy, radius, start, end float64, st Style)
}

// arcStep is the angular resolution used to flatten arcs.
const arcStep = math.Pi / 90

// Canvas is an in-memory RGBA Surface rasterized with x/image/vector.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas creates a transparent canvas.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image returns the backing image. Callers must not retain it across renders.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize reallocates the canvas when the size changes. Contents are dropped.
func (c *Canvas) Resize(w, h int) {
	if cw, ch := c.Size(); cw == w && ch == h {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Clear makes every pixel transparent.
func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

// StrokeRect outlines r.
func (c *Canvas) StrokeRect(r detection.BoundingBox, st Style) {
	c.StrokePath([]detection.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y},
	}, st)
}

// StrokeArc strokes the arc of the circle at (cx, cy) from start to end,
// in radians, clockwise on screen.
func (c *Canvas) StrokeArc(cx, cy, radius, start, end float64, st Style) {
	c.StrokePath(arcPoints(cx, cy, radius, start, end), st)
}

// StrokePath strokes an open polyline.
func (c *Canvas) StrokePath(pts []detection.Point, st Style) {
	w, h := c.Size()
	if w == 0 || h == 0 || len(pts) < 2 || st.Width <= 0 {
		return
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Over

	half := st.Width / 2
	for _, run := range dashRuns(pts, st.Dash) {
		for i := 1; i < len(run); i++ {
			addSegment(z, run[i-1], run[i], half)
		}
	}

	z.Draw(c.img, c.img.Bounds(), image.NewUniform(st.Color), image.Point{})
}

// addSegment adds a quad covering the segment a-b with the given half width.
// The quad is extended by half a width at both ends so joints stay closed.
func addSegment(z *vector.Rasterizer, a, b detection.Point, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	nx, ny := -uy*half, ux*half
	ex, ey := ux*half, uy*half

	ax, ay := a.X-ex, a.Y-ey
	bx, by := b.X+ex, b.Y+ey

	z.MoveTo(float32(ax+nx), float32(ay+ny))
	z.LineTo(float32(bx+nx), float32(by+ny))
	z.LineTo(float32(bx-nx), float32(by-ny))
	z.LineTo(float32(ax-nx), float32(ay-ny))
	z.ClosePath()
}

func arcPoints(cx, cy, radius, start, end float64) []detection.Point {
	if end < start {
		start, end = end, start
	}
	n := int(math.Ceil((end - start) / arcStep))
	if n < 1 {
		n = 1
	}
	pts := make([]detection.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		a := start + (end-start)*float64(i)/float64(n)
		pts = append(pts, detection.Point{X: cx + radius*math.Cos(a), Y: cy + radius*math.Sin(a)})
	}
	return pts
}

// dashRuns splits a polyline into the "on" runs of a dash pattern. The pattern
// restarts at the beginning of the path, so two paths over the same points
// produce the same dashes.
func dashRuns(pts []detection.Point, dash []float64) [][]detection.Point {
	if !validDash(dash) {
		return [][]detection.Point{pts}
	}

	var (
		runs [][]detection.Point
		cur  = []detection.Point{pts[0]}
		idx  int
		left = dash[0]
		on   = true
	)

	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
		pos := 0.0
		for segLen-pos > left {
			pos += left
			t := pos / segLen
			p := detection.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
			if on {
				cur = append(cur, p)
				runs = append(runs, cur)
				cur = nil
			} else {
				cur = []detection.Point{p}
			}
			on = !on
			idx = (idx + 1) % len(dash)
			left = dash[idx]
		}
		left -= segLen - pos
		if on {
			cur = append(cur, b)
		}
	}
	if on && len(cur) > 1 {
		runs = append(runs, cur)
	}
	return runs
}

func validDash(dash []float64) bool {
	if len(dash) == 0 {
		return false
	}
	for _, d := range dash {
		if d <= 0 {
			return false
		}
	}
	return true
}
