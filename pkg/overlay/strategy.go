package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/teslashibe/face-checkin/pkg/confidence"
	"github.com/teslashibe/face-checkin/pkg/detection"
)

// Strategy draws one frame of overlay onto an already cleared surface.
type Strategy interface {
	Name() string
	Draw(s Surface, set detection.Set, r confidence.Reading)
}

// Config selects and tunes the overlay strategy.
type Config struct {
	Strategy   string  `yaml:"strategy" validate:"oneof=box ring"`
	CornerSize float64 `yaml:"corner_size" validate:"gt=0"`
	RingRadius float64 `yaml:"ring_radius" validate:"gt=0"`
}

// DefaultConfig returns the box overlay.
func DefaultConfig() Config {
	return Config{
		Strategy:   "box",
		CornerSize: 25,
		RingRadius: 140,
	}
}

// NewStrategy builds the strategy named in cfg.
func NewStrategy(cfg Config) (Strategy, error) {
	switch cfg.Strategy {
	case "", "box":
		return BoxStrategy{CornerSize: cfg.CornerSize}, nil
	case "ring":
		return RingStrategy{Radius: cfg.RingRadius}, nil
	default:
		return nil, fmt.Errorf("overlay: unknown strategy %q", cfg.Strategy)
	}
}

var (
	boxStyle    = Style{Color: color.RGBA{0x22, 0xc5, 0x5e, 0xff}, Width: 3}
	cornerStyle = Style{Color: color.RGBA{0xff, 0xff, 0xff, 0xff}, Width: 4}

	ringDash  = []float64{6, 4}
	ringWidth = 8.0
	trackRGBA = color.RGBA{0x64, 0x74, 0x8b, 0xff}
)

// BoxStrategy outlines every face with a box and four corner accents.
type BoxStrategy struct {
	CornerSize float64
}

// Name returns "box".
func (BoxStrategy) Name() string { return "box" }

// Draw outlines each detection.
func (b BoxStrategy) Draw(s Surface, set detection.Set, _ confidence.Reading) {
	cs := b.CornerSize
	if cs <= 0 {
		cs = 25
	}

	for _, d := range set {
		s.StrokeRect(d.Box, boxStyle)

		x, y, w, h := d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height
		for _, corner := range [][]detection.Point{
			{{X: x, Y: y + cs}, {X: x, Y: y}, {X: x + cs, Y: y}},
			{{X: x + w - cs, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + cs}},
			{{X: x, Y: y + h - cs}, {X: x, Y: y + h}, {X: x + cs, Y: y + h}},
			{{X: x + w - cs, Y: y + h}, {X: x + w, Y: y + h}, {X: x + w, Y: y + h - cs}},
		} {
			s.StrokePath(corner, cornerStyle)
		}
	}
}

// RingStrategy draws a dashed progress ring around the frame center whose
// filled sweep is proportional to the confidence score.
type RingStrategy struct {
	Radius float64
}

// Name returns "ring".
func (RingStrategy) Name() string { return "ring" }

// Sweep returns the fill angle in radians for a score.
func Sweep(score float64) float64 {
	return score * 2 * math.Pi
}

// Draw draws the track and, when a face is present, the fill arc over it.
func (g RingStrategy) Draw(s Surface, _ detection.Set, r confidence.Reading) {
	w, h := s.Size()
	cx, cy := float64(w)/2, float64(h)/2

	radius := g.Radius
	if radius <= 0 {
		radius = 140
	}

	track := Style{Color: trackRGBA, Width: ringWidth, Dash: ringDash}
	s.StrokeArc(cx, cy, radius, 0, 2*math.Pi, track)

	if !r.FacePresent {
		return
	}
	fill := Style{Color: bandColor(r.Band), Width: ringWidth, Dash: ringDash}
	s.StrokeArc(cx, cy, radius, 0, Sweep(r.Score), fill)
}

func bandColor(b confidence.Band) color.RGBA {
	switch b {
	case confidence.High:
		return color.RGBA{0x22, 0xc5, 0x5e, 0xff}
	case confidence.Medium:
		return color.RGBA{0xf5, 0x9e, 0x0b, 0xff}
	default:
		return color.RGBA{0x3b, 0x82, 0xf6, 0xff}
	}
}
