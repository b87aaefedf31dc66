package overlay

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/teslashibe/face-checkin/pkg/confidence"
	"github.com/teslashibe/face-checkin/pkg/detection"
)

// recorder is a Surface that logs draw calls.
type recorder struct {
	w, h    int
	resizes int
	clears  int
	rects   []detection.BoundingBox
	paths   int
	arcs    []arcCall
}

type arcCall struct {
	start, end float64
	style      Style
}

func (r *recorder) Size() (int, int) { return r.w, r.h }
func (r *recorder) Resize(w, h int)  { r.w, r.h = w, h; r.resizes++ }
func (r *recorder) Clear() {
	r.clears++
	r.rects, r.paths, r.arcs = nil, 0, nil
}
func (r *recorder) StrokeRect(b detection.BoundingBox, _ Style) { r.rects = append(r.rects, b) }
func (r *recorder) StrokePath(_ []detection.Point, _ Style)     { r.paths++ }
func (r *recorder) StrokeArc(_, _, _, start, end float64, st Style) {
	r.arcs = append(r.arcs, arcCall{start: start, end: end, style: st})
}

func face(score float64) detection.Detection {
	return detection.Detection{
		Box:        detection.BoundingBox{X: 100, Y: 80, Width: 120, Height: 150},
		Confidence: score,
	}
}

func TestRenderer_NoSurfaceIsNoop(t *testing.T) {
	r := NewRenderer(BoxStrategy{CornerSize: 25})
	set := detection.Set{face(0.9)}

	if r.Render(set, confidence.Reduce(set), 640, 480) {
		t.Error("Render without surface: got true, want false")
	}

	rec := &recorder{}
	r.Mount(rec)
	r.Unmount()
	if r.Render(set, confidence.Reduce(set), 640, 480) {
		t.Error("Render after Unmount: got true, want false")
	}
	if rec.clears != 0 {
		t.Errorf("unmounted surface was touched: %d clears", rec.clears)
	}
}

func TestRenderer_Clear(t *testing.T) {
	r := NewRenderer(BoxStrategy{CornerSize: 25})
	if r.Clear() {
		t.Error("Clear without surface: got true, want false")
	}

	rec := &recorder{w: 640, h: 480}
	r.Mount(rec)
	set := detection.Set{face(0.9)}
	r.Render(set, confidence.Reduce(set), 640, 480)
	if len(rec.rects) == 0 && rec.paths == 0 {
		t.Fatal("Render drew nothing")
	}

	if !r.Clear() {
		t.Error("Clear: got false, want true")
	}
	if len(rec.rects) != 0 || rec.paths != 0 || len(rec.arcs) != 0 {
		t.Errorf("surface after Clear: %d rects, %d paths, %d arcs", len(rec.rects), rec.paths, len(rec.arcs))
	}
	if rec.clears != 2 {
		t.Errorf("clears: got %d, want 2", rec.clears)
	}
}

func TestBoxStrategy_SyncsSizeAndDrawsCorners(t *testing.T) {
	rec := &recorder{w: 320, h: 240}
	r := NewRenderer(BoxStrategy{CornerSize: 25})
	r.Mount(rec)

	set := detection.Set{face(0.9), face(0.4)}
	if !r.Render(set, confidence.Reduce(set), 1280, 720) {
		t.Fatal("Render: got false")
	}

	if rec.w != 1280 || rec.h != 720 {
		t.Errorf("surface size: got %dx%d, want 1280x720", rec.w, rec.h)
	}
	if len(rec.rects) != 2 {
		t.Errorf("rects: got %d, want 2", len(rec.rects))
	}
	if rec.paths != 8 {
		t.Errorf("corner paths: got %d, want 8", rec.paths)
	}

	// Same size again must not resize.
	r.Render(set, confidence.Reduce(set), 1280, 720)
	if rec.resizes != 1 {
		t.Errorf("resizes: got %d, want 1", rec.resizes)
	}
}

func TestRingStrategy_Sweep(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(RingStrategy{Radius: 100})
	r.Mount(rec)

	set := detection.Set{face(0.9)}
	reading := confidence.Reduce(set)
	r.Render(set, reading, 640, 480)

	if len(rec.arcs) != 2 {
		t.Fatalf("arcs: got %d, want 2 (track + fill)", len(rec.arcs))
	}

	fill := rec.arcs[1]
	deg := (fill.end - fill.start) * 180 / math.Pi
	if math.Abs(deg-324) > 1e-9 {
		t.Errorf("fill sweep: got %.4f°, want 324°", deg)
	}
	if reading.Band != confidence.High || reading.Band.Message() != "ready/excellent" {
		t.Errorf("reading: got %v %q", reading.Band, reading.Band.Message())
	}

	track := rec.arcs[0]
	if math.Abs(track.end-track.start-2*math.Pi) > 1e-9 {
		t.Errorf("track should be a full circle, got %.4f rad", track.end-track.start)
	}
	if len(fill.style.Dash) != len(track.style.Dash) || fill.style.Dash[0] != track.style.Dash[0] {
		t.Errorf("fill dash %v should match track dash %v", fill.style.Dash, track.style.Dash)
	}
}

func TestRingStrategy_NoFaceDrawsTrackOnly(t *testing.T) {
	rec := &recorder{}
	r := NewRenderer(RingStrategy{Radius: 100})
	r.Mount(rec)

	r.Render(nil, confidence.Reduce(nil), 640, 480)

	if len(rec.arcs) != 1 {
		t.Errorf("arcs: got %d, want 1", len(rec.arcs))
	}
}

func TestRender_IdempotentPixels(t *testing.T) {
	strategies := []Strategy{BoxStrategy{CornerSize: 25}, RingStrategy{Radius: 100}}

	for _, st := range strategies {
		t.Run(st.Name(), func(t *testing.T) {
			canvas := NewCanvas(0, 0)
			r := NewRenderer(st)
			r.Mount(canvas)

			set := detection.Set{face(0.75)}
			reading := confidence.Reduce(set)

			r.Render(set, reading, 320, 240)
			first := append([]byte(nil), canvas.Image().Pix...)

			r.Render(set, reading, 320, 240)
			if !bytes.Equal(first, canvas.Image().Pix) {
				t.Error("second render produced different pixels")
			}
			if !hasInk(canvas.Image()) {
				t.Error("render produced no pixels")
			}
		})
	}
}

func TestRender_ClearsPreviousFrame(t *testing.T) {
	canvas := NewCanvas(320, 240)
	r := NewRenderer(BoxStrategy{CornerSize: 25})
	r.Mount(canvas)

	set := detection.Set{face(0.9)}
	r.Render(set, confidence.Reduce(set), 320, 240)
	if !hasInk(canvas.Image()) {
		t.Fatal("expected a drawn box")
	}

	r.Render(nil, confidence.Reduce(nil), 320, 240)
	if hasInk(canvas.Image()) {
		t.Error("box from previous frame was not cleared")
	}
}

func TestComposite(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range frame.Pix {
		frame.Pix[i] = 0x40
	}

	r := NewRenderer(BoxStrategy{CornerSize: 25})
	if got := r.Composite(frame); got != image.Image(frame) {
		t.Error("Composite without canvas should return the frame unchanged")
	}

	canvas := NewCanvas(320, 240)
	r.Mount(canvas)
	set := detection.Set{face(0.9)}
	r.Render(set, confidence.Reduce(set), 320, 240)

	out := r.Composite(frame)
	// The box's top-left corner is white over the grey frame.
	c := color.RGBAModel.Convert(out.At(100, 80)).(color.RGBA)
	if c.R != 0xff || c.G != 0xff || c.B != 0xff {
		t.Errorf("corner pixel: got %v, want white", c)
	}
	if frame.Pix[0] != 0x40 {
		t.Error("Composite mutated the source frame")
	}
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "box", false},
		{"box", "box", false},
		{"ring", "ring", false},
		{"spiral", "", true},
	}

	for _, tc := range tests {
		cfg := DefaultConfig()
		cfg.Strategy = tc.name
		st, err := NewStrategy(cfg)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NewStrategy(%q): expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewStrategy(%q): %v", tc.name, err)
			continue
		}
		if st.Name() != tc.want {
			t.Errorf("NewStrategy(%q): got %s, want %s", tc.name, st.Name(), tc.want)
		}
	}
}

func TestDashRuns(t *testing.T) {
	line := []detection.Point{{X: 0, Y: 0}, {X: 20, Y: 0}}

	runs := dashRuns(line, []float64{6, 4})
	// on 0-6, off 6-10, on 10-16, off 16-20
	if len(runs) != 2 {
		t.Fatalf("runs: got %d, want 2", len(runs))
	}
	if runs[1][0].X != 10 || runs[1][len(runs[1])-1].X != 16 {
		t.Errorf("second dash: got %v", runs[1])
	}

	if got := dashRuns(line, []float64{0, 4}); len(got) != 1 {
		t.Errorf("invalid dash should stroke solid, got %d runs", len(got))
	}
}

func hasInk(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return true
		}
	}
	return false
}
