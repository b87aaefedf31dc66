package overlay

import (
	"image"
	"image/draw"
	"sync"

	"github.com/teslashibe/face-checkin/pkg/confidence"
	"github.com/teslashibe/face-checkin/pkg/detection"
)

// Renderer redraws the overlay surface from the latest detection set.
// It is the only writer of its surface.
type Renderer struct {
	mu       sync.Mutex
	strategy Strategy
	surface  Surface
}

// NewRenderer creates a renderer with no surface mounted.
func NewRenderer(strategy Strategy) *Renderer {
	return &Renderer{strategy: strategy}
}

// Mount attaches the drawing surface.
func (r *Renderer) Mount(s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface = s
}

// Unmount detaches the drawing surface; later renders are no-ops.
func (r *Renderer) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface = nil
}

// Strategy returns the active strategy.
func (r *Renderer) Strategy() Strategy {
	return r.strategy
}

// Render syncs the surface to the video's native size, clears it and draws
// set. It reports false without drawing when no surface is mounted.
func (r *Renderer) Render(set detection.Set, reading confidence.Reading, videoW, videoH int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.surface == nil {
		return false
	}

	if w, h := r.surface.Size(); w != videoW || h != videoH {
		r.surface.Resize(videoW, videoH)
	}
	r.surface.Clear()
	r.strategy.Draw(r.surface, set, reading)
	return true
}

// Clear wipes the mounted surface. It reports false when nothing is mounted.
func (r *Renderer) Clear() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.surface == nil {
		return false
	}
	r.surface.Clear()
	return true
}

// Composite returns frame with the current overlay drawn over it. The frame is
// returned unchanged when the mounted surface is not a *Canvas.
func (r *Renderer) Composite(frame image.Image) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	canvas, ok := r.surface.(*Canvas)
	if !ok || frame == nil {
		return frame
	}

	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), frame, b.Min, draw.Src)
	draw.Draw(out, out.Bounds(), canvas.Image(), image.Point{}, draw.Over)
	return out
}
