// Package detection provides the face detector gateway used by the check-in kiosk.
//
// A Gateway exposes two operations with different intents: ScanAll is the cheap
// multi-face scan run on every preview tick, CheckSingle is the authoritative
// single-face check run once when the user asks for a capture.
package detection

import (
	"context"
	"image"
	"time"
)

// Point is a 2D point in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is an axis-aligned box in frame pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection represents one candidate face in a frame.
type Detection struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"` // 0-1
	Landmarks  []Point     `json:"landmarks,omitempty"`
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.Box.X + d.Box.Width/2, d.Box.Y + d.Box.Height/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.Box.Width * d.Box.Height
}

// Set is the detections found in one frame. It may be empty and is not sorted.
type Set []Detection

// Result is a scan result stamped with the sequence number it was issued with.
type Result struct {
	Seq        uint64
	Detections Set
	At         time.Time
}

// Gateway is the interface for face detection backends.
type Gateway interface {
	// Load loads every sub-model, advancing progress as each one completes.
	Load(ctx context.Context, progress *Progress) error

	// Ready reports whether Load has completed successfully.
	Ready() bool

	// ScanAll finds every face in the frame. Safe to call concurrently.
	ScanAll(ctx context.Context, frame image.Image) (Set, error)

	// CheckSingle returns the best face in the frame, or nil when there is none.
	CheckSingle(ctx context.Context, frame image.Image) (*Detection, error)

	// Close releases resources
	Close() error
}

// SelectBest picks the best face from multiple detections
// Priority: confidence * 0.7 + area * 0.3
func SelectBest(dets Set) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection

	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}
