// Package video provides the live frame sources the kiosk samples from.
package video

import (
	"errors"
	"image"
	"sync"
)

// Status is the playback state of a source.
type Status int

const (
	NotStarted Status = iota
	Playing
	Paused
	Ended
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "not_started"
	}
}

// ErrNoFrame is returned when a source has not produced a frame yet.
var ErrNoFrame = errors.New("video: no frame available")

// Source is a read-only live video feed.
type Source interface {
	// Status reports whether the source is currently playing.
	Status() Status

	// Frame returns the most recent frame. The image must not be modified.
	Frame() (image.Image, error)

	// Size returns the native frame size in pixels.
	Size() (w, h int)
}

// Source kinds.
const (
	KindCamera = "camera"
	KindRemote = "remote"
	KindStill  = "still"
)

// Config selects and configures the frame source. A still source without a
// path shows a blank frame.
type Config struct {
	Kind      string `yaml:"kind" validate:"oneof=camera remote still"`
	Device    int    `yaml:"device" validate:"gte=0"`
	Width     int    `yaml:"width" validate:"gte=0"`
	Height    int    `yaml:"height" validate:"gte=0"`
	URL       string `yaml:"url" validate:"required_if=Kind remote"`
	StillPath string `yaml:"still_path"`
}

// DefaultConfig returns a 720p webcam on device 0.
func DefaultConfig() Config {
	return Config{
		Kind:   KindCamera,
		Device: 0,
		Width:  1280,
		Height: 720,
	}
}

// buffer holds the latest frame and playback status for a source.
type buffer struct {
	mu     sync.RWMutex
	latest image.Image
	status Status
	paused bool
}

func (b *buffer) set(img image.Image) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = img
	if b.status == NotStarted {
		b.status = Playing
	}
}

func (b *buffer) end() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = Ended
}

// Status implements Source.
func (b *buffer) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.paused && b.status == Playing {
		return Paused
	}
	return b.status
}

// Frame implements Source.
func (b *buffer) Frame() (image.Image, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return nil, ErrNoFrame
	}
	return b.latest, nil
}

// Size implements Source.
func (b *buffer) Size() (int, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.latest == nil {
		return 0, 0
	}
	r := b.latest.Bounds()
	return r.Dx(), r.Dy()
}

// Pause freezes the source; frames keep arriving but Status reports Paused.
func (b *buffer) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = true
}

// Resume undoes Pause.
func (b *buffer) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
}
