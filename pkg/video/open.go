package video

import (
	"context"
	"fmt"
	"image"
)

// Stream is a Source that owns resources.
type Stream interface {
	Source
	Close() error
}

// Open creates the source described by cfg. Camera sources start reading
// immediately.
func Open(ctx context.Context, cfg Config) (Stream, error) {
	switch cfg.Kind {
	case KindCamera, "":
		cam, err := OpenCamera(cfg)
		if err != nil {
			return nil, err
		}
		cam.Start(ctx)
		return cam, nil
	case KindRemote:
		return DialRemote(ctx, cfg.URL)
	case KindStill:
		if cfg.StillPath == "" {
			return NewStill(Blank(cfg.Width, cfg.Height)), nil
		}
		return OpenStill(cfg.StillPath)
	default:
		return nil, fmt.Errorf("video: unknown source kind %q", cfg.Kind)
	}
}

// Blank returns a mid-gray frame, for demo mode without an image.
func Blank(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}
