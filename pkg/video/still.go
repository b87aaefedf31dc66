package video

import (
	"fmt"
	"image"
	"os"
)

// Still is a source that always shows the same image. Useful for demo mode
// and tests.
type Still struct {
	buffer
}

// NewStill creates a playing source for img.
func NewStill(img image.Image) *Still {
	s := &Still{}
	s.set(img)
	return s
}

// OpenStill loads a JPEG or PNG from disk.
func OpenStill(path string) (*Still, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open still: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode still %s: %w", path, err)
	}
	return NewStill(img), nil
}

// Replace swaps the image, as if the camera resolution changed.
func (s *Still) Replace(img image.Image) {
	s.set(img)
}

// End marks the source ended.
func (s *Still) End() {
	s.end()
}

// Close ends the source.
func (s *Still) Close() error {
	s.end()
	return nil
}
