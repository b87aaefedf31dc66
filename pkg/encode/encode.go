// Package encode turns captured frames into portable image payloads.
package encode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// DataURLPrefix prefixes every encoded JPEG.
const DataURLPrefix = "data:image/jpeg;base64,"

// ErrEmptyFrame is returned when there is nothing to encode.
var ErrEmptyFrame = errors.New("encode: empty frame")

// Config controls JPEG output.
type Config struct {
	Quality  int `yaml:"quality" validate:"min=1,max=100"`
	MaxWidth int `yaml:"max_width" validate:"min=0"`
}

// DefaultConfig keeps full resolution at quality 90.
func DefaultConfig() Config {
	return Config{Quality: 90}
}

// JPEG encodes frames as base64 JPEG data URLs.
type JPEG struct {
	config Config
}

// NewJPEG creates an encoder. Out of range quality falls back to the default.
func NewJPEG(cfg Config) *JPEG {
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = DefaultConfig().Quality
	}
	return &JPEG{config: cfg}
}

// Encode returns img as a data URL, downscaled to MaxWidth when set.
func (j *JPEG) Encode(img image.Image) (string, error) {
	raw, err := j.EncodeBytes(img)
	if err != nil {
		return "", err
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeBytes returns img as raw JPEG, downscaled to MaxWidth when set.
func (j *JPEG) EncodeBytes(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	if j.config.MaxWidth > 0 && img.Bounds().Dx() > j.config.MaxWidth {
		img = imaging.Resize(img, j.config.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(j.config.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a data URL produced by Encode.
func Decode(dataURL string) (image.Image, error) {
	raw, err := Bytes(dataURL)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

// Bytes returns the raw JPEG carried by a data URL.
func Bytes(dataURL string) ([]byte, error) {
	payload, ok := strings.CutPrefix(dataURL, DataURLPrefix)
	if !ok {
		return nil, fmt.Errorf("encode: not a jpeg data url")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}
