package kiosk

import (
	"github.com/teslashibe/face-checkin/pkg/detection"
	"github.com/teslashibe/face-checkin/pkg/encode"
	"github.com/teslashibe/face-checkin/pkg/handoff"
	"github.com/teslashibe/face-checkin/pkg/overlay"
	"github.com/teslashibe/face-checkin/pkg/poller"
	"github.com/teslashibe/face-checkin/pkg/video"
)

// Config holds the kiosk pipeline configuration.
type Config struct {
	Detection detection.Config `yaml:"detection"`
	Poller    poller.Config    `yaml:"poller"`
	Overlay   overlay.Config   `yaml:"overlay"`
	Video     video.Config     `yaml:"video"`
	Capture   encode.Config    `yaml:"capture"`
	Handoff   handoff.Config   `yaml:"handoff"`
	Preview   PreviewConfig    `yaml:"preview"`
}

// PreviewConfig controls the composited camera stream sent to browsers.
type PreviewConfig struct {
	FPS      float64 `yaml:"fps" validate:"gte=0,lte=60"`
	Quality  int     `yaml:"quality" validate:"min=1,max=100"`
	MaxWidth int     `yaml:"max_width" validate:"gte=0"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Detection: detection.DefaultConfig(),
		Poller:    poller.DefaultConfig(),
		Overlay:   overlay.DefaultConfig(),
		Video:     video.DefaultConfig(),
		Capture:   encode.DefaultConfig(),
		Handoff:   handoff.DefaultConfig(),
		Preview: PreviewConfig{
			FPS:      10,
			Quality:  70,
			MaxWidth: 640,
		},
	}
}
