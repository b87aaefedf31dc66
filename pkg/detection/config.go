package detection

import "time"

// Config holds detector configuration
type Config struct {
	ModelPath        string        `yaml:"model_path" validate:"required"`
	ScanThreshold    float64       `yaml:"scan_threshold" validate:"gt=0,lte=1"`    // Minimum confidence for preview scans
	ConfirmThreshold float64       `yaml:"confirm_threshold" validate:"gt=0,lte=1"` // Minimum confidence for the capture check
	NMSThreshold     float64       `yaml:"nms_threshold" validate:"gt=0,lte=1"`
	TopK             int           `yaml:"top_k" validate:"gt=0"`
	ScanWidth        int           `yaml:"scan_width" validate:"gte=0"` // Downscale preview frames to this width (0 = native)
	SettleDelay      time.Duration `yaml:"settle_delay"`                // Pause before reporting 100%
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ScanThreshold:    0.5,
		ConfirmThreshold: 0.6,
		NMSThreshold:     0.3,
		TopK:             5000,
		ScanWidth:        320,
		SettleDelay:      200 * time.Millisecond,
	}
}
