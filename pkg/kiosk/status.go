package kiosk

import (
	"github.com/teslashibe/face-checkin/pkg/capture"
	"github.com/teslashibe/face-checkin/pkg/confidence"
)

// UI text shown alongside the preview.
const (
	BadgeDetected  = "face detected"
	BadgeDetecting = "detecting face..."
	GuidanceNoFace = "look straight at the camera and center your face in the frame"
)

// Status is the kiosk view model pushed to the browser.
type Status struct {
	Session   string             `json:"session"`
	Loading   bool               `json:"loading"`
	Progress  int                `json:"progress"`
	LoadError string             `json:"load_error,omitempty"`
	Capture   capture.Snapshot   `json:"capture"`
	Reading   confidence.Reading `json:"reading"`
	Seq       uint64             `json:"seq"`
	Badge     string             `json:"badge"`
	Message   string             `json:"message"`
	Strategy  string             `json:"strategy"`
	Video     string             `json:"video"`
}

// message picks the line shown under the capture button. A capture outcome
// message wins over live preview feedback.
func message(snap capture.Snapshot, r confidence.Reading) string {
	if snap.Message != "" {
		return snap.Message
	}
	if !r.FacePresent {
		return GuidanceNoFace
	}
	return r.Band.Message()
}

func badge(r confidence.Reading) string {
	if r.FacePresent {
		return BadgeDetected
	}
	return BadgeDetecting
}
