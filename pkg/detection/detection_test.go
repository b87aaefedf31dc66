package detection

import (
	"encoding/json"
	"strings"
	"testing"
)

func box(x, y, w, h float64) BoundingBox {
	return BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name    string
		det     Detection
		expectX float64
		expectY float64
	}{
		{
			name:    "center of frame",
			det:     Detection{Box: box(160, 120, 320, 240)},
			expectX: 320,
			expectY: 240,
		},
		{
			name:    "top left corner",
			det:     Detection{Box: box(0, 0, 20, 20)},
			expectX: 10,
			expectY: 10,
		},
		{
			name:    "bottom right corner",
			det:     Detection{Box: box(600, 440, 40, 40)},
			expectX: 620,
			expectY: 460,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.expectX {
				t.Errorf("Center X: got %.2f, want %.2f", x, tc.expectX)
			}
			if y != tc.expectY {
				t.Errorf("Center Y: got %.2f, want %.2f", y, tc.expectY)
			}
		})
	}
}

func TestDetection_Area(t *testing.T) {
	tests := []struct {
		name   string
		det    Detection
		expect float64
	}{
		{"square face", Detection{Box: box(0, 0, 100, 100)}, 10000},
		{"tall face", Detection{Box: box(0, 0, 80, 120)}, 9600},
		{"degenerate", Detection{Box: box(5, 5, 0, 30)}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if area := tc.det.Area(); area != tc.expect {
				t.Errorf("Area: got %.2f, want %.2f", area, tc.expect)
			}
		})
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		detections Set
		expectNil  bool
		expectIdx  int
	}{
		{
			name:       "empty list",
			detections: Set{},
			expectNil:  true,
		},
		{
			name:       "single detection",
			detections: Set{{Box: box(40, 40, 20, 20), Confidence: 0.9}},
			expectIdx:  0,
		},
		{
			name: "high confidence beats larger area",
			detections: Set{
				{Box: box(0, 0, 40, 40), Confidence: 0.5},
				{Box: box(30, 30, 20, 20), Confidence: 0.95},
			},
			// 0.95*0.7 + 0.25*0.3 = 0.74 vs 0.5*0.7 + 1.0*0.3 = 0.65
			expectIdx: 1,
		},
		{
			name: "same confidence picks larger",
			detections: Set{
				{Box: box(0, 0, 50, 50), Confidence: 0.8},
				{Box: box(30, 30, 10, 10), Confidence: 0.8},
			},
			expectIdx: 0,
		},
		{
			name: "zero area boxes fall back to confidence",
			detections: Set{
				{Box: box(0, 0, 0, 0), Confidence: 0.3},
				{Box: box(0, 0, 0, 0), Confidence: 0.7},
			},
			expectIdx: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.detections)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}

			if best == nil {
				t.Fatal("SelectBest: expected non-nil, got nil")
			}

			expected := &tc.detections[tc.expectIdx]
			if best != expected {
				t.Errorf("SelectBest: got %+v, want %+v", best, expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelPath == "" {
		t.Error("DefaultConfig: ModelPath should not be empty")
	}
	if cfg.ScanThreshold <= 0 || cfg.ScanThreshold > 1 {
		t.Errorf("DefaultConfig: ScanThreshold should be 0-1, got %f", cfg.ScanThreshold)
	}
	if cfg.ConfirmThreshold < cfg.ScanThreshold {
		t.Errorf("DefaultConfig: ConfirmThreshold %f should not be below ScanThreshold %f",
			cfg.ConfirmThreshold, cfg.ScanThreshold)
	}
	if cfg.TopK <= 0 {
		t.Errorf("DefaultConfig: TopK should be positive, got %d", cfg.TopK)
	}
}

func TestDetection_JSONFieldNames(t *testing.T) {
	d := Detection{
		Box:        box(1, 2, 3, 4),
		Confidence: 0.5,
		Landmarks:  []Point{{X: 10, Y: 20}},
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `"landmarks":[{"x":10,"y":20}]`
	if got := string(data); !strings.Contains(got, want) {
		t.Errorf("json: got %s, want it to contain %s", got, want)
	}
}
