package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(modelPath string) Config {
	cfg := DefaultConfig()
	cfg.ModelPath = modelPath
	cfg.SettleDelay = 0
	return cfg
}

// TestYuNetLoad tests detector initialization and progress milestones
func TestYuNetLoad(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	g := NewYuNet(testConfig(modelPath))
	defer g.Close()

	progress := NewProgress()
	if err := g.Load(context.Background(), progress); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !g.Ready() {
		t.Error("Ready: got false after Load")
	}
	if progress.Value() != ProgressDone {
		t.Errorf("progress: got %d, want %d", progress.Value(), ProgressDone)
	}
}

// TestYuNetLoadInvalidPath tests error handling for missing model
func TestYuNetLoadInvalidPath(t *testing.T) {
	g := NewYuNet(testConfig("/nonexistent/path/model.onnx"))
	progress := NewProgress()

	err := g.Load(context.Background(), progress)
	if !IsModelLoadError(err) {
		t.Fatalf("expected ModelLoadError, got %v", err)
	}
	if g.Ready() {
		t.Error("Ready: got true after failed load")
	}
	if progress.Value() != ProgressStarted {
		t.Errorf("progress: got %d, want %d", progress.Value(), ProgressStarted)
	}

	if _, err := g.ScanAll(context.Background(), solidImage(32, 32, color.Black)); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("ScanAll before load: got %v, want ErrNotLoaded", err)
	}
}

// TestYuNetLoadCancelled tests that the settle delay honours cancellation
func TestYuNetLoadCancelled(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := testConfig(modelPath)
	cfg.SettleDelay = time.Minute
	g := NewYuNet(cfg)
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := g.Load(ctx, NewProgress()); !errors.Is(err, context.Canceled) {
		t.Errorf("Load: got %v, want context.Canceled", err)
	}
	if g.Ready() {
		t.Error("Ready: got true after cancelled load")
	}
}

// TestYuNetScan_SolidImage tests detection on solid color image (no faces)
func TestYuNetScan_SolidImage(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	g := NewYuNet(testConfig(modelPath))
	defer g.Close()
	if err := g.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	frame := solidImage(640, 480, color.RGBA{0, 0, 255, 255})

	set, err := g.ScanAll(context.Background(), frame)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(set) > 0 {
		t.Errorf("Expected no detections in solid color image, got %d", len(set))
	}

	face, err := g.CheckSingle(context.Background(), frame)
	if err != nil {
		t.Fatalf("CheckSingle failed: %v", err)
	}
	if face != nil {
		t.Errorf("Expected no face, got %+v", face)
	}
}

// TestYuNetScan_EmptyFrame tests that empty frames are rejected
func TestYuNetScan_EmptyFrame(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	g := NewYuNet(testConfig(modelPath))
	defer g.Close()
	if err := g.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := g.ScanAll(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("ScanAll: got %v, want ErrEmptyFrame", err)
	}
}

// TestYuNetConcurrency tests that scans may overlap with each other and with checks
func TestYuNetConcurrency(t *testing.T) {
	modelPath := findModelPath()
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	g := NewYuNet(testConfig(modelPath))
	defer g.Close()
	if err := g.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	frame := solidImage(320, 240, color.RGBA{100, 100, 100, 255})

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			var err error
			if i%2 == 0 {
				_, err = g.ScanAll(context.Background(), frame)
			} else {
				_, err = g.CheckSingle(context.Background(), frame)
			}
			if err != nil {
				t.Errorf("Concurrent detection failed: %v", err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

// Helper functions

func findModelPath() string {
	if p := os.Getenv("YUNET_MODEL"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		// Walk up to find models directory
		for dir := cwd; dir != "/"; dir = filepath.Dir(dir) {
			modelPath := filepath.Join(dir, "models", "face_detection_yunet.onnx")
			if _, err := os.Stat(modelPath); err == nil {
				return modelPath
			}
		}
	}

	return ""
}

func solidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// TestFrameToBGR checks the channel order handed to the detector for both
// the RGBA fast path and generic images.
func TestFrameToBGR(t *testing.T) {
	red := color.RGBA{R: 200, G: 20, B: 10, A: 255}

	nrgba := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			nrgba.Set(x, y, red)
		}
	}

	tests := []struct {
		name  string
		frame image.Image
	}{
		{"rgba", solidImage(4, 4, red)},
		{"nrgba", nrgba},
	}

	for _, tt := range tests {
		mat, err := frameToBGR(tt.frame)
		if err != nil {
			t.Fatalf("%s: frameToBGR: %v", tt.name, err)
		}

		if ch := mat.Channels(); ch != 3 {
			t.Errorf("%s: channels: got %d, want 3", tt.name, ch)
		}
		px := mat.GetVecbAt(1, 1)
		if px[0] != 10 || px[1] != 20 || px[2] != 200 {
			t.Errorf("%s: pixel: got %v, want [10 20 200] (BGR)", tt.name, px)
		}
		mat.Close()
	}
}
