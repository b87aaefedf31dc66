package detection

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/face-checkin/internal/log"
	"gocv.io/x/gocv"
)

// YuNetGateway uses OpenCV's FaceDetectorYN for both the preview scan and the
// capture check. The two run on separate detector instances so a slow scan
// never holds up a capture.
type YuNetGateway struct {
	config Config

	scan    gocv.FaceDetectorYN
	scanMu  sync.Mutex
	check   gocv.FaceDetectorYN
	checkMu sync.Mutex

	ready       atomic.Bool
	scanLoaded  bool
	checkLoaded bool
}

// NewYuNet creates an unloaded YuNet gateway. Call Load before scanning.
func NewYuNet(cfg Config) *YuNetGateway {
	return &YuNetGateway{config: cfg}
}

// Load creates the scan detector then the confirm detector, advancing progress
// after each. A failure leaves the gateway unloaded.
func (g *YuNetGateway) Load(ctx context.Context, progress *Progress) error {
	progress.Advance(ProgressStarted)

	if err := g.loadScan(); err != nil {
		return err
	}
	log.Info("face scan model loaded", "path", g.config.ModelPath)
	progress.Advance(ProgressScanModel)

	if err := g.loadCheck(); err != nil {
		return err
	}
	log.Info("face confirm model loaded", "path", g.config.ModelPath)
	progress.Advance(ProgressConfirm)

	if g.config.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.config.SettleDelay):
		}
	}

	g.ready.Store(true)
	progress.Advance(ProgressDone)
	return nil
}

func (g *YuNetGateway) loadScan() error {
	if err := checkModelFile(g.config.ModelPath); err != nil {
		return &ModelLoadError{Model: "scan", Path: g.config.ModelPath, Err: err}
	}

	g.scanMu.Lock()
	defer g.scanMu.Unlock()
	if g.scanLoaded {
		g.scan.Close()
	}
	g.scan = newYN(g.config.ModelPath, g.config.ScanThreshold, g.config)
	g.scanLoaded = true
	return nil
}

func (g *YuNetGateway) loadCheck() error {
	if err := checkModelFile(g.config.ModelPath); err != nil {
		return &ModelLoadError{Model: "confirm", Path: g.config.ModelPath, Err: err}
	}

	g.checkMu.Lock()
	defer g.checkMu.Unlock()
	if g.checkLoaded {
		g.check.Close()
	}
	g.check = newYN(g.config.ModelPath, g.config.ConfirmThreshold, g.config)
	g.checkLoaded = true
	return nil
}

func checkModelFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", path)
		}
		return err
	}
	return nil
}

func newYN(modelPath string, threshold float64, cfg Config) gocv.FaceDetectorYN {
	// Input size is updated per frame.
	return gocv.NewFaceDetectorYNWithParams(
		modelPath,
		"",
		image.Pt(320, 320),
		float32(threshold),
		float32(cfg.NMSThreshold),
		cfg.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)
}

// Ready reports whether both detectors are loaded.
func (g *YuNetGateway) Ready() bool {
	return g.ready.Load()
}

// ScanAll finds every face in the frame, downscaled to ScanWidth.
func (g *YuNetGateway) ScanAll(ctx context.Context, frame image.Image) (Set, error) {
	if !g.Ready() {
		return nil, ErrNotLoaded
	}

	g.scanMu.Lock()
	defer g.scanMu.Unlock()

	return detectYN(g.scan, frame, g.config.ScanWidth)
}

// CheckSingle runs the confirm detector at full resolution and returns the best face.
func (g *YuNetGateway) CheckSingle(ctx context.Context, frame image.Image) (*Detection, error) {
	if !g.Ready() {
		return nil, ErrNotLoaded
	}

	g.checkMu.Lock()
	defer g.checkMu.Unlock()

	dets, err := detectYN(g.check, frame, 0)
	if err != nil {
		return nil, err
	}
	best := SelectBest(dets)
	if best == nil {
		return nil, nil
	}
	d := *best
	return &d, nil
}

// detectYN runs one detector over frame. Boxes and landmarks are returned in
// the source frame's pixel space regardless of the working width.
func detectYN(det gocv.FaceDetectorYN, frame image.Image, workWidth int) (Set, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	img, err := frameToBGR(frame)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	scale := 1.0
	if workWidth > 0 && img.Cols() > workWidth {
		scale = float64(img.Cols()) / float64(workWidth)
		h := int(float64(img.Rows()) / scale)
		gocv.Resize(img, &img, image.Pt(workWidth, h), 0, 0, gocv.InterpolationLinear)
	}

	det.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	det.Detect(img, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	out := make(Set, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		at := func(c int) float64 { return float64(faces.GetFloatAt(r, c)) * scale }

		landmarks := make([]Point, 0, 5)
		for c := 4; c < 14; c += 2 {
			landmarks = append(landmarks, Point{X: at(c), Y: at(c + 1)})
		}

		out = append(out, Detection{
			Box: BoundingBox{
				X:      at(0),
				Y:      at(1),
				Width:  at(2),
				Height: at(3),
			},
			Confidence: clamp01(float64(faces.GetFloatAt(r, 14))),
			Landmarks:  landmarks,
		})
	}

	return out, nil
}

// frameToBGR converts frame to the 3-channel BGR Mat YuNet expects.
// ImageToMatRGB already returns BGR channel order despite its name.
func frameToBGR(frame image.Image) (gocv.Mat, error) {
	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return img, fmt.Errorf("convert frame: %w", err)
	}
	if img.Empty() {
		img.Close()
		return img, ErrEmptyFrame
	}
	return img, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Close releases the detector resources
func (g *YuNetGateway) Close() error {
	g.ready.Store(false)

	g.scanMu.Lock()
	g.checkMu.Lock()
	defer g.scanMu.Unlock()
	defer g.checkMu.Unlock()

	if g.scanLoaded {
		g.scan.Close()
		g.scanLoaded = false
	}
	if g.checkLoaded {
		g.check.Close()
		g.checkLoaded = false
	}
	return nil
}
