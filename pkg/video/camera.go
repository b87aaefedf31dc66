package video

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/face-checkin/internal/log"
	"gocv.io/x/gocv"
)

// Camera reads frames from a local capture device with gocv.
type Camera struct {
	buffer

	vc     *gocv.VideoCapture
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OpenCamera opens the capture device named in cfg.
func OpenCamera(cfg Config) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	return &Camera{vc: vc}, nil
}

// Start begins reading frames until ctx is done or Close is called.
func (c *Camera) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.readLoop(ctx)
}

func (c *Camera) readLoop(ctx context.Context) {
	defer c.wg.Done()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := c.vc.Read(&mat); !ok {
			log.Warn("camera closed")
			c.end()
			return
		}
		if mat.Empty() {
			continue
		}

		img, err := mat.ToImage()
		if err != nil {
			log.Debug("camera frame conversion failed", "error", err)
			continue
		}
		c.set(img)
	}
}

// Close stops the read loop and releases the device.
func (c *Camera) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.end()
	return c.vc.Close()
}
