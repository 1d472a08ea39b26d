package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-realitywrite/internal/log"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// maxReadFailures is how many consecutive empty reads end Run.
const maxReadFailures = 50

// ErrDeviceLost is returned by Run when the device stops producing frames.
var ErrDeviceLost = errors.New("camera: device stopped producing frames")

// Camera reads from an OpenCV capture device. It implements frame.Source.
type Camera struct {
	config Config
	logger *slog.Logger
	latest *frame.Latest

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// Open opens the capture device and applies the requested resolution.
func Open(cfg Config) (*Camera, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("camera: invalid config: %w", err)
	}

	capture, err := gocv.OpenVideoCapture(deviceID(cfg.Device))
	if err != nil {
		return nil, fmt.Errorf("camera: open %q: %w", cfg.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera: device %q not available", cfg.Device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	c := &Camera{
		config:  cfg,
		logger:  log.Component("camera").With("device", cfg.Device),
		latest:  frame.NewLatest(),
		capture: capture,
	}
	c.logger.Info("camera opened",
		"width", capture.Get(gocv.VideoCaptureFrameWidth),
		"height", capture.Get(gocv.VideoCaptureFrameHeight))
	return c, nil
}

// Run captures frames until ctx is cancelled or the device is lost.
func (c *Camera) Run(ctx context.Context) error {
	img := gocv.NewMat()
	defer img.Close()

	ticker := time.NewTicker(time.Second / time.Duration(c.config.Framerate))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		f, err := c.read(&img)
		if err != nil {
			failures++
			if failures == 1 || failures%10 == 0 {
				c.logger.Warn("capture failed", "error", err, "consecutive", failures)
			}
			if failures >= maxReadFailures {
				return ErrDeviceLost
			}
			continue
		}
		failures = 0
		c.latest.Publish(f)
	}
}

func (c *Camera) read(img *gocv.Mat) (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, errors.New("camera closed")
	}
	if ok := c.capture.Read(img); !ok || img.Empty() {
		return nil, errors.New("empty read")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *img, []int{gocv.IMWriteJpegQuality, c.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return &frame.Frame{
		JPEG:       data,
		Width:      img.Cols(),
		Height:     img.Rows(),
		CapturedAt: time.Now(),
	}, nil
}

// CurrentFrame returns the most recent capture.
func (c *Camera) CurrentFrame() (*frame.Frame, bool) {
	return c.latest.CurrentFrame()
}

// Stats returns publication counters.
func (c *Camera) Stats() frame.Stats {
	return c.latest.Stats()
}

// Config returns the active configuration.
func (c *Camera) Config() Config {
	return c.config
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}
