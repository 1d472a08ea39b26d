// Package dnn classifies frames with a local ONNX model through gocv.
package dnn

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-realitywrite/pkg/classify"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// Classifier runs an image classification network. Inference is serialized;
// gocv nets are not safe for concurrent use.
type Classifier struct {
	net    gocv.Net
	config Config
	labels []string

	mu     sync.Mutex
	closed bool
}

var _ classify.Classifier = (*Classifier)(nil)

// New loads the model and label table.
func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("dnn: model file not found: %s", cfg.ModelPath)
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("dnn: failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	if cfg.Logger != nil {
		cfg.Logger.Info("classifier loaded",
			"model", cfg.ModelPath,
			"labels", len(labels),
			"input", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight))
	}

	return &Classifier{
		net:    net,
		config: cfg,
		labels: labels,
	}, nil
}

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, f *frame.Frame, crop classify.CropPolicy) (classify.Observation, error) {
	if f == nil {
		return nil, classify.ErrNilFrame
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, classify.ErrClosed
	}

	img, err := gocv.IMDecode(f.JPEG, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, classify.ErrEmptyImage
	}

	blob, err := c.blob(img, crop)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scores := make([]float32, len(data))
	copy(scores, data)
	if c.config.Softmax {
		softmax(scores)
	}

	return topK(scores, c.labels, c.config.TopK), nil
}

// blob converts img into the network input according to the crop policy.
func (c *Classifier) blob(img gocv.Mat, crop classify.CropPolicy) (gocv.Mat, error) {
	size := image.Pt(c.config.InputWidth, c.config.InputHeight)
	mean := gocv.NewScalar(c.config.Mean[0], c.config.Mean[1], c.config.Mean[2], 0)

	switch crop {
	case classify.ScaleFill:
		return gocv.BlobFromImage(img, c.config.Scale, size, mean, c.config.SwapRB, false), nil

	case classify.ScaleFit:
		padded, err := letterbox(img, size)
		if err != nil {
			return gocv.Mat{}, err
		}
		defer padded.Close()
		return gocv.BlobFromImage(padded, c.config.Scale, size, mean, c.config.SwapRB, false), nil

	default:
		// BlobFromImage with crop=true resizes the shorter side to the input
		// and takes the center.
		return gocv.BlobFromImage(img, c.config.Scale, size, mean, c.config.SwapRB, true), nil
	}
}

// letterbox pads img with black borders so it has the aspect ratio of size.
func letterbox(img gocv.Mat, size image.Point) (gocv.Mat, error) {
	w, h := img.Cols(), img.Rows()
	fit := classify.FitRect(w, h, size.X, size.Y)

	// Border widths expressed in source pixels.
	scale := float64(w) / float64(fit.Dx())
	left := int(float64(fit.Min.X) * scale)
	right := int(float64(size.X-fit.Max.X) * scale)
	top := int(float64(fit.Min.Y) * scale)
	bottom := int(float64(size.Y-fit.Max.Y) * scale)

	padded := gocv.NewMat()
	if err := gocv.CopyMakeBorder(img, &padded, top, bottom, left, right, gocv.BorderConstant, color.RGBA{A: 255}); err != nil {
		padded.Close()
		return gocv.Mat{}, fmt.Errorf("letterbox: %w", err)
	}
	return padded, nil
}

// Labels returns the label table.
func (c *Classifier) Labels() []string {
	return c.labels
}

// Name implements classify.Classifier.
func (c *Classifier) Name() string {
	return "dnn"
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}
