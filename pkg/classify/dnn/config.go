package dnn

import (
	"fmt"
	"log/slog"
)

// Config holds classifier configuration.
type Config struct {
	ModelPath   string // Path to ONNX model
	LabelsPath  string // One label per line, index aligned with model output
	InputWidth  int    // Model input width
	InputHeight int    // Model input height

	// Preprocessing applied by BlobFromImage: (pixel - Mean) * Scale.
	Scale  float64
	Mean   [3]float64
	SwapRB bool // Model expects RGB rather than OpenCV's BGR

	// Softmax converts raw logits into probabilities. Disable for models
	// that already end in a softmax layer.
	Softmax bool

	// TopK bounds the observation length (default 5).
	TopK int

	Logger *slog.Logger
}

// DefaultConfig returns defaults for the ONNX model zoo MobileNetV2 with
// the 1000-class ImageNet label set.
func DefaultConfig() Config {
	return Config{
		ModelPath:   "models/mobilenetv2-7.onnx",
		LabelsPath:  "models/imagenet_labels.txt",
		InputWidth:  224,
		InputHeight: 224,
		Scale:       1.0 / (255.0 * 0.226),
		Mean:        [3]float64{123.675, 116.28, 103.53},
		SwapRB:      true,
		Softmax:     true,
		TopK:        5,
		Logger:      slog.Default(),
	}
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("dnn: model path required")
	}
	if c.LabelsPath == "" {
		return fmt.Errorf("dnn: labels path required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("dnn: invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("dnn: scale must be positive")
	}
	return nil
}
