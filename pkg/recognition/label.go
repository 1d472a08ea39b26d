package recognition

import (
	"strings"
	"time"

	"github.com/teslashibe/go-realitywrite/pkg/classify"
)

// Policy constants.
const (
	// Sentinel is the label shown before anything has been recognized.
	Sentinel = "No objects recognized"

	// ConfidenceThreshold is the minimum top-entry confidence for a label
	// to be considered. Entries below it are treated as no detection.
	ConfidenceThreshold = 0.5

	// DefaultCropPolicy is requested from the classifier on every tick.
	DefaultCropPolicy = classify.CenterCrop

	// DefaultInterval is the sampling period (10 Hz).
	DefaultInterval = 100 * time.Millisecond
)

// PrimaryLabel returns the first comma-separated segment of a raw
// classifier identifier: "cup, mug, drinking vessel" -> "cup".
func PrimaryLabel(identifier string) string {
	first, _, _ := strings.Cut(identifier, ",")
	return strings.TrimSpace(first)
}
