// Package classify provides a unified interface for image classifiers.
//
// A Classifier turns one frame into an Observation: a list of identifiers
// with confidences, ranked best first. Backends live in sub-packages:
//
//	dnn          local ONNX model through gocv
//	cloudvision  Google Cloud Vision label detection
//
// Example usage:
//
//	c, _ := dnn.New(dnn.DefaultConfig())
//	defer c.Close()
//
//	obs, err := c.Classify(ctx, f, classify.CenterCrop)
//	if top, ok := obs.Top(); ok {
//	    fmt.Println(top.Identifier, top.Confidence)
//	}
package classify

import (
	"context"
	"math"
	"sort"

	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// Classifier is implemented by every classification backend.
type Classifier interface {
	// Classify runs one synchronous inference. The returned observation is
	// sorted descending by confidence and may be empty.
	Classify(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error)

	// Name identifies the backend in logs and errors.
	Name() string

	// Close releases any resources held by the backend.
	Close() error
}

// Classification is one ranked entry of an observation. Identifier is the
// raw label from the model's label set, possibly a comma-separated list of
// synonyms ("cup, mug").
type Classification struct {
	Identifier string  `json:"identifier"`
	Confidence float64 `json:"confidence"`
}

// Valid reports whether the entry has a non-empty identifier and a
// confidence within [0, 1].
func (c Classification) Valid() bool {
	if c.Identifier == "" || math.IsNaN(c.Confidence) {
		return false
	}
	return c.Confidence >= 0 && c.Confidence <= 1
}

// Observation is the ranked result of one classification call.
type Observation []Classification

// Top returns the highest ranked entry.
func (o Observation) Top() (Classification, bool) {
	if len(o) == 0 {
		return Classification{}, false
	}
	return o[0], true
}

// Sorted returns a copy ordered by descending confidence. Ties keep their
// original order.
func (o Observation) Sorted() Observation {
	out := make(Observation, len(o))
	copy(out, o)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Limit returns at most n entries.
func (o Observation) Limit(n int) Observation {
	if n <= 0 || len(o) <= n {
		return o
	}
	return o[:n]
}
