package dnn

import (
	"math"
	"sort"

	"github.com/teslashibe/go-realitywrite/pkg/classify"
)

// softmax converts logits into probabilities in place.
func softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxV))
		v[i] = float32(e)
		sum += e
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / sum)
	}
}

// topK ranks scores and maps the best k indices to labels. Indices beyond
// the label table are skipped.
func topK(scores []float32, labels []string, k int) classify.Observation {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	obs := make(classify.Observation, 0, k)
	for _, i := range idx {
		if len(obs) == k {
			break
		}
		if i >= len(labels) {
			continue
		}
		obs = append(obs, classify.Classification{
			Identifier: labels[i],
			Confidence: clamp01(float64(scores[i])),
		})
	}
	return obs
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
