package dnn

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestParseLabels(t *testing.T) {
	in := strings.Join([]string{
		"n01440764 tench, Tinca tinca",
		"",
		"goldfish, Carassius auratus",
		"  n07753592 banana  ",
	}, "\n")

	labels, err := ParseLabels(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"tench, Tinca tinca",
		"goldfish, Carassius auratus",
		"banana",
	}, labels)
}

func TestParseLabels_Empty(t *testing.T) {
	_, err := ParseLabels(strings.NewReader("\n\n"))
	assert.Error(t, err)
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("cup, mug\nbanana\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	v := []float32{1, 2, 3}
	softmax(v)

	var sum float64
	for _, x := range v {
		sum += float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	assert.Greater(t, v[2], v[1])
	assert.Greater(t, v[1], v[0])
	assert.InDelta(t, 0.6652, float64(v[2]), 1e-3)
}

func TestSoftmax_LargeLogitsStayFinite(t *testing.T) {
	v := []float32{1000, 1001}
	softmax(v)
	for _, x := range v {
		assert.False(t, math.IsNaN(float64(x)))
		assert.False(t, math.IsInf(float64(x), 0))
	}
}

func TestTopK(t *testing.T) {
	labels := []string{"apple", "banana, plantain", "cup, mug"}
	obs := topK([]float32{0.1, 0.7, 0.2, 0.9}, labels, 2)

	require.Len(t, obs, 2)
	assert.Equal(t, "banana, plantain", obs[0].Identifier, "index 3 has no label and is skipped")
	assert.InDelta(t, 0.7, obs[0].Confidence, 1e-6)
	assert.Equal(t, "cup, mug", obs[1].Identifier)
}

func TestTopK_ClampsScores(t *testing.T) {
	obs := topK([]float32{1.5, -0.2}, []string{"a", "b"}, 5)
	require.Len(t, obs, 2)
	assert.Equal(t, 1.0, obs[0].Confidence)
	assert.Equal(t, 0.0, obs[1].Confidence)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ModelPath = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.InputWidth = 0
	assert.Error(t, cfg.Validate())
}

func TestNew_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	_, err := New(cfg)
	assert.ErrorContains(t, err, "model file not found")
}

func TestLetterbox_PadsToInputAspect(t *testing.T) {
	img := gocv.NewMatWithSize(100, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	padded, err := letterbox(img, image.Pt(224, 224))
	require.NoError(t, err)
	defer padded.Close()

	assert.Equal(t, 200, padded.Cols())
	assert.InDelta(t, 200, padded.Rows(), 1)
}
