package cloudvision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-realitywrite/pkg/classify"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// fakeVision records uploaded images and answers with a canned body.
type fakeVision struct {
	mu       sync.Mutex
	uploads  []image.Config
	features []string
	body     string
}

func (f *fakeVision) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "images:annotate") {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Requests []struct {
			Image struct {
				Content string `json:"content"`
			} `json:"image"`
			Features []struct {
				Type string `json:"type"`
			} `json:"features"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Requests) == 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	raw, _ := base64.StdEncoding.DecodeString(req.Requests[0].Image.Content)
	cfg, _ := jpeg.DecodeConfig(bytes.NewReader(raw))

	f.mu.Lock()
	f.uploads = append(f.uploads, cfg)
	for _, ft := range req.Requests[0].Features {
		f.features = append(f.features, ft.Type)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(f.body))
}

func newTestClassifier(t *testing.T, fake *fakeVision, opts ...Option) *Classifier {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithAPIKey("test-key"),
		WithEndpoint(srv.URL + "/"),
	}, opts...)
	c, err := New(context.Background(), opts...)
	require.NoError(t, err)
	return c
}

func testFrame(t *testing.T, w, h int) *frame.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &frame.Frame{JPEG: buf.Bytes(), Width: w, Height: h}
}

func TestClassify_MapsLabels(t *testing.T) {
	fake := &fakeVision{body: `{"responses":[{"labelAnnotations":[
		{"description":"Fruit","score":0.81},
		{"description":"Banana","score":0.92}
	]}]}`}
	c := newTestClassifier(t, fake)

	obs, err := c.Classify(context.Background(), testFrame(t, 64, 64), classify.ScaleFill)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "banana", obs[0].Identifier, "sorted and lowercased")
	assert.InDelta(t, 0.92, obs[0].Confidence, 1e-9)
	assert.Equal(t, []string{labelDetection}, fake.features)
}

func TestClassify_CenterCropUploadsSquare(t *testing.T) {
	fake := &fakeVision{body: `{"responses":[{}]}`}
	c := newTestClassifier(t, fake)

	obs, err := c.Classify(context.Background(), testFrame(t, 160, 90), classify.CenterCrop)
	require.NoError(t, err)
	assert.Empty(t, obs)

	require.Len(t, fake.uploads, 1)
	assert.Equal(t, 90, fake.uploads[0].Width)
	assert.Equal(t, 90, fake.uploads[0].Height)
}

func TestClassify_ScaleFitUploadsOriginal(t *testing.T) {
	fake := &fakeVision{body: `{"responses":[{}]}`}
	c := newTestClassifier(t, fake)

	_, err := c.Classify(context.Background(), testFrame(t, 160, 90), classify.ScaleFit)
	require.NoError(t, err)
	assert.Equal(t, 160, fake.uploads[0].Width)
}

func TestClassify_PerImageError(t *testing.T) {
	fake := &fakeVision{body: `{"responses":[{"error":{"code":14,"message":"backend unavailable"}}]}`}
	c := newTestClassifier(t, fake)

	_, err := c.Classify(context.Background(), testFrame(t, 32, 32), classify.CenterCrop)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int64(14), apiErr.Code)
	assert.True(t, apiErr.IsRetryable())
}

func TestClassify_LogsPerImageError(t *testing.T) {
	fake := &fakeVision{body: `{"responses":[{"error":{"code":3,"message":"bad image data"}}]}`}
	var logs bytes.Buffer
	c := newTestClassifier(t, fake, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	_, err := c.Classify(context.Background(), testFrame(t, 32, 32), classify.ScaleFit)
	require.Error(t, err)

	out := logs.String()
	assert.Contains(t, out, "annotate rejected image")
	assert.Contains(t, out, "bad image data")
	assert.Contains(t, out, "classifier=cloudvision")
}

func TestNew_NilLoggerFallsBack(t *testing.T) {
	fake := &fakeVision{body: `{"responses":[{}]}`}
	c := newTestClassifier(t, fake, WithLogger(nil))
	assert.NotNil(t, c.logger)
}

func TestClassify_RejectsEmptyFrames(t *testing.T) {
	c := newTestClassifier(t, &fakeVision{})

	_, err := c.Classify(context.Background(), nil, classify.CenterCrop)
	assert.ErrorIs(t, err, classify.ErrNilFrame)

	_, err = c.Classify(context.Background(), &frame.Frame{}, classify.CenterCrop)
	assert.ErrorIs(t, err, classify.ErrEmptyImage)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Apply(WithMaxResults(0))
	assert.Error(t, cfg.Validate())
}

func TestAPIError(t *testing.T) {
	err := &APIError{Code: 3, Message: "bad image"}
	assert.Equal(t, "cloudvision: API error 3: bad image", err.Error())
	assert.False(t, err.IsRetryable())
}
