// Package cloudvision classifies frames with Google Cloud Vision label
// detection.
package cloudvision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/teslashibe/go-realitywrite/internal/httpc"
	"github.com/teslashibe/go-realitywrite/pkg/classify"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

const labelDetection = "LABEL_DETECTION"

// Classifier calls the images:annotate endpoint.
type Classifier struct {
	svc    *vision.Service
	config *Config
	logger *slog.Logger
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates a Cloud Vision classifier.
func New(ctx context.Context, opts ...Option) (*Classifier, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpc.NewClient(cfg.Timeout)
	}

	clientOpts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := vision.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("cloudvision: create service: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{svc: svc, config: cfg, logger: logger.With("classifier", "cloudvision")}, nil
}

// clientOptions selects the credentials. API keys use the library's own
// transport; OAuth2 token sources ride on the configured base HTTP client so
// its timeouts apply to token refreshes as well.
func clientOptions(ctx context.Context, cfg *Config) ([]option.ClientOption, error) {
	if cfg.APIKey != "" {
		return []option.ClientOption{option.WithAPIKey(cfg.APIKey)}, nil
	}

	authCtx := context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)

	var ts oauth2.TokenSource
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("cloudvision: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(authCtx, data, vision.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("cloudvision: parse credentials: %w", err)
		}
		ts = creds.TokenSource
	} else {
		var err error
		ts, err = google.DefaultTokenSource(authCtx, vision.CloudVisionScope)
		if err != nil {
			return nil, fmt.Errorf("cloudvision: default credentials: %w", err)
		}
	}

	return []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(authCtx, ts)),
	}, nil
}

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, f *frame.Frame, crop classify.CropPolicy) (classify.Observation, error) {
	if f == nil {
		return nil, classify.ErrNilFrame
	}
	if len(f.JPEG) == 0 {
		return nil, classify.ErrEmptyImage
	}

	content, err := c.prepare(f, crop)
	if err != nil {
		return nil, err
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(content)},
			Features: []*vision.Feature{{
				Type:       labelDetection,
				MaxResults: c.config.MaxResults,
			}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	return c.observation(resp)
}

// prepare applies the crop policy. Only CenterCrop changes the upload; the
// service accepts any aspect ratio, so fit and fill send the frame as is.
func (c *Classifier) prepare(f *frame.Frame, crop classify.CropPolicy) ([]byte, error) {
	if crop != classify.CenterCrop {
		return f.JPEG, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(f.JPEG))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() == b.Dy() {
		return f.JPEG, nil
	}
	r := classify.CenterCropRect(b.Dx(), b.Dy(), 1).Add(b.Min)

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		c.logger.Debug("crop unsupported, uploading full frame", "type", fmt.Sprintf("%T", img))
		return f.JPEG, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sub.SubImage(r), &jpeg.Options{Quality: c.config.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// observation converts the first response into a ranked observation.
func (c *Classifier) observation(resp *vision.BatchAnnotateImagesResponse) (classify.Observation, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return nil, nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		err := &APIError{Code: r.Error.Code, Message: r.Error.Message}
		c.logger.Warn("annotate rejected image", "code", err.Code, "message", err.Message, "retryable", err.IsRetryable())
		return nil, err
	}

	obs := make(classify.Observation, 0, len(r.LabelAnnotations))
	for _, a := range r.LabelAnnotations {
		if a == nil || a.Description == "" {
			continue
		}
		desc := a.Description
		if c.config.Lowercase {
			desc = strings.ToLower(desc)
		}
		obs = append(obs, classify.Classification{Identifier: desc, Confidence: a.Score})
	}
	return obs.Sorted(), nil
}

// Name implements classify.Classifier.
func (c *Classifier) Name() string {
	return "cloudvision"
}

// Close implements classify.Classifier. The service holds no resources.
func (c *Classifier) Close() error {
	return nil
}
