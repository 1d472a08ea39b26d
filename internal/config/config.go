// Package config provides configuration helpers for go-realitywrite commands.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultSource        = "camera"
	DefaultCameraDevice  = "0"
	DefaultClassifier    = "dnn"
	DefaultModelPath     = "models/mobilenetv2-7.onnx"
	DefaultLabelsPath    = "models/imagenet_labels.txt"
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultDashboardPort = "8080"
	DefaultLogLevel      = "info"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Source          string        // camera, webrtc or file
	CameraDevice    string        // gocv device id, file path or stream URL
	SignallingURL   string        // WebRTC signalling websocket
	ProducerName    string        // WebRTC producer to subscribe to
	Classifier      string        // dnn, cloudvision or chain
	ModelPath       string        // ONNX model for the dnn classifier
	LabelsPath      string        // label file for the dnn classifier
	PollInterval    time.Duration // recognition loop period
	DashboardPort   string        // fiber listen port, empty disables the dashboard
	LogLevel        string
	GoogleAPIKey    string // Cloud Vision API key, optional
	CredentialsFile string // Cloud Vision service account, optional
}

// Load reads the configuration from REALITYWRITE_* environment variables and
// validates it.
func Load() (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv reads the configuration without validating it, so callers can layer
// flags on top before calling Validate. Only unparseable values fail here.
func FromEnv() (Config, error) {
	cfg := Config{
		Source:          Env("REALITYWRITE_SOURCE", DefaultSource),
		CameraDevice:    Env("REALITYWRITE_CAMERA_DEVICE", DefaultCameraDevice),
		SignallingURL:   Env("REALITYWRITE_SIGNALLING_URL", ""),
		ProducerName:    Env("REALITYWRITE_PRODUCER_NAME", ""),
		Classifier:      Env("REALITYWRITE_CLASSIFIER", DefaultClassifier),
		ModelPath:       Env("REALITYWRITE_MODEL_PATH", DefaultModelPath),
		LabelsPath:      Env("REALITYWRITE_LABELS_PATH", DefaultLabelsPath),
		DashboardPort:   Env("REALITYWRITE_DASHBOARD_PORT", DefaultDashboardPort),
		LogLevel:        Env("LOG_LEVEL", DefaultLogLevel),
		GoogleAPIKey:    Env("GOOGLE_API_KEY", ""),
		CredentialsFile: Env("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}

	interval, err := Duration("REALITYWRITE_POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.PollInterval = interval

	return cfg, nil
}

// Validate checks enumerated fields and the poll interval.
func (c Config) Validate() error {
	switch c.Source {
	case "camera", "file":
	case "webrtc":
		if c.SignallingURL == "" {
			return fmt.Errorf("config: webrtc source requires REALITYWRITE_SIGNALLING_URL")
		}
	default:
		return fmt.Errorf("config: unknown source %q", c.Source)
	}

	switch c.Classifier {
	case "dnn", "cloudvision", "chain":
	default:
		return fmt.Errorf("config: unknown classifier %q", c.Classifier)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive, got %v", c.PollInterval)
	}
	return nil
}

// Env returns the value of key, or def when it is unset or blank.
func Env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Duration parses key as a time.Duration, returning def when unset.
func Duration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
