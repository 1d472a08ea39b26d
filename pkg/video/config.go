package video

import (
	"errors"
	"log/slog"
	"net/url"
	"time"
)

// Config holds WebRTC receiver settings.
type Config struct {
	// SignallingURL is the GStreamer webrtcsink signalling server,
	// e.g. ws://192.168.1.50:8443.
	SignallingURL string

	// ProducerName selects the producer whose meta "name" matches.
	ProducerName string

	// DecodeInterval bounds how often a frame is decoded from the stream.
	DecodeInterval time.Duration

	// DecodeTimeout bounds a single ffmpeg decode.
	DecodeTimeout time.Duration

	// ConnectTimeout bounds the handshake and the wait for the first track.
	ConnectTimeout time.Duration

	// FFmpegPath is the ffmpeg binary used for decoding.
	FFmpegPath string

	Logger *slog.Logger
}

// DefaultConfig returns settings that decode at the recognition tick rate.
func DefaultConfig() Config {
	return Config{
		ProducerName:   "camera",
		DecodeInterval: 100 * time.Millisecond,
		DecodeTimeout:  500 * time.Millisecond,
		ConnectTimeout: 15 * time.Second,
		FFmpegPath:     "ffmpeg",
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.SignallingURL == "" {
		return errors.New("signalling URL is required")
	}
	u, err := url.Parse(c.SignallingURL)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("signalling URL must be ws:// or wss://")
	}
	if c.ProducerName == "" {
		return errors.New("producer name is required")
	}
	if c.DecodeInterval <= 0 || c.DecodeTimeout <= 0 || c.ConnectTimeout <= 0 {
		return errors.New("intervals and timeouts must be positive")
	}
	return nil
}
