// Package frame defines camera frames and the sources that supply them.
package frame

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"time"
)

// Frame is one captured camera image. Frames are read-only once published;
// consumers borrow them for the duration of a single classification.
type Frame struct {
	Seq        uint64    // Monotonic per source
	JPEG       []byte    // Encoded image
	Width      int       // Pixels, 0 if unknown
	Height     int       // Pixels, 0 if unknown
	CapturedAt time.Time // Capture timestamp
}

// Source supplies the most recent frame. CurrentFrame never blocks and
// returns false while no frame is available (session starting, tracking lost).
type Source interface {
	CurrentFrame() (*Frame, bool)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (*Frame, bool)

// CurrentFrame calls f.
func (f SourceFunc) CurrentFrame() (*Frame, bool) {
	return f()
}

// FromJPEG builds a frame from encoded JPEG bytes, reading the dimensions
// from the header.
func FromJPEG(data []byte, capturedAt time.Time) (*Frame, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("frame: decode jpeg header: %w", err)
	}
	return &Frame{
		JPEG:       data,
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: capturedAt,
	}, nil
}

// LoadJPEG reads a JPEG file into a frame stamped with the file's mtime.
func LoadJPEG(path string) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	stamp := time.Now()
	if info, err := os.Stat(path); err == nil {
		stamp = info.ModTime()
	}
	return FromJPEG(data, stamp)
}
