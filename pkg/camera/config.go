// Package camera captures frames from a local capture device and publishes
// them as the pipeline's latest frame.
package camera

import (
	"errors"
	"fmt"
	"strconv"
)

// Config holds capture parameters.
type Config struct {
	Device    string `json:"device"`    // Device index ("0") or a path/URL OpenCV can open
	Width     int    `json:"width"`     // Requested frame width in pixels
	Height    int    `json:"height"`    // Requested frame height in pixels
	Framerate int    `json:"framerate"` // Capture rate
	Quality   int    `json:"quality"`   // JPEG quality 1-100
}

const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns 720p at 30 FPS from the first device.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     1280,
		Height:    720,
		Framerate: 30,
		Quality:   85,
	}
}

// Validate checks the config and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Device == "" {
		errs = append(errs, errors.New("device is required"))
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errs = append(errs, fmt.Errorf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errs = append(errs, fmt.Errorf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errs = append(errs, fmt.Errorf("framerate must be between 1 and %d", MaxFramerate))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, errors.New("quality must be between 1 and 100"))
	}

	return errors.Join(errs...)
}

// deviceID returns an int for numeric devices so OpenCV opens a camera
// index rather than a file named "0".
func deviceID(device string) any {
	if n, err := strconv.Atoi(device); err == nil && n >= 0 {
		return n
	}
	return device
}
