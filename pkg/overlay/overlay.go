// Package overlay draws the recognized label onto camera frames for the
// dashboard preview.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// Config holds renderer settings.
type Config struct {
	FontScale float64
	Thickness int
	Padding   int // Pixels around the text inside the banner
	Quality   int // JPEG quality 1-100
}

// DefaultConfig returns settings readable on a 720p preview.
func DefaultConfig() Config {
	return Config{
		FontScale: 1.2,
		Thickness: 2,
		Padding:   12,
		Quality:   80,
	}
}

// Renderer annotates frames. It is safe for concurrent use.
type Renderer struct {
	config Config
	mu     sync.Mutex
}

// New creates a renderer.
func New(cfg Config) *Renderer {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultConfig().Quality
	}
	return &Renderer{config: cfg}
}

// Render returns f as JPEG with text drawn on a banner in the middle of the
// frame, where the label appears to float in front of the viewer.
func (r *Renderer) Render(f *frame.Frame, text string, c color.RGBA) ([]byte, error) {
	if f == nil || len(f.JPEG) == 0 {
		return nil, fmt.Errorf("overlay: empty frame")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	img, err := gocv.IMDecode(f.JPEG, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("overlay: decode: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("overlay: empty image")
	}

	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, r.config.FontScale, r.config.Thickness)
	banner, origin := Layout(img.Cols(), img.Rows(), size, r.config.Padding)

	// gocv maps color.RGBA onto the BGR Mat itself.
	if err := gocv.Rectangle(&img, banner, color.RGBA{A: 255}, -1); err != nil {
		return nil, fmt.Errorf("overlay: banner: %w", err)
	}
	if err := gocv.PutText(&img, text, origin, gocv.FontHersheySimplex, r.config.FontScale, c, r.config.Thickness); err != nil {
		return nil, fmt.Errorf("overlay: text: %w", err)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, r.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("overlay: encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Layout centers a text box of the given size in a w x h frame. It returns
// the banner rectangle and the text baseline origin. The banner is clamped
// to the frame.
func Layout(w, h int, text image.Point, padding int) (banner image.Rectangle, origin image.Point) {
	bw := text.X + 2*padding
	bh := text.Y + 2*padding

	x := (w - bw) / 2
	y := (h - bh) / 2
	banner = image.Rect(x, y, x+bw, y+bh).Intersect(image.Rect(0, 0, w, h))

	// PutText's origin is the bottom-left corner of the text.
	origin = image.Pt(x+padding, y+padding+text.Y)
	return banner, origin
}
