package classify

import (
	"fmt"
	"image"
)

// CropPolicy controls how a frame is fitted to the model's input shape.
type CropPolicy int

const (
	// CenterCrop scales the shorter side to fit and discards the periphery
	// of the longer side, keeping the aspect ratio.
	CenterCrop CropPolicy = iota
	// ScaleFit scales the whole frame inside the input and pads the rest.
	ScaleFit
	// ScaleFill stretches the whole frame to the input, distorting it.
	ScaleFill
)

// String implements fmt.Stringer.
func (p CropPolicy) String() string {
	switch p {
	case CenterCrop:
		return "center_crop"
	case ScaleFit:
		return "scale_fit"
	case ScaleFill:
		return "scale_fill"
	default:
		return fmt.Sprintf("crop_policy(%d)", int(p))
	}
}

// CenterCropRect returns the largest rectangle with the given aspect ratio
// (width / height) centered inside a w x h image.
func CenterCropRect(w, h int, aspect float64) image.Rectangle {
	if w <= 0 || h <= 0 || aspect <= 0 {
		return image.Rectangle{}
	}

	cw, ch := w, h
	if float64(w)/float64(h) > aspect {
		cw = int(float64(h)*aspect + 0.5)
	} else {
		ch = int(float64(w)/aspect + 0.5)
	}

	x := (w - cw) / 2
	y := (h - ch) / 2
	return image.Rect(x, y, x+cw, y+ch)
}

// FitRect returns the rectangle a w x h image occupies when scaled to fit
// inside dstW x dstH without distortion, centered.
func FitRect(w, h, dstW, dstH int) image.Rectangle {
	if w <= 0 || h <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	scale := float64(dstW) / float64(w)
	if s := float64(dstH) / float64(h); s < scale {
		scale = s
	}
	fw := int(float64(w)*scale + 0.5)
	fh := int(float64(h)*scale + 0.5)

	x := (dstW - fw) / 2
	y := (dstH - fh) / 2
	return image.Rect(x, y, x+fw, y+fh)
}
