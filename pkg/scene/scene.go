// Package scene places the recognized label in front of the camera.
//
// The renderer itself is external; this package only decides where the
// annotation goes and keeps the scene down to a single anchor.
package scene

import (
	"image/color"
	"math/rand"
	"sync"
)

// LabelDistance is how far in front of the camera the label floats.
const LabelDistance = 0.5

// Pose is a rigid transform stored as a column-major 4x4 matrix, matching
// the layout of AR camera transforms.
type Pose [16]float64

// Identity returns the identity pose.
func Identity() Pose {
	return Pose{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a pose that moves by (x, y, z).
func Translation(x, y, z float64) Pose {
	p := Identity()
	p[12], p[13], p[14] = x, y, z
	return p
}

// Mul returns p * q.
func (p Pose) Mul(q Pose) Pose {
	var out Pose
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += p[k*4+row] * q[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Position returns the translation component.
func (p Pose) Position() (x, y, z float64) {
	return p[12], p[13], p[14]
}

// Anchor is one annotation in world space.
type Anchor struct {
	Transform Pose       `json:"transform"`
	Text      string     `json:"text"`
	Color     color.RGBA `json:"color"`
}

// PlaceLabel anchors text LabelDistance along the camera's forward axis.
// Cameras look down their local -Z axis.
func PlaceLabel(camera Pose, text string, c color.RGBA) Anchor {
	return Anchor{
		Transform: camera.Mul(Translation(0, 0, -LabelDistance)),
		Text:      text,
		Color:     c,
	}
}

// Scene holds the anchors currently placed. It keeps at most one: every
// Refresh removes what was there before.
type Scene struct {
	mu      sync.RWMutex
	anchors []Anchor
	colors  map[string]color.RGBA
	rng     *rand.Rand
}

// New creates an empty scene. seed makes label colours reproducible.
func New(seed int64) *Scene {
	return &Scene{
		colors: make(map[string]color.RGBA),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Refresh clears previous anchors and places one for text at the camera.
func (s *Scene) Refresh(camera Pose, text string) Anchor {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := PlaceLabel(camera, text, s.colorFor(text))
	s.anchors = append(s.anchors[:0], a)
	return a
}

// Anchors returns a copy of the placed anchors.
func (s *Scene) Anchors() []Anchor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Anchor(nil), s.anchors...)
}

// Clear removes every anchor.
func (s *Scene) Clear() {
	s.mu.Lock()
	s.anchors = s.anchors[:0]
	s.mu.Unlock()
}

// colorFor assigns each label a random opaque colour the first time it is
// seen and reuses it afterwards.
func (s *Scene) colorFor(text string) color.RGBA {
	if c, ok := s.colors[text]; ok {
		return c
	}
	c := color.RGBA{
		R: uint8(s.rng.Intn(256)),
		G: uint8(s.rng.Intn(256)),
		B: uint8(s.rng.Intn(256)),
		A: 255,
	}
	s.colors[text] = c
	return c
}
