package recognition

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable view of the recognition state.
type Snapshot struct {
	Label      string    `json:"label"`
	Recognized bool      `json:"recognized"` // false while Label is the sentinel
	Confidence float64   `json:"confidence"` // of the update that set Label
	Version    uint64    `json:"version"`    // incremented on every change
	UpdatedAt  time.Time `json:"updated_at"`
}

// State is the single shared cell holding the current label. The loop is its
// only writer; any number of goroutines may read it.
type State struct {
	current atomic.Pointer[Snapshot]
}

// NewState returns a state holding the sentinel label.
func NewState() *State {
	s := &State{}
	s.current.Store(&Snapshot{Label: Sentinel})
	return s
}

// Label returns the current label.
func (s *State) Label() string {
	return s.current.Load().Label
}

// Recognized reports whether any label has been recognized yet.
func (s *State) Recognized() bool {
	return s.current.Load().Recognized
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	return *s.current.Load()
}

// set replaces the label and returns the previous snapshot. Only the loop
// calls it.
func (s *State) set(label string, confidence float64, at time.Time) Snapshot {
	prev := s.current.Load()
	s.current.Store(&Snapshot{
		Label:      label,
		Recognized: true,
		Confidence: confidence,
		Version:    prev.Version + 1,
		UpdatedAt:  at,
	})
	return *prev
}
