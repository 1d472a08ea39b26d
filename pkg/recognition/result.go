package recognition

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies what a single tick did.
type Outcome int

const (
	// NoFrame: the source had no frame yet.
	NoFrame Outcome = iota
	// NoDetection: the classifier returned nothing usable.
	NoDetection
	// LowConfidence: the top entry fell below ConfidenceThreshold.
	LowConfidence
	// Unchanged: the label equals the current state.
	Unchanged
	// Updated: the state changed and a Change was published.
	Updated
	// Failed: the classifier returned an error or panicked.
	Failed
	// Overlapped: another tick was still in flight.
	Overlapped
	// Stopped: a new label passed both gates but the loop had shut down or
	// the context ended before the Change was accepted. State is untouched.
	Stopped

	numOutcomes
)

var outcomeNames = [...]string{
	NoFrame:       "no_frame",
	NoDetection:   "no_detection",
	LowConfidence: "low_confidence",
	Unchanged:     "unchanged",
	Updated:       "updated",
	Failed:        "failed",
	Overlapped:    "overlapped",
	Stopped:       "stopped",
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o >= 0 && o < numOutcomes {
		return outcomeNames[o]
	}
	return "unknown"
}

// MarshalText lets outcomes serialize as their names.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result describes one tick.
type Result struct {
	Outcome    Outcome
	Label      string  // extracted label, when the classifier produced one
	Confidence float64 // top-entry confidence
	FrameSeq   uint64
	Duration   time.Duration
	Err        error // set for Failed
}

// Changed reports whether the tick updated the state.
func (r Result) Changed() bool {
	return r.Outcome == Updated
}

// Change announces a state transition to the presentation side.
type Change struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	Previous   string    `json:"previous"`
	Confidence float64   `json:"confidence"`
	FrameSeq   uint64    `json:"frame_seq"`
	Version    uint64    `json:"version"`
	At         time.Time `json:"at"`
}
