package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"cup, mug, drinking vessel", "cup"},
		{"banana", "banana"},
		{"banana,plantain", "banana"},
		{"  teddy bear , teddy ", "teddy bear"},
		{"", ""},
		{",orphan", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryLabel(tt.raw))
		})
	}
}

func TestState_StartsAtSentinel(t *testing.T) {
	s := NewState()
	assert.Equal(t, Sentinel, s.Label())
	assert.Equal(t, "No objects recognized", s.Label())
	assert.False(t, s.Recognized())
	assert.Equal(t, uint64(0), s.Snapshot().Version)
}

func TestState_Set(t *testing.T) {
	s := NewState()
	prev := s.set("banana", 0.9, fixedTime)

	assert.Equal(t, Sentinel, prev.Label)
	snap := s.Snapshot()
	assert.Equal(t, "banana", snap.Label)
	assert.True(t, snap.Recognized)
	assert.Equal(t, 0.9, snap.Confidence)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, fixedTime, snap.UpdatedAt)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "no_frame", NoFrame.String())
	assert.Equal(t, "low_confidence", LowConfidence.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "overlapped", Overlapped.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "unknown", Outcome(42).String())

	text, err := Failed.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "failed", string(text))
}
