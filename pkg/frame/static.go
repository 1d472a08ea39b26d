package frame

import "sync"

// Static replays a fixed list of frames, one per CurrentFrame call. A nil
// entry reports "no frame". After the list is exhausted the last entry
// repeats when Loop is false, or the list restarts when Loop is true.
type Static struct {
	Loop bool

	mu     sync.Mutex
	frames []*Frame
	next   int
	calls  int
}

// NewStatic creates a source replaying frames in order.
func NewStatic(frames ...*Frame) *Static {
	return &Static{frames: frames}
}

// CurrentFrame implements Source.
func (s *Static) CurrentFrame() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if len(s.frames) == 0 {
		return nil, false
	}

	f := s.frames[s.next]
	switch {
	case s.next < len(s.frames)-1:
		s.next++
	case s.Loop:
		s.next = 0
	}
	return f, f != nil
}

// Calls returns how many times CurrentFrame was invoked.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
