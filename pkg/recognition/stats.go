package recognition

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats are operational counters for a loop.
type Stats struct {
	Ticks     uint64             `json:"ticks"`
	Outcomes  map[Outcome]uint64 `json:"outcomes"`
	LastError string             `json:"last_error,omitempty"`
	LastTick  time.Duration      `json:"last_tick_ns"`
}

type stats struct {
	ticks    atomic.Uint64
	outcomes [numOutcomes]atomic.Uint64

	mu        sync.Mutex
	lastError string
	lastTick  time.Duration
}

func (s *stats) record(res Result) {
	s.ticks.Add(1)
	if res.Outcome >= 0 && res.Outcome < numOutcomes {
		s.outcomes[res.Outcome].Add(1)
	}
	if res.Outcome == Overlapped {
		return
	}

	s.mu.Lock()
	s.lastTick = res.Duration
	if res.Err != nil {
		s.lastError = res.Err.Error()
	}
	s.mu.Unlock()
}

// Stats returns a snapshot of the loop's counters.
func (l *Loop) Stats() Stats {
	out := Stats{
		Ticks:    l.stats.ticks.Load(),
		Outcomes: make(map[Outcome]uint64, numOutcomes),
	}
	for o := Outcome(0); o < numOutcomes; o++ {
		if n := l.stats.outcomes[o].Load(); n > 0 {
			out.Outcomes[o] = n
		}
	}

	l.stats.mu.Lock()
	out.LastError = l.stats.lastError
	out.LastTick = l.stats.lastTick
	l.stats.mu.Unlock()
	return out
}
