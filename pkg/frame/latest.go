package frame

import (
	"sync"
	"sync/atomic"
)

// Latest holds only the newest published frame. Publishing never blocks and
// overwrites whatever was there; readers always get the most recent frame.
type Latest struct {
	mu    sync.RWMutex
	frame *Frame

	seq         atomic.Uint64
	published   atomic.Uint64
	overwritten atomic.Uint64
	reads       atomic.Uint64
	lastRead    atomic.Uint64
}

// Stats are operational counters for a Latest mailbox.
type Stats struct {
	Published   uint64 `json:"published"`
	Overwritten uint64 `json:"overwritten"` // published but never read
	Reads       uint64 `json:"reads"`
}

// NewLatest returns an empty mailbox.
func NewLatest() *Latest {
	return &Latest{}
}

// Publish stores f as the current frame, assigning it the next sequence
// number. f must not be modified afterwards.
func (l *Latest) Publish(f *Frame) {
	if f == nil {
		return
	}
	f.Seq = l.seq.Add(1)

	l.mu.Lock()
	if l.frame != nil && l.frame.Seq > l.lastRead.Load() {
		l.overwritten.Add(1)
	}
	l.frame = f
	l.mu.Unlock()

	l.published.Add(1)
}

// CurrentFrame implements Source.
func (l *Latest) CurrentFrame() (*Frame, bool) {
	l.mu.RLock()
	f := l.frame
	l.mu.RUnlock()

	if f == nil {
		return nil, false
	}
	l.reads.Add(1)
	l.lastRead.Store(f.Seq)
	return f, true
}

// Reset drops the current frame, e.g. after the underlying stream is lost.
func (l *Latest) Reset() {
	l.mu.Lock()
	l.frame = nil
	l.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (l *Latest) Stats() Stats {
	return Stats{
		Published:   l.published.Load(),
		Overwritten: l.overwritten.Load(),
		Reads:       l.reads.Load(),
	}
}
