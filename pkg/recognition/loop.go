package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-realitywrite/pkg/classify"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// ErrAlreadyRunning is returned when Run is called on a loop that has
// already been started.
var ErrAlreadyRunning = errors.New("recognition: loop already running")

// Loop samples frames and maintains the recognition State.
type Loop struct {
	source     frame.Source
	classifier classify.Classifier
	state      *State
	opts       options
	logger     *slog.Logger

	inFlight atomic.Bool
	started  atomic.Bool

	// changes is closed when Run returns. chMu guards the close against
	// in-progress sends from Tick.
	changes  chan Change
	chMu     sync.RWMutex
	chClosed bool
	done     chan struct{}

	stats      stats
	failStreak int // guarded by inFlight
}

// New creates a loop. It does not start sampling until Run is called.
func New(source frame.Source, classifier classify.Classifier, state *State, opts ...Option) *Loop {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if state == nil {
		state = NewState()
	}

	return &Loop{
		source:     source,
		classifier: classifier,
		state:      state,
		opts:       o,
		logger:     o.logger.With("component", "recognition"),
		changes:    make(chan Change, o.changeBuffer),
		done:       make(chan struct{}),
	}
}

// State returns the state cell the loop writes to.
func (l *Loop) State() *State {
	return l.state
}

// Interval returns the sampling period.
func (l *Loop) Interval() time.Duration {
	return l.opts.interval
}

// Changes returns the channel on which state transitions are announced, in
// the order their ticks completed. It is closed when Run returns. Someone
// must drain it (see Dispatch); a full channel blocks the loop.
func (l *Loop) Changes() <-chan Change {
	return l.changes
}

// Run samples on every interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.closeChanges()

	ticker := time.NewTicker(l.opts.interval)
	defer ticker.Stop()

	l.logger.Info("recognition loop started",
		"interval", l.opts.interval,
		"classifier", l.classifier.Name(),
		"threshold", ConfidenceThreshold,
		"crop", DefaultCropPolicy)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("recognition loop stopped", "ticks", l.stats.ticks.Load())
			return nil
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick performs one sampling step. It is safe to call concurrently with Run;
// a call made while another tick is in flight returns Overlapped at once.
func (l *Loop) Tick(ctx context.Context) Result {
	if !l.inFlight.CompareAndSwap(false, true) {
		res := Result{Outcome: Overlapped}
		l.stats.record(res)
		return res
	}
	defer l.inFlight.Store(false)

	start := l.opts.now()
	res := l.tick(ctx)
	res.Duration = l.opts.now().Sub(start)

	l.stats.record(res)
	l.logResult(res)
	return res
}

func (l *Loop) tick(ctx context.Context) Result {
	f, ok := l.source.CurrentFrame()
	if !ok || f == nil {
		return Result{Outcome: NoFrame}
	}

	obs, err := l.classify(ctx, f)
	if err != nil {
		return Result{Outcome: Failed, FrameSeq: f.Seq, Err: err}
	}

	top, ok := obs.Top()
	if !ok || !top.Valid() {
		return Result{Outcome: NoDetection, FrameSeq: f.Seq}
	}

	res := Result{
		Label:      PrimaryLabel(top.Identifier),
		Confidence: top.Confidence,
		FrameSeq:   f.Seq,
	}

	switch {
	case top.Confidence < ConfidenceThreshold:
		res.Outcome = LowConfidence
	case res.Label == "":
		res.Outcome = NoDetection
	case res.Label == l.state.Label():
		res.Outcome = Unchanged
	default:
		res.Outcome = l.update(ctx, res)
	}
	return res
}

// classify calls the classifier, converting a panic into an error so a
// misbehaving backend cannot take the loop down.
func (l *Loop) classify(ctx context.Context, f *frame.Frame) (obs classify.Observation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognition: classifier panic: %v", r)
		}
	}()
	return l.classifier.Classify(ctx, f, DefaultCropPolicy)
}

// update announces the change and only then commits it to the state, so
// the label never moves without exactly one Change being delivered. It
// returns Stopped, leaving the state untouched, when the loop has shut down
// or ctx ends before the Change is accepted.
func (l *Loop) update(ctx context.Context, res Result) Outcome {
	prev := l.state.Snapshot()
	at := l.opts.now()
	c := Change{
		ID:         uuid.New(),
		Label:      res.Label,
		Previous:   prev.Label,
		Confidence: res.Confidence,
		FrameSeq:   res.FrameSeq,
		Version:    prev.Version + 1,
		At:         at,
	}

	l.chMu.RLock()
	defer l.chMu.RUnlock()
	if l.chClosed {
		return Stopped
	}

	select {
	case l.changes <- c:
	case <-ctx.Done():
		l.logger.Warn("change not delivered, context done", "label", c.Label)
		return Stopped
	case <-l.done:
		return Stopped
	}

	l.state.set(res.Label, res.Confidence, at)
	return Updated
}

func (l *Loop) closeChanges() {
	close(l.done)
	l.chMu.Lock()
	l.chClosed = true
	close(l.changes)
	l.chMu.Unlock()
}

func (l *Loop) logResult(res Result) {
	switch res.Outcome {
	case Updated:
		l.failStreak = 0
		l.logger.Info("label changed",
			"label", res.Label,
			"confidence", res.Confidence,
			"frame", res.FrameSeq)
	case Failed:
		l.failStreak++
		if l.failStreak == 1 {
			l.logger.Warn("classification failed", "error", res.Err, "frame", res.FrameSeq)
		} else {
			l.logger.Debug("classification failed", "error", res.Err, "streak", l.failStreak)
		}
	default:
		if l.failStreak > 0 {
			l.logger.Info("classification recovered", "failed_ticks", l.failStreak)
			l.failStreak = 0
		}
		l.logger.Debug("tick",
			"outcome", res.Outcome,
			"label", res.Label,
			"confidence", res.Confidence,
			"took", res.Duration)
	}
}
