package classify

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Classify invocation.
type MockCall struct {
	Frame *frame.Frame
	Crop  CropPolicy
	Time  time.Time
}

// NewMock creates a mock returning obs on every call.
func NewMock(obs Observation) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error) {
			return obs, nil
		},
	}
}

// Sequence returns a mock that yields one observation per call and then
// keeps returning the last one.
func Sequence(obs ...Observation) *Mock {
	var (
		mu sync.Mutex
		i  int
	)
	return &Mock{
		ClassifyFunc: func(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(obs) == 0 {
				return nil, nil
			}
			o := obs[i]
			if i < len(obs)-1 {
				i++
			}
			return o, nil
		},
	}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error) {
			return nil, err
		},
	}
}

// Classify calls ClassifyFunc and records the call.
func (m *Mock) Classify(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Frame: f, Crop: crop, Time: time.Now()})
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, f, crop)
	}
	return nil, nil
}

// Name implements Classifier.
func (m *Mock) Name() string {
	return "mock"
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Classify calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
