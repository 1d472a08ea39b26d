package recognition

import (
	"log/slog"
	"time"
)

type options struct {
	interval     time.Duration
	changeBuffer int
	logger       *slog.Logger
	now          func() time.Time
}

func defaultOptions() options {
	return options{
		interval:     DefaultInterval,
		changeBuffer: 16,
		logger:       slog.Default(),
		now:          time.Now,
	}
}

// Option configures a Loop.
type Option func(*options)

// WithInterval sets the sampling period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithChangeBuffer sets the capacity of the change channel.
func WithChangeBuffer(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.changeBuffer = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
