package classify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teslashibe/go-realitywrite/pkg/frame"
)

// Chain tries classifiers in order and returns the first successful
// observation. An empty observation counts as success.
type Chain struct {
	classifiers []Classifier
	logger      *slog.Logger
}

// NewChain creates a fallback chain. A nil logger uses slog.Default.
func NewChain(logger *slog.Logger, classifiers ...Classifier) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{classifiers: classifiers, logger: logger}
}

// Classify implements Classifier.
func (c *Chain) Classify(ctx context.Context, f *frame.Frame, crop CropPolicy) (Observation, error) {
	if len(c.classifiers) == 0 {
		return nil, ErrNoClassifiers
	}

	var errs []error
	for _, cl := range c.classifiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		obs, err := cl.Classify(ctx, f, crop)
		if err == nil {
			return obs, nil
		}

		c.logger.Debug("classifier failed, trying next", "backend", cl.Name(), "error", err)
		errs = append(errs, WrapError(cl.Name(), err))
	}
	return nil, &ChainError{Errors: errs}
}

// Name implements Classifier.
func (c *Chain) Name() string {
	return "chain"
}

// Close closes every classifier in the chain.
func (c *Chain) Close() error {
	var errs []error
	for _, cl := range c.classifiers {
		if err := cl.Close(); err != nil {
			errs = append(errs, WrapError(cl.Name(), err))
		}
	}
	return errors.Join(errs...)
}
