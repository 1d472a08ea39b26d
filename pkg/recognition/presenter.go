package recognition

import "context"

// Presenter is the presentation side of the hand-off. OnStateChanged is
// called at most once per distinct label, from the dispatcher goroutine.
type Presenter interface {
	OnStateChanged(label string)
}

// ChangePresenter is implemented by presenters that want the whole Change
// rather than the label alone. Dispatch prefers it over OnStateChanged.
// The Change is delivered before the State commits it, so presenters should
// take their data from the Change instead of reading State.
type ChangePresenter interface {
	OnChange(c Change)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(label string)

// OnStateChanged calls f.
func (f PresenterFunc) OnStateChanged(label string) {
	f(label)
}

// Dispatch delivers every change to the presenters, in order, until the
// channel is closed or ctx is cancelled. Run it in its own goroutine; it is
// the only place presenters are invoked from.
func Dispatch(ctx context.Context, changes <-chan Change, presenters ...Presenter) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			for _, p := range presenters {
				if cp, ok := p.(ChangePresenter); ok {
					cp.OnChange(c)
					continue
				}
				p.OnStateChanged(c.Label)
			}
		}
	}
}
