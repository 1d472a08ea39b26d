// Package recognition keeps a debounced, confidence-gated label for whatever
// the camera is looking at.
//
// A Loop samples a frame.Source on a fixed cadence, classifies the frame and
// passes the top entry through two gates:
//
//   - confidence gate: entries below ConfidenceThreshold are noise
//   - stability gate: a label equal to the current one is not republished
//
// Labels that pass both gates are written to a State cell and announced as a
// Change on the loop's channel. Dispatch drains that channel and invokes
// presenters, which keeps the hand-off between the sampling goroutine and the
// presentation side explicit.
//
//	state := recognition.NewState()
//	loop := recognition.New(source, classifier, state)
//
//	go recognition.Dispatch(ctx, loop.Changes(), dashboard)
//	if err := loop.Run(ctx); err != nil {
//	    return err
//	}
//
// Every tick yields a Result whose Outcome tells skips (no frame, low
// confidence, unchanged) apart from failures. No outcome stops the loop.
package recognition
