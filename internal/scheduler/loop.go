package scheduler

import (
	"context"
	"errors"
)

// ErrMissingLoopFunc is returned when RunLoop is called without a
// condition or body.
var ErrMissingLoopFunc = errors.New("run loop requires condition and body functions")

// RunLoop iterates body in bounded chunks on behalf of a running
// operation, checking for cancellation and lost connectivity between
// chunks and periodically yielding so other operations sharing the
// runtime get turns.
//
// condition is evaluated before each pass; the loop stops when it
// reports false. body reports true when the work is complete. Large
// kinds yield every LargeYieldEvery iterations, others every YieldEvery.
//
// The boolean result is true iff the loop stopped because the operation
// was canceled; the submitter is notified in that case.
func (o *Operation) RunLoop(ctx context.Context, condition func() bool, body func() bool) (bool, error) {
	if condition == nil || body == nil {
		return false, ErrMissingLoopFunc
	}

	every := o.sched.cfg.YieldEvery
	if o.rec.Large {
		every = o.sched.cfg.LargeYieldEvery
	}

	iterations := 0
	for {
		if o.AwaitConnection(ctx) {
			o.notifyCanceled(ctx)
			return true, nil
		}
		if !condition() {
			return false, nil
		}
		if body() {
			return false, nil
		}
		iterations++
		if iterations%every == 0 {
			o.sched.collab.Yield.Yield()
		}
	}
}
