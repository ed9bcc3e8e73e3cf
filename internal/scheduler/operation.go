package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/me/opgate/pkg/model"
)

// Operation is one submitted job moving through the admission lifecycle.
// The scheduler owns the record; collaborators hold the Operation as a
// non-owning handle and may introspect or cancel it at any time.
type Operation struct {
	sched *Scheduler
	rec   *model.OpRecord

	mu sync.Mutex // guards rec.State and rec.StartedAt

	// canceledNotice guarantees at most one "canceled" message per
	// operation, whichever path observes the cancel first. Duplicate
	// drops consume it with a no-op so they stay silent.
	canceledNotice sync.Once
}

// ID returns the operation's identifier.
func (o *Operation) ID() string {
	return o.rec.ID
}

// State returns the current lifecycle state.
func (o *Operation) State() model.OpState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rec.State
}

// Record returns a point-in-time copy of the record, safe to render or
// serialize while the operation keeps moving.
func (o *Operation) Record() model.OpRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.rec
}

// Describe renders the record's one-line status.
func (o *Operation) Describe() string {
	rec := o.Record()
	return rec.Describe()
}

// transition moves the record to next if the state machine allows it.
func (o *Operation) transition(next model.OpState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.rec.State.CanTransitionTo(next) {
		o.sched.logger.Debug("state transition refused",
			"error", &model.InvalidTransitionError{OpID: o.rec.ID, From: o.rec.State, To: next})
		return false
	}
	o.rec.State = next
	return true
}

// Await runs the admission protocol, polling eligibility once per poll
// interval until the operation may run. It returns true once admitted
// and false if the operation was canceled while waiting, whether by
// duplicate eviction, an external Cancel, or context cancellation.
//
// The first pass that finds no free slot sends the submitter a one-time
// "queued" notice reporting the operation ID and queue size.
func (o *Operation) Await(ctx context.Context) bool {
	s := o.sched
	for {
		if o.rec.Privileged {
			s.queue.PromoteToFront(o.rec)
		}

		if dup := s.queue.Duplicate(o.rec); dup != nil {
			// An older operation with the same kind and channel is
			// still pending. The newer submission is dropped without
			// a message.
			s.logger.Info("duplicate operation dropped",
				"op_id", o.rec.ID, "identity", o.rec.Identity().String(), "conflicts_with", dup.ID)
			o.canceledNotice.Do(func() {})
			o.Cancel()
			return false
		}

		if o.State() == model.OpStateCanceled {
			o.notifyCanceled(ctx)
			return false
		}

		if s.queue.Eligible(o.rec, s.cfg.BaseSlots, s.cfg.ExtraSlots) {
			if !o.transition(model.OpStateAwaitDone) {
				o.notifyCanceled(ctx)
				return false
			}
			o.mu.Lock()
			now := time.Now().UTC()
			o.rec.StartedAt = &now
			o.mu.Unlock()
			return true
		}

		// Ready → Awaiting happens once; the transition gates the notice.
		if o.transition(model.OpStateAwaiting) {
			o.notifyQueued(ctx)
		}

		select {
		case <-ctx.Done():
			o.Cancel()
			o.notifyCanceled(ctx)
			return false
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// Execute hands control to the execution callback and routes any fault
// to the error sink: transport faults on the dedicated channel, all
// others on the generic one. Finalisation always runs; after Execute
// returns the record is terminal and absent from the admission queue.
func (o *Operation) Execute(ctx context.Context) {
	defer o.Finalise()

	if !o.transition(model.OpStateRunning) {
		// Canceled between admission and dispatch; never invoke the callback.
		return
	}

	err := o.sched.collab.Exec.Execute(ctx, o)
	if err == nil {
		return
	}

	var terr *model.TransportError
	if errors.As(err, &terr) {
		o.sched.collab.Sink.ReportTransportError(terr, o.Record())
		return
	}
	o.sched.collab.Sink.ReportGenericError(err, o.Record())
}

// AwaitConnection blocks while the transport is disconnected, polling
// the connectivity gate once per poll interval. It returns true iff the
// operation was canceled in the meantime; regaining connectivity alone
// never cancels.
func (o *Operation) AwaitConnection(ctx context.Context) bool {
	s := o.sched
	for {
		st := o.State()
		if st.IsTerminal() || s.collab.Gate.IsConnected() {
			return st == model.OpStateCanceled
		}
		select {
		case <-ctx.Done():
			return o.State() == model.OpStateCanceled
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// Cancel marks the operation canceled and removes it from the admission
// queue. Callable at any time, from any goroutine, including from the
// operation's own callback. Calls after a terminal state only ensure the
// record is absent from the queue.
//
// Cancellation is cooperative: a running callback keeps executing until
// its next AwaitConnection or RunLoop check.
func (o *Operation) Cancel() {
	o.mu.Lock()
	if !o.rec.State.IsTerminal() {
		o.rec.State = model.OpStateCanceled
	}
	o.mu.Unlock()
	o.sched.queue.Remove(o.rec)
}

// Finalise marks the operation finished and removes it from the
// admission queue. A record canceled earlier keeps its Canceled state;
// either way the record never re-enters the queue.
func (o *Operation) Finalise() {
	o.mu.Lock()
	if !o.rec.State.IsTerminal() {
		o.rec.State = model.OpStateFinished
	}
	o.mu.Unlock()
	o.sched.queue.Remove(o.rec)
}

// notifyQueued tells the submitter their operation is waiting. Called at
// most once, on the Ready → Awaiting transition.
func (o *Operation) notifyQueued(ctx context.Context) {
	s := o.sched
	pos := s.queue.Position(o.rec)
	text := fmt.Sprintf("%s: operation %s is queued at position %d (%d pending)",
		o.rec.Submitter, o.rec.ID, pos, s.queue.Len())
	if err := s.collab.Notifier.Send(ctx, o.rec.Channel, text); err != nil {
		s.logger.Warn("queued notice failed", "op_id", o.rec.ID, "error", err)
	}
}

// notifyCanceled tells the submitter their operation was canceled.
// Exactly once per operation across the Await and RunLoop paths.
func (o *Operation) notifyCanceled(ctx context.Context) {
	o.canceledNotice.Do(func() {
		s := o.sched
		text := fmt.Sprintf("%s: operation %s was canceled", o.rec.Submitter, o.rec.ID)
		if err := s.collab.Notifier.Send(ctx, o.rec.Channel, text); err != nil {
			s.logger.Warn("cancel notice failed", "op_id", o.rec.ID, "error", err)
		}
	})
}
