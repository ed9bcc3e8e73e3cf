// Package scheduler drives submitted operations from creation through
// admission to completion: it decides whether an operation runs now,
// waits behind others, bypasses the queue, is dropped as a duplicate, or
// is canceled mid-flight.
package scheduler

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/me/opgate/internal/config"
	"github.com/me/opgate/internal/queue"
	"github.com/me/opgate/pkg/model"
)

// Collaborators are the external contracts the scheduler consumes.
// Sink and Yield may be nil; defaults are applied by New.
type Collaborators struct {
	Notifier   Notifier
	Gate       ConnectivityGate
	Privileges PrivilegeResolver
	Exec       ExecutionCallback
	Sink       ErrorSink
	Yield      Yielder
}

// Scheduler owns one admission queue and orchestrates the lifecycle of
// every operation submitted to it.
type Scheduler struct {
	queue  *queue.AdmissionQueue
	cfg    config.Config
	collab Collaborators
	logger *slog.Logger

	seq atomic.Uint64

	mu  sync.Mutex
	ops map[string]*Operation // all operations by ID, terminal ones included
}

// New creates a scheduler around the given admission queue.
func New(q *queue.AdmissionQueue, cfg config.Config, collab Collaborators, logger *slog.Logger) *Scheduler {
	if collab.Sink == nil {
		collab.Sink = SlogSink{Logger: logger}
	}
	if collab.Yield == nil {
		collab.Yield = GoschedYielder{}
	}
	return &Scheduler{
		queue:  q,
		cfg:    cfg,
		collab: collab,
		logger: logger.With("component", "scheduler"),
		ops:    make(map[string]*Operation),
	}
}

// SubmitRequest carries what a submitter provides when creating an
// operation.
type SubmitRequest struct {
	Kind      string
	Channel   string
	Submitter string
}

// Create builds an operation record in Ready state, snapshots a
// diagnostic heap figure, and appends the record to the admission queue.
// Creation always succeeds; capacity is enforced later, at admission.
func (s *Scheduler) Create(req SubmitRequest) *Operation {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	rec := &model.OpRecord{
		ID:               "op_" + uuid.New().String(),
		Kind:             req.Kind,
		Channel:          req.Channel,
		Submitter:        req.Submitter,
		Seq:              s.seq.Add(1),
		Privileged:       s.collab.Privileges.IsPrivileged(req.Submitter),
		Large:            s.cfg.IsLarge(req.Kind),
		State:            model.OpStateReady,
		CreatedAt:        time.Now().UTC(),
		MemoryAtCreation: ms.HeapAlloc,
	}

	op := &Operation{sched: s, rec: rec}
	s.queue.Add(rec)

	s.mu.Lock()
	s.ops[rec.ID] = op
	s.mu.Unlock()

	s.logger.Debug("operation created",
		"op_id", rec.ID, "kind", rec.Kind, "channel", rec.Channel,
		"submitter", rec.Submitter, "privileged", rec.Privileged, "large", rec.Large)
	return op
}

// Run drives op through its full lifecycle: admission wait, dispatch,
// finalisation. It returns once the operation is terminal.
func (s *Scheduler) Run(ctx context.Context, op *Operation) {
	if !op.Await(ctx) {
		s.logger.Info("operation canceled before admission", "op_id", op.ID())
		return
	}
	op.Execute(ctx)
	s.logger.Info("operation finished", "op_id", op.ID(), "state", op.State())
}

// Get returns the operation with the given ID, or nil.
func (s *Scheduler) Get(id string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops[id]
}

// Operations returns a point-in-time copy of every known record,
// terminal ones included.
func (s *Scheduler) Operations() []model.OpRecord {
	s.mu.Lock()
	ops := make([]*Operation, 0, len(s.ops))
	for _, op := range s.ops {
		ops = append(ops, op)
	}
	s.mu.Unlock()

	out := make([]model.OpRecord, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Record())
	}
	return out
}

// QueueView returns a copy of the pending records in queue order.
func (s *Scheduler) QueueView() []model.OpRecord {
	snap := s.queue.Snapshot()
	out := make([]model.OpRecord, 0, len(snap))
	for _, rec := range snap {
		if op := s.Get(rec.ID); op != nil {
			out = append(out, op.Record())
		}
	}
	return out
}
