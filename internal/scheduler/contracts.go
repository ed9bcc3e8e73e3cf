package scheduler

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/me/opgate/pkg/model"
)

// Notifier delivers user-facing messages to an execution context's channel.
// Used for the one-time "queued" and "canceled" notices.
type Notifier interface {
	Send(ctx context.Context, channel, text string) error
}

// ConnectivityGate answers whether the underlying transport is currently
// connected. Side-effect-free snapshot.
type ConnectivityGate interface {
	IsConnected() bool
}

// PrivilegeResolver decides whether a submitter bypasses the queue.
// Consulted once per operation, at creation.
type PrivilegeResolver interface {
	IsPrivileged(submitter string) bool
}

// ErrorSink receives faults raised by execution callbacks. Transport
// faults arrive on a dedicated channel so they keep their routing context.
type ErrorSink interface {
	ReportTransportError(err *model.TransportError, rec model.OpRecord)
	ReportGenericError(err error, rec model.OpRecord)
}

// ExecutionCallback runs an admitted operation's business logic. Invoked
// exactly once per admitted operation.
type ExecutionCallback interface {
	Execute(ctx context.Context, op *Operation) error
}

// ExecFunc adapts a function to the ExecutionCallback interface.
type ExecFunc func(ctx context.Context, op *Operation) error

func (f ExecFunc) Execute(ctx context.Context, op *Operation) error {
	return f(ctx, op)
}

// Yielder cedes control to other operations sharing the runtime. The
// cooperative loop calls it between work chunks.
type Yielder interface {
	Yield()
}

// GoschedYielder yields through the Go runtime scheduler.
type GoschedYielder struct{}

func (GoschedYielder) Yield() {
	runtime.Gosched()
}

// SlogSink reports faults through a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) ReportTransportError(err *model.TransportError, rec model.OpRecord) {
	s.Logger.Error("transport fault", "op_id", rec.ID, "channel", rec.Channel, "error", err)
}

func (s SlogSink) ReportGenericError(err error, rec model.OpRecord) {
	s.Logger.Error("operation fault", "op_id", rec.ID, "kind", rec.Kind, "submitter", rec.Submitter, "error", err)
}
