// Package server is the REST facade around the admission core: the
// surrounding system that creates operations, drives their lifecycle in
// background goroutines, and exposes queue state and channel messages.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/opgate/internal/config"
	"github.com/me/opgate/internal/queue"
	"github.com/me/opgate/internal/scheduler"
	"github.com/me/opgate/pkg/model"
)

// Server is the opgate REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time

	sched    *scheduler.Scheduler
	queue    *queue.AdmissionQueue
	notifier *ChannelLog
	gate     *ToggleGate

	// lifetime outlives individual requests; operation goroutines run
	// under it so an admitted operation survives its submit request.
	lifetime context.Context
	stop     context.CancelFunc

	mu        sync.Mutex
	workloads map[string]workload // op ID → simulated work
}

// workload describes the simulated business logic attached to a
// submitted operation.
type workload struct {
	Steps int
	Fail  string // "", "transport", "generic"
}

// New creates a Server with all routes registered and a scheduler wired
// to in-memory collaborators.
func New(cfg config.Config, logger *slog.Logger) *Server {
	lifetime, stop := context.WithCancel(context.Background())

	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		queue:     queue.New(),
		notifier:  NewChannelLog(),
		gate:      NewToggleGate(),
		lifetime:  lifetime,
		stop:      stop,
		workloads: make(map[string]workload),
	}

	s.sched = scheduler.New(s.queue, cfg, scheduler.Collaborators{
		Notifier:   s.notifier,
		Gate:       s.gate,
		Privileges: NewListPrivileges(cfg.Privileged),
		Exec:       scheduler.ExecFunc(s.execute),
		Sink:       scheduler.SlogSink{Logger: logger},
	}, logger)

	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close cancels the lifetime context, asking in-flight operations to
// wind down at their next cooperative check.
func (s *Server) Close() {
	s.stop()
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/operations", func(r chi.Router) {
			r.Get("/", s.handleListOperations)
			r.Post("/", s.handleSubmit)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetOperation)
				r.Put("/cancel", s.handleCancel)
			})
		})
		r.Get("/queue", s.handleQueue)
		r.Get("/messages", s.handleMessages)
		r.Put("/connectivity", s.handleConnectivity)
	})
}

// execute is the scheduler's execution callback: it replays the
// submitted workload through the cooperative loop.
func (s *Server) execute(ctx context.Context, op *scheduler.Operation) error {
	w := s.workload(op.ID())

	i := 0
	canceled, err := op.RunLoop(ctx,
		func() bool { return i < w.Steps },
		func() bool { i++; return false })
	if err != nil {
		return err
	}
	if canceled {
		return nil
	}

	switch w.Fail {
	case "transport":
		rec := op.Record()
		return &model.TransportError{OpID: rec.ID, Channel: rec.Channel, Err: errors.New("simulated transport fault")}
	case "generic":
		return errors.New("simulated fault")
	}
	return nil
}

func (s *Server) workload(opID string) workload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workloads[opID]
}

func (s *Server) setWorkload(opID string, w workload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workloads[opID] = w
}
