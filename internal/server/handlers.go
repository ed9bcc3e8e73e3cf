package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/opgate/internal/scheduler"
	"github.com/me/opgate/pkg/model"
)

// operationView is the API shape of one operation.
type operationView struct {
	model.OpRecord
	QueuePosition int    `json:"queue_position"` // -1 when not pending
	StatusLine    string `json:"status_line"`
}

func (s *Server) view(rec model.OpRecord) operationView {
	pos := -1
	for i, pending := range s.sched.QueueView() {
		if pending.ID == rec.ID {
			pos = i
			break
		}
	}
	return operationView{OpRecord: rec, QueuePosition: pos, StatusLine: rec.Describe()}
}

type submitRequest struct {
	Kind      string `json:"kind"`
	Channel   string `json:"channel"`
	Submitter string `json:"submitter"`

	// Steps is the number of simulated work chunks the operation runs
	// through the cooperative loop. Fail forces a fault at the end:
	// "transport" or "generic".
	Steps int    `json:"steps"`
	Fail  string `json:"fail,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Kind == "" || req.Channel == "" || req.Submitter == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("kind, channel, and submitter are required"))
		return
	}
	if req.Steps < 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("steps must be >= 0"))
		return
	}

	op := s.sched.Create(scheduler.SubmitRequest{
		Kind:      req.Kind,
		Channel:   req.Channel,
		Submitter: req.Submitter,
	})
	s.setWorkload(op.ID(), workload{Steps: req.Steps, Fail: req.Fail})

	go s.sched.Run(s.lifetime, op)

	respondCreated(w, reqID, s.view(op.Record()))
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	recs := s.sched.Operations()
	views := make([]operationView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, s.view(rec))
	}
	respondOK(w, reqID, views)
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	op := s.sched.Get(id)
	if op == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("operation", id))
		return
	}
	respondOK(w, reqID, s.view(op.Record()))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	op := s.sched.Get(id)
	if op == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("operation", id))
		return
	}
	op.Cancel()
	respondOK(w, reqID, s.view(op.Record()))
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	pending := s.sched.QueueView()
	views := make([]operationView, 0, len(pending))
	for i, rec := range pending {
		views = append(views, operationView{OpRecord: rec, QueuePosition: i, StatusLine: rec.Describe()})
	}
	respondOK(w, reqID, views)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("channel query parameter is required"))
		return
	}
	respondOK(w, reqID, map[string]any{
		"channel":  channel,
		"messages": s.notifier.Messages(channel),
	})
}

type connectivityRequest struct {
	Connected bool `json:"connected"`
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	s.gate.SetConnected(req.Connected)
	s.logger.Info("connectivity gate set", "connected", req.Connected)
	respondOK(w, reqID, map[string]any{"connected": req.Connected})
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Pending   int    `json:"pending"`
	Connected bool   `json:"connected"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Pending:   s.queue.Len(),
		Connected: s.gate.IsConnected(),
	})
}
