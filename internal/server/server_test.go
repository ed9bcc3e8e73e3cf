package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/opgate/internal/config"
	"github.com/me/opgate/internal/logging"
	"github.com/me/opgate/pkg/model"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *model.APIError `json:"error"`
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.PollInterval = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	s := New(cfg, logging.Discard())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func doJSON(t *testing.T, method, url string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func decodeView(t *testing.T, data json.RawMessage) operationView {
	t.Helper()
	var v operationView
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode operation view: %v", err)
	}
	return v
}

// waitForState polls the operation endpoint until the record reaches
// want or the deadline passes.
func waitForState(t *testing.T, baseURL, id string, want model.OpState) operationView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last operationView
	for time.Now().Before(deadline) {
		status, env := doJSON(t, http.MethodGet, baseURL+"/api/v1/operations/"+id, nil)
		if status != http.StatusOK {
			t.Fatalf("GET operation returned %d", status)
		}
		last = decodeView(t, env.Data)
		if last.State == want {
			return last
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("operation %s never reached %s (last: %s)", id, want, last.State)
	return last
}

func TestSubmit_RunsToCompletion(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/operations", submitRequest{
		Kind: "prune", Channel: "ops", Submitter: "alice", Steps: 3,
	})
	if status != http.StatusCreated {
		t.Fatalf("submit returned %d: %+v", status, env.Error)
	}
	created := decodeView(t, env.Data)
	if created.ID == "" {
		t.Fatal("submit response missing operation ID")
	}

	final := waitForState(t, ts.URL, created.ID, model.OpStateFinished)
	if final.QueuePosition != -1 {
		t.Errorf("finished operation still pending at position %d", final.QueuePosition)
	}
	if final.StartedAt == nil {
		t.Error("finished operation should have a start timestamp")
	}

	// The queue drains once everything finished.
	_, env = doJSON(t, http.MethodGet, ts.URL+"/api/v1/queue", nil)
	var pending []operationView
	if err := json.Unmarshal(env.Data, &pending); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("queue should be empty, got %d entries", len(pending))
	}
}

func TestSubmit_Validation(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/operations", submitRequest{
		Channel: "ops", Submitter: "alice",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("submit without kind returned %d, want 400", status)
	}
	if env.Error == nil || env.Error.Code != model.ErrValidation {
		t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
}

func TestGetOperation_NotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, env := doJSON(t, http.MethodGet, ts.URL+"/api/v1/operations/op_missing", nil)
	if status != http.StatusNotFound {
		t.Fatalf("GET missing operation returned %d, want 404", status)
	}
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
}

func TestCancel_QueuedOperation(t *testing.T) {
	s, ts := newTestServer(t, func(c *config.Config) { c.BaseSlots = 0; c.ExtraSlots = 0 })

	_, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/operations", submitRequest{
		Kind: "prune", Channel: "ops", Submitter: "alice", Steps: 1,
	})
	created := decodeView(t, env.Data)

	waitForState(t, ts.URL, created.ID, model.OpStateAwaiting)

	status, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/operations/"+created.ID+"/cancel", nil)
	if status != http.StatusOK {
		t.Fatalf("cancel returned %d", status)
	}
	waitForState(t, ts.URL, created.ID, model.OpStateCanceled)

	// One queued notice, then one cancel notice.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.notifier.Messages("ops")) >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	msgs := s.notifier.Messages("ops")
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want queued + canceled", msgs)
	}
	if !strings.Contains(msgs[0], "queued") || !strings.Contains(msgs[1], "canceled") {
		t.Errorf("messages = %v, want queued then canceled", msgs)
	}
}

func TestSubmit_DuplicateDroppedSilently(t *testing.T) {
	s, ts := newTestServer(t, func(c *config.Config) { c.BaseSlots = 0; c.ExtraSlots = 0 })

	_, env := doJSON(t, http.MethodPost, ts.URL+"/api/v1/operations", submitRequest{
		Kind: "prune", Channel: "ops", Submitter: "alice", Steps: 1,
	})
	first := decodeView(t, env.Data)
	waitForState(t, ts.URL, first.ID, model.OpStateAwaiting)

	_, env = doJSON(t, http.MethodPost, ts.URL+"/api/v1/operations", submitRequest{
		Kind: "prune", Channel: "ops", Submitter: "bob", Steps: 1,
	})
	second := decodeView(t, env.Data)

	waitForState(t, ts.URL, second.ID, model.OpStateCanceled)

	// The older operation stays queued; the drop sends no message.
	got := waitForState(t, ts.URL, first.ID, model.OpStateAwaiting)
	if got.QueuePosition != 0 {
		t.Errorf("first operation position = %d, want 0", got.QueuePosition)
	}
	msgs := s.notifier.Messages("ops")
	for _, m := range msgs {
		if strings.Contains(m, second.ID) {
			t.Errorf("duplicate drop must be silent, got %q", m)
		}
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, env := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz returned %d", status)
	}
	var hr healthResponse
	if err := json.Unmarshal(env.Data, &hr); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if hr.Status != "healthy" || !hr.Connected {
		t.Errorf("health = %+v, want healthy and connected", hr)
	}
}

func TestConnectivityToggle(t *testing.T) {
	s, ts := newTestServer(t, nil)

	status, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/connectivity", connectivityRequest{Connected: false})
	if status != http.StatusOK {
		t.Fatalf("connectivity toggle returned %d", status)
	}
	if s.gate.IsConnected() {
		t.Error("gate should be disconnected after toggle")
	}
}
