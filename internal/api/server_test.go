package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	jsonstore "github.com/khanhnv2901/seca-pqc/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/probe"
	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeScanner struct {
	mu        sync.Mutex
	requests  []orchestrator.Request
	cancelled []string
	scanOne   func(domain string) (*scan.Result, error)
	events    []stream.Event
	outcome   *orchestrator.Outcome
}

func (f *fakeScanner) Run(ctx context.Context, req orchestrator.Request, em stream.Emitter) (*orchestrator.Outcome, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if em == nil {
		em = stream.Discard
	}
	for _, e := range f.events {
		em.Emit(e)
	}
	out := &orchestrator.Outcome{
		RequestID: req.RequestID,
		BatchID:   req.BatchID,
		Summary: orchestrator.Totals{
			TotalDomains:    len(req.Domains),
			Successful:      len(req.Domains),
			RoundsCompleted: 1,
			Timestamp:       testNow,
		},
		Duration: 4 * time.Second,
	}
	if f.outcome != nil {
		out = f.outcome
	}
	return out, nil
}

func (f *fakeScanner) ScanOne(ctx context.Context, domain string) (*scan.Result, error) {
	if f.scanOne != nil {
		return f.scanOne(domain)
	}
	return &scan.Result{URL: domain, QuantumScore: 55, QuantumGrade: "C"}, nil
}

func (f *fakeScanner) Cancel(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, requestID)
	return nil
}

type memTelemetry struct {
	mu      sync.Mutex
	records []TelemetryRecord
}

func (m *memTelemetry) Record(_ context.Context, rec TelemetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memTelemetry) Recent(_ context.Context, limit int) ([]TelemetryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[len(m.records)-limit:], nil
}

type pingFailStore struct {
	scan.Store
}

func (pingFailStore) Ping(context.Context) error { return errors.New("disk gone") }

type testEnv struct {
	srv       *Server
	scanner   *fakeScanner
	store     *jsonstore.BatchRepository
	telemetry *memTelemetry
	jobs      *JobManager
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	store, err := jsonstore.NewBatchRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewBatchRepository: %v", err)
	}
	env := &testEnv{
		scanner:   &fakeScanner{},
		store:     store,
		telemetry: &memTelemetry{},
		jobs:      newJobManager(),
	}
	cfg := Config{
		Scanner:   env.scanner,
		Store:     store,
		Telemetry: env.telemetry,
		Jobs:      env.jobs,
		Logger:    zaptest.NewLogger(t),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env.srv = NewServer(cfg)
	return env
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.srv.ServeHTTP(rr, req)
	return rr
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content-type, got %s", got)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteError(t *testing.T) {
	s := NewServer(Config{Logger: zaptest.NewLogger(t)})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rr := httptest.NewRecorder()
	s.writeError(rr, req, http.StatusInternalServerError, errors.New("boom"))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "internal server error") {
		t.Fatalf("expected sanitized 500, got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.writeError(rr, req, http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original 400 message, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestWriteStreamChunk(t *testing.T) {
	s := NewServer(Config{})
	rr := httptest.NewRecorder()
	if !s.writeStreamChunk(rr, []byte("hello")) {
		t.Fatal("expected writeStreamChunk to succeed")
	}
	if rr.Body.String() != "hello" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if s.writeStreamChunk(&failingWriter{}, []byte("fail")) {
		t.Fatalf("expected writeStreamChunk to fail")
	}
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/api/v1/health", want: http.StatusOK},
		{name: "unversioned alias", method: http.MethodGet, path: "/api/health", want: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/api/v1/ready", want: http.StatusOK},
		{name: "wrong method", method: http.MethodGet, path: "/api/v1/scan", want: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.method, tt.path, "")
			if rr.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rr.Code, tt.want, rr.Body.String())
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID on every response")
			}
		})
	}
}

func TestReadyFailsWhenStoreDown(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Store = pingFailStore{} })
	if rr := env.do(http.MethodGet, "/api/v1/ready", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.AuthToken = "secret" })

	if rr := env.do(http.MethodGet, "/api/v1/health", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/health", "", "X-Auth-Token", "wrong"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/health", "", "X-Auth-Token", "secret"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/health?token=secret", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.CORSOrigins = []string{"https://app.example"} })

	rr := env.do(http.MethodOptions, "/api/v1/scan", "", "Origin", "https://app.example")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("unexpected allow origin %q", got)
	}

	rr = env.do(http.MethodOptions, "/api/v1/scan", "", "Origin", "https://evil.example")
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be allowed")
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 1
	})
	if rr := env.do(http.MethodGet, "/api/v1/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("first request = %d", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/health", ""); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{name: "remote with port", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "ipv6 remote", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "forwarded chain", remote: "10.0.0.1:1", forwarded: "198.51.100.7, 10.0.0.1", want: "198.51.100.7"},
		{name: "forwarded single", remote: "10.0.0.1:1", forwarded: "198.51.100.8", want: "198.51.100.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientAddr(req); got != tt.want {
				t.Errorf("clientAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScan_SingleDomain(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/api/v1/scan", `{"domains":"https://Example.com/","requestId":"req-1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res scan.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.URL != "example.com" || res.QuantumGrade != "C" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(env.scanner.requests) != 0 {
		t.Error("a single domain must not run retry rounds")
	}

	job := env.jobs.GetJob("req-1")
	if job == nil || job.Status != JobDone || job.Successful != 1 || job.FinishedAt == nil {
		t.Errorf("unexpected job %+v", job)
	}
	batches, err := env.store.ListBatches(context.Background(), 0, 0)
	if err != nil || len(batches) != 1 || batches[0].Successful != 1 {
		t.Errorf("expected one persisted batch, got %+v (%v)", batches, err)
	}
}

func TestScan_SingleDomainSkipsPersistenceWhenDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodPost, "/api/v1/scan", `{"domains":"example.com","saveResults":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if batches, _ := env.store.ListBatches(context.Background(), 0, 0); len(batches) != 0 {
		t.Errorf("expected no batches, got %d", len(batches))
	}
}

func TestScan_SingleDomainErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{name: "unreachable", err: &probe.UnreachableError{Domain: "gone.example"}, want: http.StatusServiceUnavailable, message: "does not exist"},
		{name: "rate limited", err: &probe.RateLimitedError{Domain: "gone.example"}, want: http.StatusTooManyRequests, message: "rate limited"},
		{name: "timeout", err: &probe.TimeoutError{Domain: "gone.example", Timeout: time.Minute}, want: http.StatusGatewayTimeout, message: "timed out"},
		{name: "tool error", err: &probe.ToolError{Domain: "gone.example", Message: "exit 1"}, want: http.StatusInternalServerError, message: "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.scanner.scanOne = func(string) (*scan.Result, error) { return nil, tt.err }

			rr := env.do(http.MethodPost, "/api/v1/scan", `{"domains":"gone.example","requestId":"req-x"}`)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.message) {
				t.Errorf("body %q lacks %q", rr.Body.String(), tt.message)
			}
			if job := env.jobs.GetJob("req-x"); job == nil || job.Status != JobError {
				t.Errorf("unexpected job %+v", job)
			}
			detail, err := env.store.ListBatches(context.Background(), 0, 0)
			if err != nil || len(detail) != 1 || detail[0].Failed != 1 {
				t.Errorf("failure should be persisted, got %+v", detail)
			}
		})
	}
}

func TestScan_MultiDomain(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/api/v1/scan", `{"domains":"a.com,A.com, b.com","maxConcurrency":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(env.scanner.requests) != 1 {
		t.Fatalf("expected one run, got %d", len(env.scanner.requests))
	}
	req := env.scanner.requests[0]
	if strings.Join(req.Domains, ",") != "a.com,b.com" || req.MaxConcurrency != 1 || !req.SaveResults {
		t.Errorf("unexpected orchestrator request %+v", req)
	}
	if req.RequestID == "" || req.BatchID == "" {
		t.Error("request and batch IDs must be assigned")
	}

	var out orchestrator.Outcome
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Summary.TotalDomains != 2 {
		t.Errorf("unexpected summary %+v", out.Summary)
	}

	if job := env.jobs.GetJob(req.RequestID); job == nil || job.Status != JobDone || job.Successful != 2 {
		t.Errorf("unexpected job %+v", job)
	}
	if len(env.telemetry.records) != 1 || env.telemetry.records[0].Command != "api.scan" {
		t.Fatalf("expected one telemetry record, got %+v", env.telemetry.records)
	}
	if rec := env.telemetry.records[0]; rec.SuccessRate != 100 || rec.AvgDurationPerScan != 2 {
		t.Errorf("unexpected telemetry %+v", rec)
	}
}

func TestScan_CancelledRunMarksJob(t *testing.T) {
	env := newTestEnv(t, nil)
	env.scanner.outcome = &orchestrator.Outcome{RequestID: "req-c", Cancelled: true}

	rr := env.do(http.MethodPost, "/api/v1/scan", `{"domains":"a.com,b.com","requestId":"req-c"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if job := env.jobs.GetJob("req-c"); job == nil || job.Status != JobCancelled {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestScan_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"domains":`},
		{name: "no domains", body: `{"domains":" , "}`},
		{name: "bad request id", body: `{"domains":"a.com","requestId":"../x"}`},
		{name: "negative concurrency", body: `{"domains":"a.com","maxConcurrency":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := env.do(http.MethodPost, "/api/v1/scan", tt.body); rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestScan_InvalidDomains(t *testing.T) {
	env := newTestEnv(t, nil)
	env.scanner.scanOne = func(domain string) (*scan.Result, error) {
		if err := orchestrator.ValidateDomain(domain); err != nil {
			return nil, err
		}
		return &scan.Result{URL: domain}, nil
	}

	rr := env.do(http.MethodPost, "/api/v1/scan", `{"domains":"co.uk"}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "public suffix") {
		t.Fatalf("single invalid domain: expected 400, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPost, "/api/v1/scan", `{"domains":"good.example,localhost,my_host.example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("multi-domain request must not fail as a whole, got %d: %s", rr.Code, rr.Body.String())
	}
	env.scanner.mu.Lock()
	defer env.scanner.mu.Unlock()
	if len(env.scanner.requests) != 1 || len(env.scanner.requests[0].Domains) != 3 {
		t.Fatalf("every entry should reach the run, got %+v", env.scanner.requests)
	}
}

func TestScanStream(t *testing.T) {
	env := newTestEnv(t, nil)
	env.scanner.events = []stream.Event{
		stream.Start{Header: stream.NewHeader(stream.TypeStart, testNow, stream.Totals{Total: 2}), TotalDomains: 2},
		stream.Complete{Header: stream.NewHeader(stream.TypeComplete, testNow, stream.Totals{Total: 2, Completed: 2})},
	}

	rr := env.do(http.MethodPost, "/api/v1/scan/stream", `{"domains":"a.com,b.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type %q", ct)
	}
	frames := strings.Split(strings.TrimSpace(rr.Body.String()), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), rr.Body.String())
	}
	if !strings.HasPrefix(frames[0], `data: {"type":"start"`) || !strings.HasPrefix(frames[1], `data: {"type":"complete"`) {
		t.Errorf("unexpected frames %q", frames)
	}
}

func TestScanWebSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	env.scanner.events = []stream.Event{
		stream.Start{Header: stream.NewHeader(stream.TypeStart, testNow, stream.Totals{Total: 2}), TotalDomains: 2},
		stream.Complete{Header: stream.NewHeader(stream.TypeComplete, testNow, stream.Totals{Total: 2, Completed: 2})},
	}
	ts := httptest.NewServer(env.srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/scan/ws?domains=a.com,b.com&saveResults=false"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var types []string
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("unexpected read error: %v", err)
			}
			break
		}
		types = append(types, msg["type"].(string))
	}
	if strings.Join(types, ",") != "start,complete" {
		t.Errorf("unexpected event types %v", types)
	}
	env.scanner.mu.Lock()
	defer env.scanner.mu.Unlock()
	if len(env.scanner.requests) != 1 || env.scanner.requests[0].SaveResults {
		t.Errorf("unexpected requests %+v", env.scanner.requests)
	}
}

func TestScanWebSocket_BadQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	if rr := env.do(http.MethodGet, "/api/v1/scan/ws", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before upgrade, got %d", rr.Code)
	}
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodPost, "/api/v1/scans/req-42/cancel", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if len(env.scanner.cancelled) != 1 || env.scanner.cancelled[0] != "req-42" {
		t.Errorf("unexpected cancellations %v", env.scanner.cancelled)
	}
}

func TestResultAndBatchEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	if err := env.store.CreateBatch(ctx, "batch-1", 2, 2); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	for _, d := range []string{"a.com", "b.com"} {
		if err := env.store.SaveResult(ctx, &scan.Result{URL: d, RequestID: d}, "batch-1"); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	rr := env.do(http.MethodGet, "/api/v1/results?domain=a.com", "")
	var records []scan.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil || len(records) != 1 {
		t.Fatalf("unexpected results %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/v1/batches", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"batch_id":"batch-1"`) {
		t.Fatalf("unexpected batches %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/v1/batches/batch-1", "")
	var detail scan.BatchDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil || len(detail.Results) != 2 {
		t.Fatalf("unexpected batch detail %d %s", rr.Code, rr.Body.String())
	}

	if rr := env.do(http.MethodGet, "/api/v1/batches/missing", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing batch, got %d", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/batches/.hidden", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid batch ID, got %d", rr.Code)
	}

	if rr := env.do(http.MethodDelete, "/api/v1/batches/batch-1", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rr.Code)
	}
	if rr := env.do(http.MethodDelete, "/api/v1/batches/batch-1", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rr.Code)
	}
}

func TestStoreDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Store = nil })
	for _, path := range []string{"/api/v1/results", "/api/v1/batches", "/api/v1/batches/x"} {
		if rr := env.do(http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, rr.Code)
		}
	}
	if rr := env.do(http.MethodGet, "/api/v1/ready", ""); rr.Code != http.StatusOK {
		t.Errorf("ready without a store = %d", rr.Code)
	}
}

func TestTelemetryAndJobEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodPost, "/api/v1/scan", `{"domains":"a.com,b.com","requestId":"req-t"}`)

	rr := env.do(http.MethodGet, "/api/v1/telemetry?limit=5", "")
	var records []TelemetryRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil || len(records) != 1 {
		t.Fatalf("unexpected telemetry %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/v1/jobs", "")
	var jobs []Job
	if err := json.Unmarshal(rr.Body.Bytes(), &jobs); err != nil || len(jobs) != 1 || jobs[0].ID != "req-t" {
		t.Fatalf("unexpected jobs %d %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(http.MethodGet, "/api/v1/jobs/req-t", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200 for job, got %d", rr.Code)
	}
	if rr := env.do(http.MethodGet, "/api/v1/jobs/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rr.Code)
	}

	noJobs := newTestEnv(t, func(c *Config) {
		c.Jobs = nil
		c.Telemetry = nil
	})
	for _, path := range []string{"/api/v1/jobs", "/api/v1/jobs-stream", "/api/v1/telemetry"} {
		if rr := noJobs.do(http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", path, rr.Code)
		}
	}
}

func TestJobStream(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/jobs-stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	// Headers are flushed before the handler subscribes.
	deadline := time.Now().Add(2 * time.Second)
	for subscriberCount(env.jobs) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	env.jobs.CreateJob("req-s", JobTypeScan, 1)

	buf := make([]byte, 512)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); !strings.Contains(got, "event: job") {
		t.Errorf("unexpected stream chunk %q", got)
	}
}

func subscriberCount(m *JobManager) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

func TestNewTelemetryRecord(t *testing.T) {
	rec := NewTelemetryRecord("scan", &orchestrator.Outcome{
		RequestID: "r",
		Summary:   orchestrator.Totals{TotalDomains: 4, Successful: 3, Failed: 1, RoundsCompleted: 2, Timestamp: testNow},
		Duration:  8 * time.Second,
	})
	if rec.SuccessRate != 75 || rec.AvgDurationPerScan != 2 || rec.Rounds != 2 || !rec.Timestamp.Equal(testNow) {
		t.Errorf("unexpected record %+v", rec)
	}

	empty := NewTelemetryRecord("scan", &orchestrator.Outcome{})
	if empty.SuccessRate != 0 || empty.Timestamp.IsZero() {
		t.Errorf("unexpected empty record %+v", empty)
	}
}

type failingWriter struct{}

func (f *failingWriter) Header() http.Header { return http.Header{} }
func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}
func (f *failingWriter) WriteHeader(statusCode int) {}
