package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/probe"
	"github.com/khanhnv2901/seca-pqc/internal/security"
	sharedErrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	persistTimeout  = 10 * time.Second
)

// ScanRequest is the body of the scan endpoints.
type ScanRequest struct {
	Domains        string `json:"domains"`
	MaxConcurrency int    `json:"maxConcurrency"`
	SaveResults    *bool  `json:"saveResults,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}

func (s *Server) parseScanRequest(body ScanRequest) (orchestrator.Request, error) {
	domains, err := orchestrator.ParseDomains(body.Domains)
	if err != nil {
		return orchestrator.Request{}, err
	}
	requestID := body.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	} else if err := security.ValidateName(requestID); err != nil {
		return orchestrator.Request{}, fmt.Errorf("%w: request id: %v", sharedErrors.ErrInvalidInput, err)
	}
	if body.MaxConcurrency < 0 {
		return orchestrator.Request{}, fmt.Errorf("%w: maxConcurrency must not be negative", sharedErrors.ErrInvalidInput)
	}
	save := body.SaveResults == nil || *body.SaveResults
	return orchestrator.Request{
		Domains:        domains,
		MaxConcurrency: body.MaxConcurrency,
		SaveResults:    save && s.cfg.Store != nil,
		RequestID:      requestID,
		BatchID:        uuid.NewString(),
	}, nil
}

func (s *Server) decodeScanRequest(w http.ResponseWriter, r *http.Request) (orchestrator.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return orchestrator.Request{}, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err)
	}
	return s.parseScanRequest(body)
}

func scanRequestFromQuery(q url.Values) ScanRequest {
	body := ScanRequest{
		Domains:   q.Get("domains"),
		RequestID: q.Get("requestId"),
	}
	if v, err := strconv.Atoi(q.Get("maxConcurrency")); err == nil {
		body.MaxConcurrency = v
	}
	if v, err := strconv.ParseBool(q.Get("saveResults")); err == nil {
		body.SaveResults = &v
	}
	return body
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store != nil {
		if err := s.cfg.Store.Ping(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeScanRequest(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if len(req.Domains) == 1 {
		s.scanSingle(w, r, req)
		return
	}

	s.startJob(req, JobTypeScan)
	out, err := s.cfg.Scanner.Run(r.Context(), req, nil)
	s.finishRun(r.Context(), req.RequestID, "api.scan", out, err)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// scanSingle runs one domain without retry rounds and maps its typed
// failure to a status code.
func (s *Server) scanSingle(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	domain := req.Domains[0]
	s.startJob(req, JobTypeScan)

	res, err := s.cfg.Scanner.ScanOne(r.Context(), domain)
	s.persistSingle(r.Context(), req, res, err)
	s.updateJob(req.RequestID, func(j *Job) {
		j.BatchID = req.BatchID
		if err != nil {
			j.Status = JobError
			j.Failed = 1
			j.Error = err.Error()
			return
		}
		j.Status = JobDone
		j.Successful = 1
	})

	if err != nil {
		s.writeScanError(w, r, domain, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) persistSingle(ctx context.Context, req orchestrator.Request, res *scan.Result, scanErr error) {
	if !req.SaveResults || s.cfg.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	logger := s.cfg.Logger.With(zap.String("batch_id", req.BatchID), zap.String("domain", req.Domains[0]))
	if err := s.cfg.Store.CreateBatch(ctx, req.BatchID, 1, 1); err != nil {
		logger.Error("failed to create batch", zap.Error(err))
		return
	}
	successful, failed := 1, 0
	if scanErr != nil {
		successful, failed = 0, 1
		err := s.cfg.Store.SaveFailure(ctx, scan.Failure{
			Domain:    req.Domains[0],
			Error:     scanErr.Error(),
			BatchID:   req.BatchID,
			RequestID: req.RequestID + "_" + req.Domains[0],
			FailedAt:  s.now(),
		})
		if err != nil {
			logger.Error("failed to save failure", zap.Error(err))
		}
	} else if err := s.cfg.Store.SaveResult(ctx, res, req.BatchID); err != nil {
		logger.Error("failed to save result", zap.Error(err))
	}
	if err := s.cfg.Store.UpdateBatchStatus(ctx, req.BatchID, scan.BatchStatusCompleted, successful, failed); err != nil {
		logger.Error("failed to update batch status", zap.Error(err))
	}
}

func scanErrorStatus(err error) int {
	var (
		unreachable *probe.UnreachableError
		limited     *probe.RateLimitedError
		timeout     *probe.TimeoutError
	)
	switch {
	case errors.Is(err, sharedErrors.ErrInvalidDomain), errors.Is(err, sharedErrors.ErrPublicSuffix):
		return http.StatusBadRequest
	case errors.As(err, &unreachable):
		return http.StatusServiceUnavailable
	case errors.As(err, &limited):
		return http.StatusTooManyRequests
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeScanError(w http.ResponseWriter, r *http.Request, domain string, err error) {
	status := scanErrorStatus(err)
	if status == http.StatusInternalServerError {
		s.writeError(w, r, status, err)
		return
	}
	s.requestLogger(r).Warn("scan_failed",
		zap.String("domain", domain),
		zap.Int("status", status),
		zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error(), "domain": domain})
}

func (s *Server) handleScanStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeScanRequest(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sse, err := stream.NewSSEWriter(w, s.requestLogger(r))
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.startJob(req, JobTypeScanStream)
	out, err := s.cfg.Scanner.Run(r.Context(), req, sse)
	s.finishRun(r.Context(), req.RequestID, "api.scan_stream", out, err)
	if sse.Err() != nil {
		s.requestLogger(r).Info("stream client went away", zap.Error(sse.Err()))
	}
}

func (s *Server) handleScanWebSocket(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseScanRequest(scanRequestFromQuery(r.URL.Query()))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.requestLogger(r).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	logger := s.requestLogger(r)
	sink := stream.NewWebSocketSink(conn, logger)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go sink.WatchPeer(cancel)

	s.startJob(req, JobTypeScanWS)
	out, err := s.cfg.Scanner.Run(ctx, req, sink)
	s.finishRun(r.Context(), req.RequestID, "api.scan_ws", out, err)
	if err := sink.Close(); err != nil {
		logger.Debug("websocket close", zap.Error(err))
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if err := s.cfg.Scanner.Cancel(r.Context(), requestID); err != nil {
		if errors.Is(err, sharedErrors.ErrEmptyRequestID) {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.requestLogger(r).Info("scan_cancel_requested", zap.String("scan_request_id", requestID))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "cancelling",
		"request_id": requestID,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	q := r.URL.Query()
	records, err := s.cfg.Store.ListResults(r.Context(), scan.ResultFilter{
		Domain:  q.Get("domain"),
		BatchID: q.Get("batch_id"),
		Limit:   queryInt(q, "limit", defaultPageSize, maxPageSize),
		Offset:  queryInt(q, "offset", 0, 0),
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	q := r.URL.Query()
	batches, err := s.cfg.Store.ListBatches(r.Context(),
		queryInt(q, "limit", defaultPageSize, maxPageSize),
		queryInt(q, "offset", 0, 0))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	detail, err := s.cfg.Store.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	batchID := chi.URLParam(r, "batchID")
	if err := s.cfg.Store.DeleteBatch(r.Context(), batchID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "batch_id": batchID})
}

func (s *Server) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.Store == nil {
		s.writeError(w, r, http.StatusNotFound, sharedErrors.ErrStoreDisabled)
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sharedErrors.ErrBatchNotFound), errors.Is(err, sharedErrors.ErrResultNotFound):
		s.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, sharedErrors.ErrInvalidBatchID), errors.Is(err, sharedErrors.ErrInvalidInput):
		s.writeError(w, r, http.StatusBadRequest, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Telemetry == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("telemetry not available"))
		return
	}
	limit := s.cfg.TelemetryLimit
	if limit <= 0 {
		limit = 10
	}
	limit = queryInt(r.URL.Query(), "limit", limit, 0)
	records, err := s.cfg.Telemetry.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	limit := queryInt(r.URL.Query(), "limit", 25, 0)
	writeJSON(w, http.StatusOK, s.cfg.Jobs.ListJobs(limit))
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	job := s.cfg.Jobs.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("job service not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, stream.ErrStreamingUnsupported)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, unsubscribe := s.cfg.Jobs.Subscribe()
	defer unsubscribe()
	ctx := r.Context()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(job)
			if err != nil {
				s.cfg.Logger.Error("failed to marshal job", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: job\n")) {
				return
			}
			if !s.writeStreamChunk(w, []byte("data: ")) {
				return
			}
			if !s.writeStreamChunk(w, payload) {
				return
			}
			if !s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) startJob(req orchestrator.Request, jobType string) {
	if s.cfg.Jobs == nil {
		return
	}
	s.cfg.Jobs.CreateJob(req.RequestID, jobType, len(req.Domains))
	s.updateJob(req.RequestID, func(j *Job) {
		now := s.now()
		j.Status = JobRunning
		j.StartedAt = &now
	})
}

func (s *Server) updateJob(id string, update func(*Job)) {
	if s.cfg.Jobs == nil {
		return
	}
	s.cfg.Jobs.UpdateJob(id, func(j *Job) {
		update(j)
		if j.finished() && j.FinishedAt == nil {
			now := s.now()
			j.FinishedAt = &now
		}
	})
}

// finishRun closes the job of a multi-domain run and appends its telemetry.
func (s *Server) finishRun(ctx context.Context, requestID, command string, out *orchestrator.Outcome, runErr error) {
	s.updateJob(requestID, func(j *Job) {
		switch {
		case runErr != nil:
			j.Status = JobError
			j.Error = runErr.Error()
		case out.Cancelled:
			j.Status = JobCancelled
		default:
			j.Status = JobDone
		}
		if out != nil {
			j.BatchID = out.BatchID
			j.Successful = out.Summary.Successful
			j.Failed = out.Summary.Failed
		}
	})
	if runErr != nil || out == nil || s.cfg.Telemetry == nil {
		return
	}
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.cfg.Telemetry.Record(tctx, NewTelemetryRecord(command, out)); err != nil {
		s.cfg.Logger.Warn("failed to record telemetry", zap.String("request_id", requestID), zap.Error(err))
	}
}

// queryInt reads a positive integer parameter. max <= 0 means unbounded.
func queryInt(q url.Values, key string, def, max int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
