package api

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/seca-pqc/internal/api/middleware"
	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/orchestrator"
	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

const maxBodyBytes = 1 << 20

// Scanner runs scans. *orchestrator.Orchestrator implements it.
type Scanner interface {
	Run(ctx context.Context, req orchestrator.Request, em stream.Emitter) (*orchestrator.Outcome, error)
	ScanOne(ctx context.Context, domain string) (*scan.Result, error)
	Cancel(ctx context.Context, requestID string) error
}

type TelemetryRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	Command            string    `json:"command"`
	RequestID          string    `json:"request_id"`
	BatchID            string    `json:"batch_id"`
	TargetCount        int       `json:"target_count"`
	SuccessCount       int       `json:"success_count"`
	ErrorCount         int       `json:"error_count"`
	SuccessRate        float64   `json:"success_rate"`
	DurationSeconds    float64   `json:"duration_seconds"`
	AvgDurationPerScan float64   `json:"avg_duration_per_scan"`
	Rounds             int       `json:"rounds"`
	Cancelled          bool      `json:"cancelled"`
}

// NewTelemetryRecord summarizes a finished run.
func NewTelemetryRecord(command string, out *orchestrator.Outcome) TelemetryRecord {
	rec := TelemetryRecord{
		Timestamp:       out.Summary.Timestamp,
		Command:         command,
		RequestID:       out.RequestID,
		BatchID:         out.BatchID,
		TargetCount:     out.Summary.TotalDomains,
		SuccessCount:    out.Summary.Successful,
		ErrorCount:      out.Summary.Failed,
		DurationSeconds: out.Duration.Seconds(),
		Rounds:          out.Summary.RoundsCompleted,
		Cancelled:       out.Cancelled,
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.TargetCount > 0 {
		rec.SuccessRate = float64(rec.SuccessCount) / float64(rec.TargetCount) * 100
		rec.AvgDurationPerScan = rec.DurationSeconds / float64(rec.TargetCount)
	}
	return rec
}

type TelemetryService interface {
	Record(ctx context.Context, rec TelemetryRecord) error
	Recent(ctx context.Context, limit int) ([]TelemetryRecord, error)
}

type JobService interface {
	CreateJob(id, jobType string, domains int) *Job
	UpdateJob(id string, update func(*Job)) *Job
	GetJob(id string) *Job
	ListJobs(limit int) []Job
	Subscribe() (chan Job, func())
}

type Config struct {
	Scanner Scanner
	// Store serves result queries and readiness; nil disables both.
	Store          scan.Store
	Telemetry      TelemetryService
	Jobs           JobService
	AuthToken      string
	TelemetryLimit int
	Logger         *zap.Logger
	CORSOrigins    []string // Allowed CORS origins (empty = allow all)
	RateLimit      int      // Requests per second per IP (0 = disabled)
	RateBurst      int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	router   chi.Router
	limiters *rateLimiterMap
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	srv := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		limiters: newRateLimiterMap(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     srv.checkOrigin,
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	s.router.Use(middleware.RequestID, s.withLogging, s.withRateLimit, s.withCORS)
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
	s.router.MethodNotAllowed(s.methodNotAllowed)

	s.router.Mount("/api/v1", s.apiRouter())
	// Unversioned alias
	s.router.Mount("/api", s.apiRouter())
}

func (s *Server) apiRouter() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)

		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Post("/scan", s.handleScan)
		r.Post("/scan/stream", s.handleScanStream)
		r.Get("/scan/ws", s.handleScanWebSocket)
		r.Post("/scans/{requestID}/cancel", s.handleCancel)

		r.Get("/results", s.handleResults)
		r.Get("/batches", s.handleBatches)
		r.Get("/batches/{batchID}", s.handleBatch)
		r.Delete("/batches/{batchID}", s.handleDeleteBatch)

		r.Get("/telemetry", s.handleTelemetry)

		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{jobID}", s.handleJobByID)
		r.Get("/jobs-stream", s.handleJobStream)
	})
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.CORSOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientAddr(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", clientIP))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the first X-Forwarded-For hop or the remote host.
func clientAddr(r *http.Request) string {
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			clientIP = strings.TrimSpace(forwarded[:idx])
		} else {
			clientIP = strings.TrimSpace(forwarded)
		}
	}
	if host, _, err := net.SplitHostPort(clientIP); err == nil {
		return host
	}
	return clientIP
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			// Browsers cannot set headers on a WebSocket handshake.
			token = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		return false
	}
	return true
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if burst <= 0 {
		burst = rps
	}
	limiter, exists := m.limiters[ip]
	if !exists {
		limiter = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter.limiter
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.evictIdle(5 * time.Minute)
	}
}

func (m *rateLimiterMap) evictIdle(idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, limiter := range m.limiters {
		if time.Since(limiter.lastSeen) > idle {
			delete(m.limiters, ip)
		}
	}
}
