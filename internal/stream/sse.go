package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// ErrStreamingUnsupported is returned when the response cannot be flushed.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Encode writes one event as a `data: <json>\n\n` frame.
func Encode(w io.Writer, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.EventType(), err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s event: %w", e.EventType(), err)
	}
	return nil
}

// SSEWriter streams events to an HTTP client as server-sent events. After
// the first write error it stops writing and reports the error via Err.
type SSEWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	logger  *zap.Logger
	err     error
}

// NewSSEWriter prepares w for streaming and writes the response headers.
func NewSSEWriter(w http.ResponseWriter, logger *zap.Logger) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSEWriter{w: w, flusher: flusher, logger: logger}, nil
}

// Emit implements Emitter.
func (s *SSEWriter) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if err := Encode(s.w, e); err != nil {
		s.err = err
		s.logger.Warn("failed to write stream event", zap.String("event", string(e.EventType())), zap.Error(err))
		return
	}
	s.flusher.Flush()
}

// Err reports the first write failure, if any.
func (s *SSEWriter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
