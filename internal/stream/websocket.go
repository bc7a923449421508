package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// WebSocketSink sends each event as one JSON text message and pings the
// peer between events so idle proxies keep the connection open.
type WebSocketSink struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	err          error

	done      chan struct{}
	closeOnce sync.Once
}

// WebSocketOption customizes a WebSocketSink.
type WebSocketOption func(*WebSocketSink)

// WithPingInterval sets how often the sink pings the peer. The peer is
// considered gone when no pong arrives within two intervals.
func WithPingInterval(d time.Duration) WebSocketOption {
	return func(s *WebSocketSink) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// NewWebSocketSink wraps an upgraded connection and starts pinging it.
func NewWebSocketSink(conn *websocket.Conn, logger *zap.Logger, opts ...WebSocketOption) *WebSocketSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &WebSocketSink{
		conn:         conn,
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.keepalive()
	return s
}

// Emit implements Emitter.
func (s *WebSocketSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteJSON(e); err != nil {
		s.err = err
		s.logger.Warn("failed to write websocket event", zap.String("event", string(e.EventType())), zap.Error(err))
	}
}

func (s *WebSocketSink) keepalive() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.err != nil {
				s.mu.Unlock()
				return
			}
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
			if err != nil {
				s.err = err
				s.logger.Debug("websocket ping failed", zap.Error(err))
			}
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// WatchPeer reads from the connection until the peer closes it or stops
// answering pings, then calls gone. It blocks, so run it in a goroutine.
func (s *WebSocketSink) WatchPeer(gone func()) {
	pongWait := 2 * s.pingInterval
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			gone()
			return
		}
	}
}

// Err reports the first write failure, if any.
func (s *WebSocketSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the pings, sends a normal closure frame and closes the
// connection.
func (s *WebSocketSink) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}
