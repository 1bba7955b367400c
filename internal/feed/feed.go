// Package feed serves the network activity state to UI clients over
// WebSocket, next to the Prometheus metrics endpoint.
package feed

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zulfikawr/courier/internal/metrics"
	"github.com/zulfikawr/courier/pkg/download"
	"go.uber.org/zap"
)

const (
	// PingInterval is how often idle connections are pinged
	PingInterval = 30 * time.Second

	writeTimeout = 10 * time.Second
	readBuffer   = 1024
	writeBuffer  = 4096
)

// Message is sent whenever the activity indicator toggles, and once on connect
type Message struct {
	Type      string   `json:"type"`
	Active    bool     `json:"active"`
	Count     int      `json:"count"`
	Running   []string `json:"running"`
	Timestamp int64    `json:"timestamp"`
}

// Server pushes activity updates to connected clients
type Server struct {
	manager  *download.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan struct{}]struct{}
}

// New creates a feed for m and subscribes to its activity indicator
func New(m *download.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				// The feed exposes no request data; allow any UI origin
				return true
			},
		},
		subscribers: make(map[chan struct{}]struct{}),
	}
	m.Indicator().OnChange(func(bool) { s.broadcast() })
	return s
}

// Handler routes /activity to the WebSocket feed and /metrics to Prometheus
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/activity", s.handleActivity)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe serves Handler on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Activity feed listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) snapshot() Message {
	ind := s.manager.Indicator()
	return Message{
		Type:      "activity",
		Active:    ind.Active(),
		Count:     ind.Count(),
		Running:   s.manager.Running(),
		Timestamp: time.Now().Unix(),
	}
}

func (s *Server) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan struct{}) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
}

// broadcast wakes every connection without blocking the indicator
func (s *Server) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// handleActivity streams activity state changes via WebSocket
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	metrics.WebSocketConnected()
	defer metrics.WebSocketDisconnected()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	// Reading is required to process close and pong frames
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.send(conn); err != nil {
		return
	}

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-updates:
			if err := s.send(conn); err != nil {
				return
			}
		case <-ticker.C:
			metrics.RecordPingMessage()
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn) error {
	metrics.RecordActivityMessage()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(s.snapshot()); err != nil {
		s.logger.Debug("Activity feed client gone", zap.Error(err))
		return err
	}
	return nil
}
