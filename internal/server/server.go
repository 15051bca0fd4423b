// Package server serves WebSocket echo and broadcast endpoints over the
// websocket package.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/coregx/wsframe/internal/config"
	"github.com/coregx/wsframe/websocket"
)

const readHeaderTimeout = 10 * time.Second

// Server accepts WebSocket connections at the configured path and either
// echoes every data message back to its sender or relays it to all
// connected clients.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	hub    *websocket.Hub // broadcast mode only
	http   *http.Server

	mu           sync.Mutex
	conns        map[*websocket.Conn]struct{}
	wg           sync.WaitGroup // handlers of tracked conns
	shuttingDown bool
}

// New creates a server for cfg. A nil logger discards all records.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}

	if cfg.Mode == config.ModeBroadcast {
		s.hub = websocket.NewHub()
		go s.hub.Run()
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)
	return mux
}

// ListenAndServe listens on the configured address and serves until
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown is called. It returns nil
// after a graceful shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting WebSocket server", "addr", l.Addr().String(), "path", s.cfg.Path, "mode", s.cfg.Mode)

	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, sends close(1001) to every open
// WebSocket and waits for their handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	// Hijacked connections are invisible to http.Server.Shutdown.
	s.mu.Lock()
	s.shuttingDown = true
	for conn := range s.conns {
		_ = conn.WriteClose(websocket.CloseGoingAway, "server shutting down")
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	if s.hub != nil {
		_ = s.hub.Close()
	}

	return err
}

// ActiveConnections returns the number of open WebSocket connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Upgrade(w, r, &websocket.UpgradeOptions{
		Options: websocket.Options{
			MaxMessageSize: s.cfg.MaxMessageSize,
			ReadBufferSize: s.cfg.ReadBufferSize,
			Logger:         s.logger,
		},
	})
	if err != nil {
		s.logger.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if !s.track(conn) {
		_ = conn.WriteClose(websocket.CloseGoingAway, "server shutting down")
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	if s.hub != nil {
		s.hub.Register(conn)
		defer s.hub.Unregister(conn)
	}
	defer conn.Close()

	log := s.logger.With("conn", conn.ID(), "remote", r.RemoteAddr)
	log.Info("Client connected")

	s.serve(conn, log)
}

// serve runs the inbound loop of one connection.
func (s *Server) serve(conn *websocket.Conn, log *slog.Logger) {
	limiter := s.newLimiter()

	for ev, err := range conn.Events() {
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				log.Info("Client disconnected", "code", int(closeErr.Code), "reason", closeErr.Reason)
			} else {
				log.Warn("Connection failed", "error", err)
			}
			return
		}

		switch ev.Type {
		case websocket.CloseMessage:
			log.Info("Client closed", "code", int(ev.Code), "reason", ev.Text)
			return
		case websocket.PingMessage, websocket.PongMessage:
			log.Debug("Control frame", "type", ev.Type.String())
			continue
		}

		if limiter != nil && !limiter.Allow() {
			log.Warn("Rate limit exceeded")
			_ = conn.WriteClose(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		if s.hub != nil {
			s.hub.Broadcast(ev.Type, ev.Payload())
			continue
		}
		if err := conn.Write(ev.Type, ev.Payload()); err != nil {
			log.Warn("Write failed", "error", err)
			return
		}
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	rl := s.cfg.RateLimit
	if !rl.Enabled {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rl.MessagesPerSecond), rl.Burst)
}

// track records conn so Shutdown can close it. It reports false once
// Shutdown has started; wg.Add happens under mu so it never races the
// Wait in Shutdown.
func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()

	s.wg.Done()
}
