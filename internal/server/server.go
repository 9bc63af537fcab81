package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpalmerr/pwmreceiver/internal/monitor"
)

const (
	// sseWriteTimeout bounds a single SSE write so a stalled client cannot
	// pin its handler goroutine past shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Server serves readings from a [monitor.Monitor].
type Server struct {
	mon        monitor.Monitor
	port       int
	httpServer *http.Server
	addr       net.Addr
	logger     *slog.Logger
}

// NewServer creates a [Server] listening on port. Port 0 picks a free port;
// see [Server.Addr]. The server does not listen until [Server.Start].
func NewServer(mon monitor.Monitor, port int, logger *slog.Logger) *Server {
	return &Server{
		mon:    mon,
		port:   port,
		logger: logger,
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/readings", s.handleReadings)
	mux.HandleFunc("/api/sse", s.handleSSE)
	return mux
}

// Start binds the port and serves in the background until ctx is cancelled.
//
// Returns an error if the port cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("readings available", "url", fmt.Sprintf("http://%s/api/readings", s.addr))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// handleReadings returns the latest reading of every channel as JSON.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(s.mon.GetAll()); err != nil {
		s.logger.Error("failed to encode readings response", "error", err)
	}
}

// handleSSE streams readings via Server-Sent Events: first the current
// snapshot, then every update until the client or the server goes away.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlines := true

	send := func(reading monitor.Reading) error {
		data, err := json.Marshal(reading)
		if err != nil {
			s.logger.Warn("failed to encode reading, skipping", "channel", reading.Channel, "error", err)
			return nil
		}
		if deadlines {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				deadlines = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := s.mon.Subscribe()
	defer s.mon.Unsubscribe(updates)

	for _, reading := range s.mon.GetAll() {
		if err := send(reading); err != nil {
			return
		}
	}

	for {
		select {
		case reading, ok := <-updates:
			if !ok {
				return
			}
			if err := send(reading); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
