package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lox/guessinggame/internal/game"
	"github.com/lox/guessinggame/internal/protocol"
)

// Server exposes a game engine over websocket and HTTP
type Server struct {
	engine      *game.Engine
	logger      *log.Logger
	upgrader    websocket.Upgrader
	router      chi.Router
	stats       *Stats
	clock       quartz.Clock
	readLimit   int64
	connections map[*Connection]bool
	mu          sync.RWMutex
	httpServer  *http.Server
	closed      bool
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock used for stats timing
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithReadLimit sets the maximum inbound frame/body size in bytes
func WithReadLimit(limit int64) Option {
	return func(s *Server) {
		s.readLimit = limit
	}
}

// WithConfig applies file/env settings
func WithConfig(cfg *Config) Option {
	return func(s *Server) {
		if cfg != nil && cfg.Server != nil && cfg.Server.ReadLimit > 0 {
			s.readLimit = cfg.Server.ReadLimit
		}
	}
}

// NewServer creates a new server in front of engine
func NewServer(logger *log.Logger, engine *game.Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			// Any origin may connect; there is no browser session to protect.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clock:       quartz.NewReal(),
		readLimit:   defaultReadLimit,
		connections: make(map[*Connection]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats = NewStats(s.clock)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/ws", s.handleWebSocket)
	r.Post("/invoke", s.handleInvoke)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	return r
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves until Shutdown
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown. After Shutdown it
// closes ln and returns http.ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting server", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Shutdown stops accepting requests and closes open websocket connections
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.httpServer
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close() // Ignore close errors during shutdown
	}

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Stats returns the traffic collector
func (s *Server) Stats() *Stats {
	return s.stats
}

// HandleFrame decodes one request, applies it to the engine and encodes the
// response in the same format. Failures are encoded as error responses;
// the returned error is only set when the response itself cannot be encoded.
func (s *Server) HandleFrame(format protocol.Format, data []byte) ([]byte, error) {
	resp := s.process(format, data)
	return protocol.Marshal(format, &resp)
}

func (s *Server) process(format protocol.Format, data []byte) protocol.Response {
	var req protocol.Request
	if err := protocol.Unmarshal(format, data, &req); err != nil {
		return s.failure(err)
	}

	s.stats.RecordRequest(game.RequestKind(req.Kind))

	ev, err := req.ActorEvent()
	if err != nil {
		return s.failure(err)
	}

	out, err := s.engine.Process(ev)
	if err != nil {
		return s.failure(err)
	}

	resp := protocol.NewResponse(out)
	s.stats.RecordResponse(resp.Kind, "")
	return resp
}

func (s *Server) failure(err error) protocol.Response {
	resp := protocol.NewErrorResponse(err)
	s.stats.RecordResponse(resp.Kind, resp.Code)
	if resp.Code == protocol.CodeInternal || resp.Code == game.ErrGameInvalid.Code {
		s.logger.Error("Request failed", "code", resp.Code, "error", err)
	} else {
		s.logger.Debug("Request rejected", "code", resp.Code, "error", err)
	}
	return resp
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s, s.readLimit)
	s.register(client)
	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
	}()
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)
}

func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "total", total)
}

// ConnectionCount returns the number of open websocket connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// handleInvoke serves a single JSON request/response exchange
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.readLimit))
	if err != nil {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, protocol.NewErrorResponse(
			fmt.Errorf("%w: %w", protocol.ErrInvalidRequest, err)))
		return
	}

	resp := s.process(protocol.FormatJSON, body)
	s.writeJSON(w, statusFor(resp), resp)
}

// statusFor maps an error response to an HTTP status
func statusFor(resp protocol.Response) int {
	if !resp.IsError() {
		return http.StatusOK
	}
	switch resp.Code {
	case game.ErrGameNotFound.Code:
		return http.StatusNotFound
	case game.ErrGameFinished.Code:
		return http.StatusConflict
	case protocol.CodeInvalidRequest, protocol.CodeUnknownKind:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// handleStats serves request counters and engine totals
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()
	snap.Connections = s.ConnectionCount()
	snap.Games = s.engine.Stats()
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.clock.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", s.clock.Since(start),
			"requestId", middleware.GetReqID(r.Context()))
	})
}

// WaitForHealthy polls the /health endpoint until it returns 200 OK or the context is cancelled.
// baseURL should be the server's base URL (e.g., "http://localhost:8080").
func WaitForHealthy(ctx context.Context, baseURL string) error {
	healthURL := baseURL + "/health"
	client := &http.Client{Timeout: 1 * time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
