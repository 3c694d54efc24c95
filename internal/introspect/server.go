package introspect

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/declkit/declkit/internal/cache"
	"github.com/declkit/declkit/runtime/mirror"
)

// Config holds server configuration.
type Config struct {
	// Address is the server listen address (e.g., ":7474")
	Address string

	// Provider supplies the snapshot served by the API
	Provider SnapshotProvider

	// Store enables the event stream and cache invalidation when set
	Store *mirror.Store

	// Cache enables response caching when set
	Cache cache.Cache

	// CacheTTL for cached responses (0 uses the cache default)
	CacheTTL time.Duration

	// Logger for request and lifecycle logging
	Logger *zap.Logger

	// Timeouts
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns a server configuration with production-ready
// timeouts for the given provider.
func DefaultConfig(provider SnapshotProvider) *Config {
	return &Config{
		Address:           ":7474",
		Provider:          provider,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Server is the HTTP introspection server.
type Server struct {
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	logger     *zap.Logger
	hub        *EventHub
	detach     []func()
}

// New creates a server instance from the config.
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}
	if config.Provider == nil {
		return nil, fmt.Errorf("snapshot provider cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		logger: logger,
	}

	if config.Store != nil {
		s.hub = NewEventHub(logger)
		s.detach = append(s.detach, s.hub.AttachStore(config.Store))
	}
	if config.Cache != nil && config.Store != nil {
		// Registrations invalidate cached responses.
		s.detach = append(s.detach, cache.WatchStore(config.Cache, config.Store))
	}

	s.httpServer = &http.Server{
		Addr:              config.Address,
		Handler:           s.routes(),
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return s, nil
}

// routes assembles the router and middleware stack.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	if s.config.Cache != nil {
		mw := cache.DefaultMiddlewareConfig(s.config.Cache)
		mw.TTL = s.config.CacheTTL
		// Upgrades and health checks are never cached.
		mw.SkipPaths = []string{"/ws", "/health"}
		r.Use(cache.Middleware(mw))
	}

	h := &Handlers{
		provider: s.config.Provider,
		hub:      s.hub,
		logger:   s.logger,
	}
	h.Routes(r)

	return r
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	s.logger.Info("introspection server listening", zap.String("addr", s.Addr()))

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, cancel := range s.detach {
		cancel()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// Close immediately closes the server.
func (s *Server) Close() error {
	for _, cancel := range s.detach {
		cancel()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Close()
}

// Addr returns the server's network address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// Handler returns the assembled HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// requestLogger logs each request with method, path, status and timing.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.status),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", rw.bytes))
		})
	}
}

// recoverer converts panics into a JSON 500 response.
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))
					respondError(w, http.StatusInternalServerError,
						"an unexpected error occurred", "internal_error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter captures status code and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets the websocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
