package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/instrumentation"
)

// Transport names.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// Endpoint paths served by HTTPServer.
const (
	SSEEndpoint     = "/sse"
	MessageEndpoint = "/message"
	MCPEndpoint     = "/mcp"
)

// HTTPConfig configures an HTTPServer.
type HTTPConfig struct {
	Addr      string
	Transport string
	MCP       *mcpserver.MCPServer
	Health    *HealthChecker
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// HTTPServer exposes an MCP server over SSE or streamable HTTP next to the
// info and probe endpoints.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	logger     *slog.Logger
	// shutdownMCP closes open transport sessions before the listener stops.
	shutdownMCP func(context.Context) error
}

// NewHTTPServer builds the mux for the configured transport.
func NewHTTPServer(cfg HTTPConfig) (*HTTPServer, error) {
	if cfg.MCP == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if cfg.Health == nil {
		return nil, fmt.Errorf("health checker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &HTTPServer{health: cfg.Health, logger: cfg.Logger}

	mux := http.NewServeMux()
	cfg.Health.RegisterHealthEndpoints(mux)

	switch cfg.Transport {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(cfg.MCP,
			mcpserver.WithSSEEndpoint(SSEEndpoint),
			mcpserver.WithMessageEndpoint(MessageEndpoint),
			mcpserver.WithKeepAlive(true),
		)
		mux.Handle(SSEEndpoint, sseServer)
		mux.Handle(MessageEndpoint, sseServer)
		s.shutdownMCP = sseServer.Shutdown

	case TransportStreamableHTTP:
		streamable := mcpserver.NewStreamableHTTPServer(cfg.MCP,
			mcpserver.WithEndpointPath(MCPEndpoint),
		)
		mux.Handle(MCPEndpoint, streamable)
		s.shutdownMCP = streamable.Shutdown

	default:
		return nil, fmt.Errorf("unsupported HTTP transport: %s", cfg.Transport)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           instrumentHTTP(mux, cfg.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: SSE streams stay open for the life of a session.
		IdleTimeout: 120 * time.Second,
	}
	return s, nil
}

// Handler returns the instrumented mux.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve serves on ln until Shutdown and returns nil after a graceful stop.
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.logger.Info("MCP HTTP server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown flips readiness, closes MCP sessions and then drains the
// listener.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	var errs []error
	if s.shutdownMCP != nil {
		if err := s.shutdownMCP(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close MCP sessions: %w", err))
		}
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// statusRecorder captures the response code while keeping streaming
// working for SSE.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func instrumentHTTP(next http.Handler, m *instrumentation.Metrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
