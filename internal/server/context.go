package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/gdrive-mcp/internal/drive"
	"github.com/teemow/gdrive-mcp/internal/google"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/sheets"
)

// Options configures a ServerContext. Drive is required; everything else may
// be left nil.
type Options struct {
	Drive          *drive.Client
	Sheets         *sheets.Client
	ServiceAccount *google.ServiceAccount
	// DriveEndpoint is reported by the service-account resource when the
	// API endpoint is overridden.
	DriveEndpoint string
	ReadOnly      bool
	Logger        *slog.Logger
}

// ServerContext holds the dependencies shared by every tool handler.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	drive          *drive.Client
	sheets         *sheets.Client
	serviceAccount *google.ServiceAccount
	driveEndpoint  string
	readOnly       bool
	logger         *slog.Logger
	sessions       *SessionTracker

	mu          sync.RWMutex
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	shutdown    bool
}

// NewServerContext creates a server context bound to ctx. Shutdown cancels
// the derived context.
func NewServerContext(ctx context.Context, opts Options) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		drive:          opts.Drive,
		sheets:         opts.Sheets,
		serviceAccount: opts.ServiceAccount,
		driveEndpoint:  opts.DriveEndpoint,
		readOnly:       opts.ReadOnly,
		logger:         logger,
		sessions:       NewSessionTracker(logger),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// DriveClient returns the shared Drive client.
func (sc *ServerContext) DriveClient() *drive.Client {
	return sc.drive
}

// SheetsClient returns the shared Sheets client, or nil when the Sheets
// tools are not configured.
func (sc *ServerContext) SheetsClient() *sheets.Client {
	return sc.sheets
}

// ServiceAccount returns the identity the server acts as. It may be nil in
// tests.
func (sc *ServerContext) ServiceAccount() *google.ServiceAccount {
	return sc.serviceAccount
}

// ServiceAccountEmail returns the service account address or "".
func (sc *ServerContext) ServiceAccountEmail() string {
	if sc.serviceAccount == nil {
		return ""
	}
	return sc.serviceAccount.Email
}

// DriveEndpoint returns the configured Drive API endpoint override.
func (sc *ServerContext) DriveEndpoint() string {
	return sc.driveEndpoint
}

// ReadOnly reports whether write tools are hidden.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Sessions returns the client session tracker.
func (sc *ServerContext) Sessions() *SessionTracker {
	return sc.sessions
}

// SetMetrics sets the metrics recorder and hands it to the session tracker.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
	sc.sessions.SetMetrics(m)
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and stops the session reaper. It is
// idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.sessions.Stop()
	sc.cancel()
	return nil
}
