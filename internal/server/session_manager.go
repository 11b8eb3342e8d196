package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/logging"
)

// DefaultSessionIdleTimeout drops sessions that sent nothing for this long.
// Streamable HTTP clients may vanish without closing their session.
const DefaultSessionIdleTimeout = 24 * time.Hour

type sessionInfo struct {
	connected  time.Time
	lastAccess time.Time
}

// SessionTracker counts connected MCP client sessions. It is fed by the
// mcp-go session hooks and drives the active_sessions metric.
type SessionTracker struct {
	mu          sync.Mutex
	sessions    map[string]*sessionInfo
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	idleTimeout time.Duration

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// NewSessionTracker starts a tracker with DefaultSessionIdleTimeout.
func NewSessionTracker(logger *slog.Logger) *SessionTracker {
	return NewSessionTrackerWithTimeout(DefaultSessionIdleTimeout, logger)
}

// NewSessionTrackerWithTimeout starts a tracker whose reaper runs every
// tenth of timeout, at most every ten minutes.
func NewSessionTrackerWithTimeout(timeout time.Duration, logger *slog.Logger) *SessionTracker {
	if logger == nil {
		logger = slog.Default()
	}
	interval := min(timeout/10, 10*time.Minute)
	if interval <= 0 {
		interval = time.Second
	}

	t := &SessionTracker{
		sessions:      make(map[string]*sessionInfo),
		logger:        logger,
		idleTimeout:   timeout,
		cleanupTicker: time.NewTicker(interval),
		cleanupDone:   make(chan struct{}),
	}
	go t.cleanupExpiredSessions()
	return t
}

// SetMetrics sets the recorder for the active_sessions gauge.
func (t *SessionTracker) SetMetrics(m *instrumentation.Metrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
}

// Register records a new session. Registering a known id only refreshes it.
func (t *SessionTracker) Register(ctx context.Context, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if info, ok := t.sessions[sessionID]; ok {
		info.lastAccess = now
		return
	}
	t.sessions[sessionID] = &sessionInfo{connected: now, lastAccess: now}
	t.metrics.IncrementActiveSessions(ctx)
	t.logger.Debug("session registered", logging.Session(sessionID), slog.Int("active", len(t.sessions)))
}

// Touch marks activity on a session.
func (t *SessionTracker) Touch(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if info, ok := t.sessions[sessionID]; ok {
		info.lastAccess = time.Now()
	}
}

// Remove forgets a session. Unknown ids are ignored, so a reaped session
// that later unregisters is not counted twice.
func (t *SessionTracker) Remove(ctx context.Context, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[sessionID]; !ok {
		return
	}
	delete(t.sessions, sessionID)
	t.metrics.DecrementActiveSessions(ctx)
	t.logger.Debug("session closed", logging.Session(sessionID), slog.Int("active", len(t.sessions)))
}

// Count returns the number of live sessions.
func (t *SessionTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// List returns the live session ids, sorted.
func (t *SessionTracker) List() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AttachHooks wires the tracker into the MCP server's session lifecycle.
func (t *SessionTracker) AttachHooks(hooks *mcpserver.Hooks) {
	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		t.Register(ctx, session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		t.Remove(ctx, session.SessionID())
	})
	hooks.AddBeforeAny(func(ctx context.Context, _ any, _ mcp.MCPMethod, _ any) {
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			t.Touch(session.SessionID())
		}
	})
}

// expire removes sessions idle since before cutoff and returns how many.
func (t *SessionTracker) expire(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	expired := 0
	for id, info := range t.sessions {
		if info.lastAccess.Before(cutoff) {
			delete(t.sessions, id)
			t.metrics.DecrementActiveSessions(context.Background())
			expired++
		}
	}
	return expired
}

func (t *SessionTracker) cleanupExpiredSessions() {
	for {
		select {
		case <-t.cleanupTicker.C:
			if n := t.expire(time.Now().Add(-t.idleTimeout)); n > 0 {
				t.logger.Info("cleaned up idle sessions", "count", n)
			}
		case <-t.cleanupDone:
			return
		}
	}
}

// Stop stops the reaper. It is safe to call more than once.
func (t *SessionTracker) Stop() {
	t.stopOnce.Do(func() {
		t.cleanupTicker.Stop()
		close(t.cleanupDone)
	})
}
