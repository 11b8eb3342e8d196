package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// InfoConfig describes the server for /server-info.
type InfoConfig struct {
	Name      string
	Version   string
	Transport string
	// Tools lists the registered tool names at request time.
	Tools func() []string
}

// HealthChecker serves /server-info and the Kubernetes style probes.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	info          InfoConfig
	startTime     time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready.
func NewHealthChecker(sc *ServerContext, info InfoConfig) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		info:          info,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// status returns the overall status and the HTTP code to serve it with.
func (h *HealthChecker) status() (string, int) {
	switch {
	case h.isServerShuttingDown():
		return healthStatusShuttingDown, http.StatusServiceUnavailable
	case !h.IsReady():
		return healthStatusNotReady, http.StatusServiceUnavailable
	}
	return healthStatusOK, http.StatusOK
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServerInfo is the /server-info payload.
type ServerInfo struct {
	Status         string   `json:"status"`
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Transport      string   `json:"transport"`
	Uptime         string   `json:"uptime"`
	ServiceAccount string   `json:"serviceAccount,omitempty"`
	ReadOnly       bool     `json:"readOnly"`
	Tools          []string `json:"tools"`
	ActiveSessions int      `json:"activeSessions"`
}

// Info assembles the current ServerInfo.
func (h *HealthChecker) Info() ServerInfo {
	status, _ := h.status()
	info := ServerInfo{
		Status:    status,
		Name:      h.info.Name,
		Version:   h.info.Version,
		Transport: h.info.Transport,
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Tools:     []string{},
	}
	if h.info.Tools != nil {
		info.Tools = h.info.Tools()
	}
	if sc := h.serverContext; sc != nil {
		info.ServiceAccount = sc.ServiceAccountEmail()
		info.ReadOnly = sc.ReadOnly()
		info.ActiveSessions = sc.Sessions().Count()
	}
	return info
}

// ServerInfoHandler returns the /server-info handler. It answers 503 with
// the same payload while the server is not ready or shutting down, which
// lets container health checks use it directly.
func (h *HealthChecker) ServerInfoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		_, code := h.status()
		writeJSON(w, code, h.Info())
	})
}

// LivenessHandler returns the /healthz handler. It only reports that the
// process is serving.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns the /readyz handler.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := map[string]string{
			"ready":    healthStatusOK,
			"shutdown": healthStatusOK,
		}
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
		}
		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
		}

		status, code := h.status()
		if code != http.StatusOK {
			status = healthStatusNotReady
		}
		writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
	})
}

// RegisterHealthEndpoints registers the info and probe endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/server-info", h.ServerInfoHandler())
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
