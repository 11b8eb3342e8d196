package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewProviderDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Enabled() {
		t.Error("Enabled() = true for disabled config")
	}
	if p.Metrics() == nil {
		t.Fatal("Metrics() = nil, want no-op recorder")
	}
	if p.PrometheusHandler() != nil {
		t.Error("PrometheusHandler() != nil for disabled provider")
	}

	// The no-op recorder must accept calls.
	p.Metrics().RecordToolInvocation(context.Background(), "list_files", StatusSuccess, "", time.Millisecond)
	p.Metrics().IncrementActiveSessions(context.Background())

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProviderInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsExporter = "statsd"

	if _, err := NewProvider(context.Background(), cfg); err == nil {
		t.Fatal("NewProvider() error = nil, want unsupported exporter error")
	}
}

func TestPrometheusHandlerExposesToolMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceVersion = "test"

	p, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	p.Metrics().RecordToolInvocation(context.Background(), "download_file", StatusError, "NotFoundError", 20*time.Millisecond)

	handler := p.PrometheusHandler()
	if handler == nil {
		t.Fatal("PrometheusHandler() = nil with prometheus exporter")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "mcp_tool_invocations_total") {
		t.Error("metrics output missing mcp_tool_invocations_total")
	}
	if !strings.Contains(body, `error_kind="NotFoundError"`) {
		t.Error("metrics output missing error_kind label")
	}
}
