package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumPoints(t *testing.T, m metricdata.Metrics) []metricdata.DataPoint[int64] {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data is %T, want Sum[int64]", m.Name, m.Data)
	}
	return sum.DataPoints
}

func TestRecordToolInvocation(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "share_file", StatusError, "ValidationError", time.Millisecond)
	m.RecordToolInvocation(ctx, "share_file", StatusError, "ValidationError", time.Millisecond)
	m.RecordToolInvocation(ctx, "list_files", StatusSuccess, "", time.Millisecond)

	points := sumPoints(t, collect(t, reader)["mcp_tool_invocations_total"])
	if len(points) != 2 {
		t.Fatalf("got %d series, want 2", len(points))
	}
	for _, p := range points {
		tool, _ := p.Attributes.Value(attrTool)
		kind, _ := p.Attributes.Value(attrErrorKind)
		switch tool.AsString() {
		case "share_file":
			if p.Value != 2 || kind.AsString() != "ValidationError" {
				t.Errorf("share_file = (%d, %q), want (2, ValidationError)", p.Value, kind.AsString())
			}
		case "list_files":
			if p.Value != 1 || kind.AsString() != "" {
				t.Errorf("list_files = (%d, %q), want (1, \"\")", p.Value, kind.AsString())
			}
		default:
			t.Errorf("unexpected tool %q", tool.AsString())
		}
	}
}

func TestRecordHTTPRequestBucketsPaths(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/message", 202, time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/server-info", 200, time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/wp-admin", 404, time.Millisecond)

	got := map[string]bool{}
	for _, p := range sumPoints(t, collect(t, reader)["http_requests_total"]) {
		v, _ := p.Attributes.Value(attribute.Key(attrPath))
		got[v.AsString()] = true
	}
	for _, want := range []string{"/message", "/server-info", "other"} {
		if !got[want] {
			t.Errorf("missing path label %q in %v", want, got)
		}
	}
}

func TestRecordHTTPRequestDetailedLabels(t *testing.T) {
	m, reader := newTestMetrics(t, true)
	m.RecordHTTPRequest(context.Background(), "GET", "/wp-admin", 404, time.Millisecond)

	points := sumPoints(t, collect(t, reader)["http_requests_total"])
	v, _ := points[0].Attributes.Value(attribute.Key(attrPath))
	if v.AsString() != "/wp-admin" {
		t.Errorf("path = %q, want /wp-admin", v.AsString())
	}
}

func TestActiveSessions(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.IncrementActiveSessions(ctx)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)

	points := sumPoints(t, collect(t, reader)["active_sessions"])
	if len(points) != 1 || points[0].Value != 1 {
		t.Errorf("active_sessions = %+v, want single point of 1", points)
	}
}

func TestRecordTransfer(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	m.RecordTransfer(context.Background(), DirectionDownload, 2048)

	hist, ok := collect(t, reader)["drive_transfer_bytes"].Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatal("drive_transfer_bytes is not an int64 histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 2048 {
		t.Errorf("drive_transfer_bytes = %+v, want one point summing 2048", hist.DataPoints)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordHTTPRequest(ctx, "GET", "/sse", 200, time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationList, StatusSuccess, time.Millisecond)
	m.RecordToolInvocation(ctx, "list_files", StatusSuccess, "", time.Millisecond)
	m.RecordTransfer(ctx, DirectionUpload, 1)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)
}
