package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestStartToolSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartToolSpan(context.Background(), "get_file_info",
		NewSpanAttributeBuilder().WithFileID("f1").WithFileID("").Build()...)
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Error("span ids missing from context")
	}
	SetSpanSuccess(span)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	s := ended[0]
	if s.Name() != "tool.get_file_info" {
		t.Errorf("name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("kind = %v, want server", s.SpanKind())
	}
	attrs := map[string]string{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[SpanAttrTool] != "get_file_info" || attrs[SpanAttrFileID] != "f1" {
		t.Errorf("attributes = %v", attrs)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestStartGoogleAPISpanError(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceDrive, OperationDownload)
	SetSpanError(span, errors.New("boom"), "ApiError")
	SetSpanError(span, nil, "ignored")
	span.End()

	s := rec.Ended()[0]
	if s.Name() != "google.drive.download" {
		t.Errorf("name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("kind = %v, want client", s.SpanKind())
	}
	if s.Status().Code != codes.Error || s.Status().Description != "boom" {
		t.Errorf("status = %+v", s.Status())
	}
	if len(s.Events()) != 1 {
		t.Errorf("events = %d, want 1 recorded error", len(s.Events()))
	}
}

func TestIDsWithoutSpan(t *testing.T) {
	if GetTraceID(context.Background()) != "" || GetSpanID(context.Background()) != "" {
		t.Error("expected empty ids without a span")
	}
}
