// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the gdrive-mcp server.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total: requests by method, path and status
//   - http_request_duration_seconds: request latency
//   - active_sessions: connected MCP client sessions
//
// Google API:
//   - google_api_operations_total: calls by service, operation and status
//   - google_api_operation_duration_seconds: call latency
//   - drive_transfer_bytes: upload and download sizes by direction
//
// MCP tools:
//   - mcp_tool_invocations_total: calls by tool, status and error_kind
//   - mcp_tool_duration_seconds: tool latency
//
// Paths are bucketed to the server's fixed routes unless
// METRICS_DETAILED_LABELS is set.
//
// # Exporters
//
// Metrics go to prometheus (default, served on the metrics port), otlp or
// stdout. Traces go to none (default), otlp or stdout. Sampling is
// parent-based with the ratio from OTEL_TRACES_SAMPLER_ARG.
//
// # Audit
//
// AuditLogger writes one structured record per tool invocation carrying a
// fresh invocation id, the session, the file id and the error kind. Share
// recipients are hashed unless AUDIT_LOGGING_INCLUDE_PII is set.
package instrumentation
