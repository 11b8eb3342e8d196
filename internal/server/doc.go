// Package server holds the runtime pieces shared by the MCP tools and the
// HTTP listeners.
//
// ServerContext carries the Drive and Sheets clients, the service account,
// and the metrics and audit recorders every tool handler reaches for.
//
// HTTPServer exposes the MCP server over SSE (/sse and /messages/) or
// streamable HTTP (/mcp), next to:
//   - /server-info: name, version, transport, uptime, tool names and live
//     session count; 503 once shutdown starts
//   - /healthz and /readyz: liveness and readiness probes
//
// SessionTracker follows the mcp-go session hooks and feeds the
// active_sessions gauge. MetricsServer serves Prometheus metrics on a
// separate port.
package server
