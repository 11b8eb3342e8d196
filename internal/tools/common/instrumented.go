package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/logging"
	"github.com/teemow/gdrive-mcp/internal/server"
)

// Handler implements a tool. The returned value is rendered with JSONResult;
// a returned error becomes an ErrorResult. Handlers annotate inv with the
// file id or share recipient they act on.
type Handler func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error)

// Tool pairs a tool definition with its instrumented handler.
func Tool(sc *server.ServerContext, service, operation string, tool mcp.Tool, h Handler) mcpserver.ServerTool {
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: InstrumentedToolHandler(tool.Name, service, operation, sc, h),
	}
}

// InstrumentedToolHandler wraps h with a span, tool and Google API metrics,
// an audit record and the error payload conversion.
//
// The Google API metric is skipped for validation failures, which never
// reach the API, and for calls whose context was canceled.
func InstrumentedToolHandler(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	h Handler,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sessionID string
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			sessionID = session.SessionID()
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithService(serviceName).
				WithOperation(operation).
				WithSession(sessionID).
				WithReadOnly(sc.ReadOnly()).
				Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithSession(sessionID).
			WithService(serviceName, operation)

		value, err := h(ctx, request, invocation)
		var result *mcp.CallToolResult
		if err == nil {
			result, err = JSONResult(value)
		}
		duration := time.Since(start)

		var kind string
		if err != nil {
			kind = ErrorKind(err)
			result = ErrorResult(err, invocation.InvocationID)
		}
		invocation.Complete(err, kind)
		if invocation.FileID != "" {
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithFileID(invocation.FileID).Build()...)
		}

		if invocation.Success {
			instrumentation.SetSpanSuccess(span)
		} else {
			instrumentation.SetSpanError(span, err, kind)
		}

		if m := sc.Metrics(); m != nil {
			m.RecordToolInvocation(ctx, toolName, invocation.Status(), kind, duration)
			if kind != errs.KindValidation && !errs.IsCanceled(err) {
				m.RecordGoogleAPIOperation(ctx, serviceName, operation, invocation.Status(), duration)
			}
		}
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		logger := logging.WithOperation(logging.WithService(logging.WithTool(sc.Logger(), toolName), serviceName), operation)
		if invocation.Success {
			logger.Debug("tool call succeeded", slog.Duration(logging.KeyDuration, duration))
		} else {
			logger.Debug("tool call failed",
				slog.Duration(logging.KeyDuration, duration),
				logging.ErrKind(kind),
				logging.Err(err))
		}

		return result, nil
	}
}
