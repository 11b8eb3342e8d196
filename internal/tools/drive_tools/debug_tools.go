package drive_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/tools/common"
)

func debugTools(sc *server.ServerContext) []mcpserver.ServerTool {
	debugTool := mcp.NewTool("debug_api_connection",
		mcp.WithDescription("Check the service account token and probe the Drive API with a read-only about.get call"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	return []mcpserver.ServerTool{
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationAbout, debugTool, handleDebugAPIConnection(sc)),
	}
}

// handleDebugAPIConnection never fails the tool call: an unreachable API is
// reported inside the payload.
func handleDebugAPIConnection(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, _ mcp.CallToolRequest, _ *instrumentation.ToolInvocation) (any, error) {
		return sc.DriveClient().CheckConnection(ctx), nil
	}
}
