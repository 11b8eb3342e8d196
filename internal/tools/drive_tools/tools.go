package drive_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/server"
)

// RegisterDriveTools registers the Drive tools with the MCP server. Write
// tools are skipped when readOnly is set.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc.DriveClient() == nil {
		return fmt.Errorf("drive client is not configured")
	}

	s.AddTools(fileTools(sc)...)
	s.AddTools(debugTools(sc)...)

	if !readOnly {
		s.AddTools(fileWriteTools(sc)...)
		s.AddTools(folderTools(sc)...)
		s.AddTools(shareTools(sc)...)
	}
	return nil
}
