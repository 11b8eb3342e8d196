package drive_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/tools/common"
)

func folderTools(sc *server.ServerContext) []mcpserver.ServerTool {
	createFolderTool := mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder in Google Drive"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The name of the folder"),
		),
		mcp.WithString("parent_folder_id",
			mcp.Description("Folder to create the new folder in (default: the service account's root)"),
		),
	)

	return []mcpserver.ServerTool{
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationCreate, createFolderTool, handleCreateFolder(sc)),
	}
}

func handleCreateFolder(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		name, err := common.RequiredString(req, "name")
		if err != nil {
			return nil, err
		}
		parentID, err := common.OptionalString(req, "parent_folder_id", "")
		if err != nil {
			return nil, err
		}

		folder, err := sc.DriveClient().CreateFolder(ctx, name, parentID)
		if err != nil {
			return nil, err
		}
		inv.WithFileID(folder.ID)
		return folder, nil
	}
}
