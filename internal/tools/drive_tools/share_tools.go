package drive_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/drive"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/tools/common"
)

func shareTools(sc *server.ServerContext) []mcpserver.ServerTool {
	shareFileTool := mcp.NewTool("share_file",
		mcp.WithDescription("Grant a user access to a file. The owner role transfers ownership."),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to share"),
		),
		mcp.WithString("email",
			mcp.Required(),
			mcp.Description("Email address of the user to share with"),
		),
		mcp.WithString("role",
			mcp.Description("Role to grant (default: reader)"),
			mcp.Enum(drive.Roles...),
		),
		mcp.WithBoolean("send_notification",
			mcp.Description("Email the user about the new permission (default: false; always sent for ownership transfers)"),
		),
		mcp.WithString("message",
			mcp.Description("Custom message to include in the notification email"),
		),
	)

	return []mcpserver.ServerTool{
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationShare, shareFileTool, handleShareFile(sc)),
	}
}

func handleShareFile(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		// Role is checked first so an invalid role never costs a request.
		role, err := common.OptionalString(req, "role", drive.RoleReader)
		if err != nil {
			return nil, err
		}
		if err := drive.ValidateRole(role); err != nil {
			return nil, err
		}

		fileID, err := common.RequiredString(req, "file_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(fileID)

		email, err := common.RequiredString(req, "email")
		if err != nil {
			return nil, err
		}
		inv.WithGrantee(email)

		notify, err := common.OptionalBool(req, "send_notification", false)
		if err != nil {
			return nil, err
		}
		message, err := common.OptionalString(req, "message", "")
		if err != nil {
			return nil, err
		}

		return sc.DriveClient().ShareFile(ctx, fileID, drive.ShareOptions{
			EmailAddress:          email,
			Role:                  role,
			SendNotificationEmail: notify,
			EmailMessage:          message,
		})
	}
}
