package drive_tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gdrive-mcp/internal/drive"
	"github.com/teemow/gdrive-mcp/internal/errs"
	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/tools/batch"
	"github.com/teemow/gdrive-mcp/internal/tools/common"
)

func fileTools(sc *server.ServerContext) []mcpserver.ServerTool {
	listFilesTool := mcp.NewTool("list_files",
		mcp.WithDescription("List one page of files in Google Drive. Trashed files are left out unless include_trashed is set. Pass the returned nextPageToken back as page_token to fetch the next page."),
		mcp.WithNumber("page_size",
			mcp.Description(fmt.Sprintf("Maximum number of files to return (1-%d, default %d)", drive.MaxPageSize, drive.DefaultPageSize)),
			mcp.Min(1),
			mcp.Max(drive.MaxPageSize),
		),
		mcp.WithString("page_token",
			mcp.Description("Token from a previous list_files call"),
		),
		mcp.WithString("query",
			mcp.Description("Drive search query, e.g. \"name contains 'report'\" or \"'<folder id>' in parents\""),
		),
		mcp.WithString("order_by",
			mcp.Description("Sort keys, e.g. 'modifiedTime desc'"),
		),
		mcp.WithBoolean("include_trashed",
			mcp.Description("Include files in the trash (default: false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	getFileInfoTool := mcp.NewTool("get_file_info",
		mcp.WithDescription("Get metadata for a file or folder in Google Drive"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file, or a JSON array of up to 100 IDs"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	downloadFileTool := mcp.NewTool("download_file",
		mcp.WithDescription(fmt.Sprintf("Download a file's content as base64. Google Docs, Sheets, Slides and Drawings are exported to text/plain, text/csv, text/plain and image/png. Files over %d bytes are rejected.", sc.DriveClient().MaxDownloadBytes())),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to download"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return []mcpserver.ServerTool{
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationList, listFilesTool, handleListFiles(sc)),
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationGet, getFileInfoTool, handleGetFileInfo(sc)),
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationDownload, downloadFileTool, handleDownloadFile(sc)),
	}
}

func fileWriteTools(sc *server.ServerContext) []mcpserver.ServerTool {
	uploadFileTool := mcp.NewTool("upload_file",
		mcp.WithDescription("Upload a file to Google Drive"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The name of the new file"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The file content, base64-encoded"),
		),
		mcp.WithString("parent_folder_id",
			mcp.Description("Folder to create the file in (default: the service account's root)"),
		),
		mcp.WithString("mime_type",
			mcp.Description("MIME type of the content (default: "+drive.DefaultUploadMimeType+")"),
		),
		mcp.WithString("description",
			mcp.Description("A short description of the file"),
		),
	)

	deleteFileTool := mcp.NewTool("delete_file",
		mcp.WithDescription("Permanently delete a file or folder, skipping the trash"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to delete, or a JSON array of up to 100 IDs"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)

	return []mcpserver.ServerTool{
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationUpload, uploadFileTool, handleUploadFile(sc)),
		common.Tool(sc, instrumentation.ServiceDrive, instrumentation.OperationDelete, deleteFileTool, handleDeleteFile(sc)),
	}
}

func handleListFiles(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, _ *instrumentation.ToolInvocation) (any, error) {
		pageSize, err := common.OptionalInt(req, "page_size", drive.DefaultPageSize)
		if err != nil {
			return nil, err
		}
		pageToken, err := common.OptionalString(req, "page_token", "")
		if err != nil {
			return nil, err
		}
		query, err := common.OptionalString(req, "query", "")
		if err != nil {
			return nil, err
		}
		orderBy, err := common.OptionalString(req, "order_by", "")
		if err != nil {
			return nil, err
		}
		includeTrashed, err := common.OptionalBool(req, "include_trashed", false)
		if err != nil {
			return nil, err
		}

		return sc.DriveClient().ListFiles(ctx, drive.ListOptions{
			PageSize:       pageSize,
			PageToken:      pageToken,
			Query:          query,
			OrderBy:        orderBy,
			IncludeTrashed: includeTrashed,
		})
	}
}

func handleGetFileInfo(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		ids, multi, err := batch.ParseStringOrArray(req.GetArguments()["file_id"], "file_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(strings.Join(ids, ","))

		if !multi {
			return sc.DriveClient().GetFile(ctx, ids[0])
		}
		results := batch.ProcessBatch(ctx, ids, batch.DefaultConcurrency, func(ctx context.Context, id string) (any, error) {
			return sc.DriveClient().GetFile(ctx, id)
		})
		return batch.Summarize(results), nil
	}
}

func handleDownloadFile(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		fileID, err := common.RequiredString(req, "file_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(fileID)

		dl, err := sc.DriveClient().DownloadFile(ctx, fileID)
		if err != nil {
			return nil, err
		}
		sc.Metrics().RecordTransfer(ctx, instrumentation.DirectionDownload, dl.Size)
		return dl, nil
	}
}

func handleUploadFile(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		name, err := common.RequiredString(req, "name")
		if err != nil {
			return nil, err
		}
		encoded, err := common.OptionalString(req, "content", "")
		if err != nil {
			return nil, err
		}
		content, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errs.Validation("content", "is not valid base64: %v", err)
		}
		parentID, err := common.OptionalString(req, "parent_folder_id", "")
		if err != nil {
			return nil, err
		}
		mimeType, err := common.OptionalString(req, "mime_type", drive.DefaultUploadMimeType)
		if err != nil {
			return nil, err
		}
		description, err := common.OptionalString(req, "description", "")
		if err != nil {
			return nil, err
		}

		file, err := sc.DriveClient().UploadFile(ctx, name, bytes.NewReader(content), drive.UploadOptions{
			ParentID:    parentID,
			MimeType:    mimeType,
			Description: description,
		})
		if err != nil {
			return nil, err
		}
		inv.WithFileID(file.ID)
		sc.Metrics().RecordTransfer(ctx, instrumentation.DirectionUpload, int64(len(content)))
		return file, nil
	}
}

// handleDeleteFile deletes one file, or each file of an array. A batch
// reports per-id failures instead of failing the call.
func handleDeleteFile(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		ids, multi, err := batch.ParseStringOrArray(req.GetArguments()["file_id"], "file_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(strings.Join(ids, ","))

		deleteOne := func(ctx context.Context, id string) (any, error) {
			if err := sc.DriveClient().DeleteFile(ctx, id); err != nil {
				return nil, err
			}
			return map[string]any{"id": id, "deleted": true}, nil
		}

		if !multi {
			return deleteOne(ctx, ids[0])
		}
		return batch.Summarize(batch.ProcessBatch(ctx, ids, batch.DefaultConcurrency, deleteOne)), nil
	}
}
