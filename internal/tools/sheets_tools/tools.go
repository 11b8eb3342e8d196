package sheets_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/teemow/gdrive-mcp/internal/instrumentation"
	"github.com/teemow/gdrive-mcp/internal/server"
	"github.com/teemow/gdrive-mcp/internal/sheets"
	"github.com/teemow/gdrive-mcp/internal/tools/common"
)

// RegisterSheetsTools registers the Sheets tools with the MCP server. Only
// read_sheet_values and get_spreadsheet are registered when readOnly is set.
func RegisterSheetsTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc.SheetsClient() == nil {
		return fmt.Errorf("sheets client is not configured")
	}

	getSpreadsheetTool := mcp.NewTool("get_spreadsheet",
		mcp.WithDescription("Get a spreadsheet's title, URL and tabs"),
		mcp.WithString("spreadsheet_id",
			mcp.Required(),
			mcp.Description("The ID of the spreadsheet (the Drive file ID)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	readValuesTool := mcp.NewTool("read_sheet_values",
		mcp.WithDescription("Read cell values from a spreadsheet range"),
		mcp.WithString("spreadsheet_id",
			mcp.Required(),
			mcp.Description("The ID of the spreadsheet"),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description("Range in A1 notation, e.g. 'Sheet1!A1:C10'"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTools(
		common.Tool(sc, instrumentation.ServiceSheets, instrumentation.OperationGet, getSpreadsheetTool, handleGetSpreadsheet(sc)),
		common.Tool(sc, instrumentation.ServiceSheets, instrumentation.OperationRead, readValuesTool, handleReadValues(sc)),
	)

	if readOnly {
		return nil
	}

	createTool := mcp.NewTool("create_spreadsheet",
		mcp.WithDescription("Create a new spreadsheet in the service account's Drive"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title of the spreadsheet"),
		),
		mcp.WithArray("sheet_titles",
			mcp.Description("Names of the tabs to create (default: a single 'Sheet1')"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)

	updateValuesTool := mcp.NewTool("update_sheet_values",
		mcp.WithDescription("Overwrite cell values starting at a range"),
		mcp.WithString("spreadsheet_id",
			mcp.Required(),
			mcp.Description("The ID of the spreadsheet"),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description("Range in A1 notation, e.g. 'Sheet1!A1'"),
		),
		mcp.WithArray("values",
			mcp.Required(),
			mcp.Description("Rows of cell values, e.g. [[\"Name\", \"Total\"], [\"Alice\", 42]]"),
		),
		valueInputOption(),
	)

	appendValuesTool := mcp.NewTool("append_sheet_values",
		mcp.WithDescription("Append rows after the last row of the table found in a range"),
		mcp.WithString("spreadsheet_id",
			mcp.Required(),
			mcp.Description("The ID of the spreadsheet"),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description("Range in A1 notation that locates the table, e.g. 'Sheet1'"),
		),
		mcp.WithArray("values",
			mcp.Required(),
			mcp.Description("Rows of cell values to append"),
		),
		valueInputOption(),
	)

	batchUpdateTool := mcp.NewTool("batch_update_sheet",
		mcp.WithDescription("Apply Sheets API batchUpdate requests (addSheet, deleteSheet, repeatCell, ...) atomically"),
		mcp.WithString("spreadsheet_id",
			mcp.Required(),
			mcp.Description("The ID of the spreadsheet"),
		),
		mcp.WithArray("requests",
			mcp.Required(),
			mcp.Description("Request objects as defined by the Sheets API, e.g. [{\"addSheet\": {\"properties\": {\"title\": \"Q3\"}}}]"),
		),
	)

	s.AddTools(
		common.Tool(sc, instrumentation.ServiceSheets, instrumentation.OperationCreate, createTool, handleCreateSpreadsheet(sc)),
		common.Tool(sc, instrumentation.ServiceSheets, instrumentation.OperationUpdate, updateValuesTool, handleUpdateValues(sc)),
		common.Tool(sc, instrumentation.ServiceSheets, instrumentation.OperationAppend, appendValuesTool, handleAppendValues(sc)),
		common.Tool(sc, instrumentation.ServiceSheets, instrumentation.OperationBatch, batchUpdateTool, handleBatchUpdate(sc)),
	)
	return nil
}

func valueInputOption() mcp.ToolOption {
	return mcp.WithString("value_input_option",
		mcp.Description("How input is interpreted: "+strings.Join(sheets.InputOptions, " or ")+" (default: "+sheets.DefaultInputOption+")"),
		mcp.Enum(sheets.InputOptions...),
	)
}

func handleGetSpreadsheet(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		id, err := common.RequiredString(req, "spreadsheet_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(id)
		return sc.SheetsClient().GetSpreadsheet(ctx, id)
	}
}

func handleReadValues(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		id, err := common.RequiredString(req, "spreadsheet_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(id)
		rng, err := common.RequiredString(req, "range")
		if err != nil {
			return nil, err
		}
		return sc.SheetsClient().ReadValues(ctx, id, rng)
	}
}

func handleCreateSpreadsheet(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		title, err := common.RequiredString(req, "title")
		if err != nil {
			return nil, err
		}

		var sheetTitles []string
		if _, ok := req.GetArguments()["sheet_titles"]; ok {
			if err := common.DecodeJSONArg(req, "sheet_titles", &sheetTitles); err != nil {
				return nil, err
			}
		}

		created, err := sc.SheetsClient().CreateSpreadsheet(ctx, title, sheetTitles)
		if err != nil {
			return nil, err
		}
		inv.WithFileID(created.ID)
		return created, nil
	}
}

// writeArgs parses the arguments shared by update and append.
func writeArgs(req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (id, rng string, values [][]any, inputOption string, err error) {
	if id, err = common.RequiredString(req, "spreadsheet_id"); err != nil {
		return
	}
	inv.WithFileID(id)
	if rng, err = common.RequiredString(req, "range"); err != nil {
		return
	}
	if values, err = common.Values2D(req, "values"); err != nil {
		return
	}
	if inputOption, err = common.OptionalString(req, "value_input_option", sheets.DefaultInputOption); err != nil {
		return
	}
	inputOption, err = sheets.ValidateInputOption(inputOption)
	return
}

func handleUpdateValues(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		id, rng, values, inputOption, err := writeArgs(req, inv)
		if err != nil {
			return nil, err
		}
		return sc.SheetsClient().UpdateValues(ctx, id, rng, values, inputOption)
	}
}

func handleAppendValues(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		id, rng, values, inputOption, err := writeArgs(req, inv)
		if err != nil {
			return nil, err
		}
		return sc.SheetsClient().AppendValues(ctx, id, rng, values, inputOption)
	}
}

func handleBatchUpdate(sc *server.ServerContext) common.Handler {
	return func(ctx context.Context, req mcp.CallToolRequest, inv *instrumentation.ToolInvocation) (any, error) {
		id, err := common.RequiredString(req, "spreadsheet_id")
		if err != nil {
			return nil, err
		}
		inv.WithFileID(id)

		var requests []*sheetsapi.Request
		if err := common.DecodeJSONArg(req, "requests", &requests); err != nil {
			return nil, err
		}
		return sc.SheetsClient().BatchUpdate(ctx, id, requests)
	}
}
