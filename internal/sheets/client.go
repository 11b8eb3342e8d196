package sheets

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/gdrive-mcp/internal/errs"
)

// Value input options accepted by writes.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"

	// DefaultInputOption parses values as if typed into the UI.
	DefaultInputOption = InputUserEntered
)

// InputOptions lists the accepted value input options.
var InputOptions = []string{InputRaw, InputUserEntered}

// Client wraps the Sheets API service. It is safe for concurrent use.
type Client struct {
	service *sheets.Service
}

// NewClient creates a Sheets client from the service account's options.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return NewClientFromService(svc), nil
}

// NewClientFromService wraps an existing Sheets service.
func NewClientFromService(svc *sheets.Service) *Client {
	return &Client{service: svc}
}

// ValidateInputOption normalises option, defaulting the empty string.
func ValidateInputOption(option string) (string, error) {
	if option == "" {
		return DefaultInputOption, nil
	}
	option = strings.ToUpper(option)
	if !slices.Contains(InputOptions, option) {
		return "", errs.Validation("value_input_option", "must be one of %s, got %q", strings.Join(InputOptions, ", "), option)
	}
	return option, nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.Validation("spreadsheet_id", "is required")
	}
	return nil
}

func requireRange(rng string) error {
	if strings.TrimSpace(rng) == "" {
		return errs.Validation("range", "is required")
	}
	return nil
}

// CreateSpreadsheet creates a spreadsheet, optionally with named tabs.
func (c *Client) CreateSpreadsheet(ctx context.Context, title string, sheetTitles []string) (*Spreadsheet, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errs.Validation("title", "is required")
	}

	req := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}
	for _, name := range sheetTitles {
		req.Sheets = append(req.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{Title: name},
		})
	}

	created, err := c.service.Spreadsheets.Create(req).Context(ctx).Do()
	if err != nil {
		return nil, errs.FromGoogle("spreadsheets.create", "spreadsheet", "", err)
	}
	return convertSpreadsheet(created), nil
}

// GetSpreadsheet returns the spreadsheet metadata without cell data.
func (c *Client) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}

	s, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, errs.FromGoogle("spreadsheets.get", "spreadsheet", spreadsheetID, err)
	}
	return convertSpreadsheet(s), nil
}

// ReadValues returns the values in rng. Empty trailing rows and columns are
// omitted by the API.
func (c *Client) ReadValues(ctx context.Context, spreadsheetID, rng string) (*ValueRange, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}
	if err := requireRange(rng); err != nil {
		return nil, err
	}

	vr, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, errs.FromGoogle("spreadsheets.values.get", "spreadsheet", spreadsheetID, err)
	}

	values := vr.Values
	if values == nil {
		values = [][]any{}
	}
	return &ValueRange{Range: vr.Range, MajorDimension: vr.MajorDimension, Values: values}, nil
}

// UpdateValues overwrites the cells starting at rng.
func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]any, inputOption string) (*UpdateResult, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}
	if err := requireRange(rng); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.Validation("values", "must contain at least one row")
	}
	inputOption, err := ValidateInputOption(inputOption)
	if err != nil {
		return nil, err
	}

	resp, err := c.service.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(inputOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errs.FromGoogle("spreadsheets.values.update", "spreadsheet", spreadsheetID, err)
	}
	return convertUpdate(resp), nil
}

// AppendValues adds rows after the last row of the table found in rng.
func (c *Client) AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]any, inputOption string) (*AppendResult, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}
	if err := requireRange(rng); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.Validation("values", "must contain at least one row")
	}
	inputOption, err := ValidateInputOption(inputOption)
	if err != nil {
		return nil, err
	}

	resp, err := c.service.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(inputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, errs.FromGoogle("spreadsheets.values.append", "spreadsheet", spreadsheetID, err)
	}

	out := &AppendResult{TableRange: resp.TableRange}
	if resp.Updates != nil {
		out.UpdateResult = *convertUpdate(resp.Updates)
	}
	out.SpreadsheetID = resp.SpreadsheetId
	return out, nil
}

// BatchUpdate applies structural requests (add sheet, formatting, ...)
// atomically.
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) (*BatchUpdateResult, error) {
	if err := requireID(spreadsheetID); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, errs.Validation("requests", "must contain at least one request")
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errs.FromGoogle("spreadsheets.batchUpdate", "spreadsheet", spreadsheetID, err)
	}

	replies := resp.Replies
	if replies == nil {
		replies = []*sheets.Response{}
	}
	return &BatchUpdateResult{SpreadsheetID: resp.SpreadsheetId, Replies: replies}, nil
}

func convertSpreadsheet(s *sheets.Spreadsheet) *Spreadsheet {
	out := &Spreadsheet{ID: s.SpreadsheetId, URL: s.SpreadsheetUrl}
	if s.Properties != nil {
		out.Title = s.Properties.Title
	}
	for _, sh := range s.Sheets {
		if sh.Properties == nil {
			continue
		}
		tab := Sheet{
			ID:    sh.Properties.SheetId,
			Title: sh.Properties.Title,
			Index: sh.Properties.Index,
		}
		if g := sh.Properties.GridProperties; g != nil {
			tab.RowCount = g.RowCount
			tab.ColumnCount = g.ColumnCount
		}
		out.Sheets = append(out.Sheets, tab)
	}
	return out
}

func convertUpdate(r *sheets.UpdateValuesResponse) *UpdateResult {
	return &UpdateResult{
		SpreadsheetID:  r.SpreadsheetId,
		UpdatedRange:   r.UpdatedRange,
		UpdatedRows:    r.UpdatedRows,
		UpdatedColumns: r.UpdatedColumns,
		UpdatedCells:   r.UpdatedCells,
	}
}
